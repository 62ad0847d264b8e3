package payment

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
)

var validate = validator.New()

const (
	ReasonVendorNotMatched = "vendor not matched"
	ReasonNoUsableEmail    = "vendor has no usable email"
	ReasonNoTotalCost      = "total cost must be greater than zero"
	ReasonNoInvoiceCode    = "invoice code is missing"
	ReasonNoPricePerUnit   = "price per unit must be greater than zero"
	ReasonNoUnitsAmount    = "units amount must be greater than zero"
)

var fieldReasons = map[string]string{
	"InvoiceCode":   ReasonNoInvoiceCode,
	"SupplierEmail": ReasonNoUsableEmail,
}

// Validate returns every reason r cannot be paid, in a stable order. An empty
// result means the record is valid for payment.
func Validate(r *invoice.Record, vendor *matching.Vendor, d mapping.Defaults) []string {
	var reasons []string
	add := func(reason string) {
		for _, have := range reasons {
			if have == reason {
				return
			}
		}
		reasons = append(reasons, reason)
	}

	if !r.FreelancerMatched || vendor == nil {
		add(ReasonVendorNotMatched)
	} else if validate.Var(vendor.ContactEmail(), "required,email") != nil {
		add(ReasonNoUsableEmail)
	}
	if !r.TotalCost.IsPositive() {
		add(ReasonNoTotalCost)
	}
	if r.InvoiceCode == "" {
		add(ReasonNoInvoiceCode)
	}

	p := Build(r, vendor, d)
	if !p.PricePerUnit.IsPositive() {
		add(ReasonNoPricePerUnit)
	}
	if !p.UnitsAmount.IsPositive() {
		add(ReasonNoUnitsAmount)
	}

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field() == "SupplierEmail" && (!r.FreelancerMatched || vendor == nil) {
					continue
				}
				if reason, ok := fieldReasons[fe.Field()]; ok {
					add(reason)
				} else {
					add(fmt.Sprintf("%s is invalid", fe.Field()))
				}
			}
		} else {
			add(err.Error())
		}
	}

	return reasons
}

// Evaluate stores the validation outcome on r.
func Evaluate(r *invoice.Record, vendor *matching.Vendor, d mapping.Defaults) {
	r.ValidationErrors = Validate(r, vendor, d)
	r.IsValidForPayment = len(r.ValidationErrors) == 0
}
