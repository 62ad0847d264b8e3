// Package payment builds and validates payment payloads and guards batch
// submission for one working dataset.
package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
)

// pricePlaces is the precision of a derived per-unit price.
const pricePlaces = 6

// Payload is what the payment platform accepts for one payment.
type Payload struct {
	InvoiceCode    string `validate:"required"`
	SupplierEmail  string `validate:"required,email"`
	SupplierID     string
	SupplierName   string
	ServiceType    string
	UnitsType      string
	UnitsAmount    decimal.Decimal
	PricePerUnit   decimal.Decimal
	Currency       string
	Project        string
	SourceLanguage string
	TargetLanguage string
	Description    string
}

// Build converts a record into a payload. vendor may be nil for an unresolved
// record; the result is then not submittable and Validate says why.
func Build(r *invoice.Record, vendor *matching.Vendor, d mapping.Defaults) Payload {
	p := Payload{
		InvoiceCode:    strings.TrimSpace(r.InvoiceCode),
		SupplierEmail:  vendor.ContactEmail(),
		ServiceType:    pick(invoice.CanonicalService, r.Service, d.ServiceType, invoice.ServiceTypes[0]),
		Currency:       pick(invoice.CanonicalCurrency, r.Currency, d.Currency, invoice.Currencies[0]),
		Project:        r.Project,
		SourceLanguage: r.SourceLanguage,
		TargetLanguage: r.TargetLanguage,
		Description:    describe(r),
	}
	if vendor != nil {
		p.SupplierID = vendor.ExternalSupplierID
		p.SupplierName = vendor.FullName
	}

	switch {
	case r.WordCount > 0:
		words := decimal.NewFromInt(int64(r.WordCount))
		p.UnitsType = invoice.UnitsWords
		p.UnitsAmount = words
		p.PricePerUnit = r.TotalCost.DivRound(words, pricePlaces)
	default:
		// Document-based units and every other default unit type bill the
		// whole invoice as a single unit.
		p.UnitsType = pick(invoice.CanonicalUnits, d.UnitsType, "", invoice.UnitsWords)
		p.UnitsAmount = decimal.NewFromInt(1)
		p.PricePerUnit = r.TotalCost
	}

	return p
}

// pick returns the canonical form of value, else of fallback, else last.
// Service, units and currency are therefore always catalog values.
func pick(canonical func(string) (string, bool), value, fallback, last string) string {
	if v, ok := canonical(value); ok {
		return v
	}
	if v, ok := canonical(fallback); ok {
		return v
	}
	return last
}

func describe(r *invoice.Record) string {
	if r.Project != "" {
		return fmt.Sprintf("Invoice %s (%s)", r.InvoiceCode, r.Project)
	}
	return fmt.Sprintf("Invoice %s", r.InvoiceCode)
}
