// Package mapping maps arbitrary source headers onto the canonical invoice fields.
package mapping

import (
	"regexp"
	"strings"
)

// Field is a canonical invoice field key.
type Field string

const (
	FieldInvoiceCode    Field = "invoiceCode"
	FieldResource       Field = "resource"
	FieldStatus         Field = "status"
	FieldTotalCost      Field = "totalCost"
	FieldCurrency       Field = "currency"
	FieldVAT            Field = "vat"
	FieldDateSent       Field = "dateSent"
	FieldDatePaid       Field = "datePaid"
	FieldProject        Field = "project"
	FieldSourceLanguage Field = "sourceLanguage"
	FieldTargetLanguage Field = "targetLanguage"
	FieldWordCount      Field = "wordCount"
	FieldRate           Field = "rate"
	FieldService        Field = "service"
)

// Spec describes how a canonical field is recognised in source headers.
type Spec struct {
	Field Field
	Label string
	// Pattern is the last-resort header shortlist used by Detect.
	Pattern *regexp.Regexp
	// Fallback lists conventional header spellings the normalizer looks for
	// when no mapping is configured at all.
	Fallback []string
}

// Catalog lists every canonical field in display order.
var Catalog = []Spec{
	{
		Field:    FieldInvoiceCode,
		Label:    "Invoice Code",
		Pattern:  regexp.MustCompile(`(?i)invoice|inv[\s_#-]*no|number|code`),
		Fallback: []string{"InvoiceCode", "Invoice Code", "Invoice", "Invoice No", "Invoice Number", "Code"},
	},
	{
		Field:    FieldResource,
		Label:    "Resource",
		Pattern:  regexp.MustCompile(`(?i)resource|freelancer|name|translator|vendor|supplier`),
		Fallback: []string{"Resource", "Freelancer", "Translator", "Vendor", "Supplier", "Name"},
	},
	{
		Field:    FieldStatus,
		Label:    "Status",
		Pattern:  regexp.MustCompile(`(?i)status|state`),
		Fallback: []string{"Status", "State", "Invoice Status"},
	},
	{
		Field:    FieldTotalCost,
		Label:    "Total Cost",
		Pattern:  regexp.MustCompile(`(?i)total|amount|cost|sum|price`),
		Fallback: []string{"TotalCost", "Total Cost", "Total", "Amount", "Cost"},
	},
	{
		Field:    FieldCurrency,
		Label:    "Currency",
		Pattern:  regexp.MustCompile(`(?i)currency|curr|ccy`),
		Fallback: []string{"Currency", "Curr", "CCY"},
	},
	{
		Field:    FieldVAT,
		Label:    "VAT",
		Pattern:  regexp.MustCompile(`(?i)vat|tax`),
		Fallback: []string{"VAT", "Tax", "VAT Amount"},
	},
	{
		Field:    FieldDateSent,
		Label:    "Sent Date",
		Pattern:  regexp.MustCompile(`(?i)sent|issued|invoice[\s_-]*date`),
		Fallback: []string{"DateSent", "Date Sent", "Sent Date", "Sent", "Issue Date", "Invoice Date"},
	},
	{
		Field:    FieldDatePaid,
		Label:    "Paid Date",
		Pattern:  regexp.MustCompile(`(?i)paid|payment[\s_-]*date`),
		Fallback: []string{"DatePaid", "Date Paid", "Paid Date", "Paid", "Payment Date"},
	},
	{
		Field:    FieldProject,
		Label:    "Project",
		Pattern:  regexp.MustCompile(`(?i)project|job|order`),
		Fallback: []string{"Project", "Project Name", "Job", "Order"},
	},
	{
		Field:    FieldSourceLanguage,
		Label:    "Source Language",
		Pattern:  regexp.MustCompile(`(?i)source|from[\s_-]*lang|src`),
		Fallback: []string{"SourceLanguage", "Source Language", "Source", "Source Lang"},
	},
	{
		Field:    FieldTargetLanguage,
		Label:    "Target Language",
		Pattern:  regexp.MustCompile(`(?i)target|to[\s_-]*lang|tgt`),
		Fallback: []string{"TargetLanguage", "Target Language", "Target", "Target Lang"},
	},
	{
		Field:    FieldWordCount,
		Label:    "Word Count",
		Pattern:  regexp.MustCompile(`(?i)words?|volume|units?`),
		Fallback: []string{"WordCount", "Word Count", "Words", "Volume"},
	},
	{
		Field:    FieldRate,
		Label:    "Rate",
		Pattern:  regexp.MustCompile(`(?i)rate|per[\s_-]*word|unit[\s_-]*price`),
		Fallback: []string{"Rate", "Unit Price", "Price Per Word"},
	},
	{
		Field:    FieldService,
		Label:    "Service",
		Pattern:  regexp.MustCompile(`(?i)service|task|activity`),
		Fallback: []string{"Service", "Service Type", "Task", "Activity"},
	},
}

// Fields returns the canonical field keys in catalog order.
func Fields() []Field {
	out := make([]Field, 0, len(Catalog))
	for _, spec := range Catalog {
		out = append(out, spec.Field)
	}
	return out
}

// Lookup returns the catalog entry for f.
func Lookup(f Field) (Spec, bool) {
	for _, spec := range Catalog {
		if spec.Field == f {
			return spec, true
		}
	}
	return Spec{}, false
}

// ParseField accepts a canonical key in any case or separator style.
func ParseField(s string) (Field, bool) {
	key := squash(s)
	for _, spec := range Catalog {
		if squash(string(spec.Field)) == key {
			return spec.Field, true
		}
	}
	return "", false
}

// squash lower-cases s and drops separators so "Invoice_Code" equals "invoiceCode".
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-', '.', '/', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func firstLabelToken(label string) string {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
