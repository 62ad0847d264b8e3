// Package invoice normalizes ingested rows into invoice candidates.
package invoice

import (
	"github.com/shopspring/decimal"
)

// Record is a normalized invoice candidate plus the state derived while it moves
// through resolution, validation and submission.
type Record struct {
	// Line is the 1-based data line the record came from.
	Line int

	InvoiceCode    string
	Resource       string
	Status         string
	TotalCost      decimal.Decimal
	Currency       string
	VAT            decimal.Decimal
	DateSent       string
	DatePaid       string
	Project        string
	SourceLanguage string
	TargetLanguage string
	WordCount      int
	Rate           decimal.Decimal
	Service        string

	FreelancerID      string
	FreelancerMatched bool
	// MatchedBy names the resolution step that found the vendor.
	MatchedBy         string
	ValidationErrors  []string
	IsValidForPayment bool
	// SentToPlatform is set once a payment was created for the record and is
	// never cleared afterwards.
	SentToPlatform bool
}

// Records is a working dataset.
type Records []*Record

func (rs Records) Len() int { return len(rs) }

// Total sums TotalCost over all records.
func (rs Records) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range rs {
		total = total.Add(r.TotalCost)
	}
	return total
}

// FindByInvoiceCode returns the first record with the given code.
func (rs Records) FindByInvoiceCode(code string) *Record {
	for _, r := range rs {
		if r.InvoiceCode == code {
			return r
		}
	}
	return nil
}

// InvoiceCodes lists the codes of all records in order.
func (rs Records) InvoiceCodes() []string {
	codes := make([]string, 0, len(rs))
	for _, r := range rs {
		codes = append(codes, r.InvoiceCode)
	}
	return codes
}
