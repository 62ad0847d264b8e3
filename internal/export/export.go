// Package export writes datasets as tab-delimited text that the ingest parser
// reads back unchanged.
package export

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/reconcile"
)

// Extra columns carry derived state. Their headers must not collide with any
// conventional spelling in the mapping catalog.
const (
	ColumnLine             = "Source Line"
	ColumnFreelancerID     = "Freelancer ID"
	ColumnMatchedBy        = "Matched By"
	ColumnValid            = "Valid For Payment"
	ColumnValidationErrors = "Validation Errors"
	ColumnSent             = "Sent To Platform"
	ColumnBucket           = "Bucket"
	ColumnVendorEmail      = "Vendor Email"
	ColumnRosterID         = "Roster ID"
)

// RecordHeaders is the column order of WriteRecords.
func RecordHeaders() []string {
	headers := fieldHeaders()
	return append(headers, ColumnLine, ColumnFreelancerID, ColumnMatchedBy, ColumnValid, ColumnValidationErrors, ColumnSent)
}

// BucketHeaders is the column order of WriteBucket.
func BucketHeaders() []string {
	headers := fieldHeaders()
	return append(headers, ColumnBucket, ColumnFreelancerID, ColumnVendorEmail, ColumnRosterID)
}

// fieldHeaders uses each field's first conventional spelling so an export maps
// back without a template.
func fieldHeaders() []string {
	headers := make([]string, 0, len(mapping.Catalog))
	for _, spec := range mapping.Catalog {
		headers = append(headers, spec.Fallback[0])
	}
	return headers
}

func fieldValues(r *invoice.Record) []string {
	return []string{
		r.InvoiceCode,
		r.Resource,
		r.Status,
		r.TotalCost.String(),
		r.Currency,
		r.VAT.String(),
		r.DateSent,
		r.DatePaid,
		r.Project,
		r.SourceLanguage,
		r.TargetLanguage,
		strconv.Itoa(r.WordCount),
		r.Rate.String(),
		r.Service,
	}
}

// WriteRecords writes the normalized dataset with its validation state.
func WriteRecords(w io.Writer, records invoice.Records) error {
	if err := writeLine(w, RecordHeaders()); err != nil {
		return err
	}
	for _, r := range records {
		values := append(fieldValues(r),
			strconv.Itoa(r.Line),
			r.FreelancerID,
			r.MatchedBy,
			strconv.FormatBool(r.IsValidForPayment),
			strings.Join(r.ValidationErrors, "; "),
			strconv.FormatBool(r.SentToPlatform),
		)
		if err := writeLine(w, values); err != nil {
			return err
		}
	}
	return nil
}

// WriteBucket writes the entries of one reconciliation bucket.
func WriteBucket(w io.Writer, g *reconcile.Group) error {
	if err := writeLine(w, BucketHeaders()); err != nil {
		return err
	}
	for _, e := range g.Entries {
		var email, rosterID string
		if e.Vendor != nil {
			email = e.Vendor.ContactEmail()
		}
		if e.Member != nil {
			rosterID = e.Member.ExternalID
		}
		values := append(fieldValues(e.Record), g.Bucket.String(), e.Record.FreelancerID, email, rosterID)
		if err := writeLine(w, values); err != nil {
			return err
		}
	}
	return nil
}

// ToTmpFile runs write against a new temp file and returns its name.
func ToTmpFile(pattern string, write func(io.Writer) error) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := write(file); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

var flatten = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func writeLine(w io.Writer, cells []string) error {
	for i, c := range cells {
		cells[i] = flatten.Replace(c)
	}
	_, err := io.WriteString(w, strings.Join(cells, "\t")+"\n")
	return err
}
