package export

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
	"github.com/linguaops/payrecon/internal/platform"
	"github.com/linguaops/payrecon/internal/reconcile"
)

var defaults = mapping.Defaults{ServiceType: "Translation", UnitsType: "Words", Currency: "EUR"}

func records() invoice.Records {
	return invoice.Records{
		{
			Line:              1,
			InvoiceCode:       "INV001",
			Resource:          "Jane Doe",
			Status:            "Approved",
			TotalCost:         decimal.RequireFromString("1234.5"),
			Currency:          "USD",
			VAT:               decimal.RequireFromString("21"),
			DateSent:          "2026-09-01",
			Project:           "Manual\tv2\nrelease",
			SourceLanguage:    "en",
			TargetLanguage:    "de",
			WordCount:         1000,
			Rate:              decimal.RequireFromString("0.12"),
			Service:           "Translation",
			FreelancerID:      "v1",
			FreelancerMatched: true,
			MatchedBy:         "full_name",
			IsValidForPayment: true,
		},
		{
			Line:             2,
			InvoiceCode:      "INV002",
			Resource:         "Ghost",
			Currency:         "EUR",
			ValidationErrors: []string{"vendor not matched", "total cost must be greater than zero"},
		},
	}
}

func TestWriteRecordsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records()))

	table := ingest.Parse(buf.String())
	require.Equal(t, 2, table.Len())
	assert.Equal(t, RecordHeaders(), table.Headers)

	got := invoice.Normalize(table.Rows, nil, defaults)
	want := records()
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].InvoiceCode, got[i].InvoiceCode)
		assert.Equal(t, want[i].Resource, got[i].Resource)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.True(t, want[i].TotalCost.Equal(got[i].TotalCost), got[i].TotalCost.String())
		assert.Equal(t, want[i].Currency, got[i].Currency)
		assert.True(t, want[i].VAT.Equal(got[i].VAT))
		assert.Equal(t, want[i].DateSent, got[i].DateSent)
		assert.Equal(t, want[i].WordCount, got[i].WordCount)
		assert.True(t, want[i].Rate.Equal(got[i].Rate))
		assert.Equal(t, want[i].Service, got[i].Service)
	}
	assert.Equal(t, "Manual v2 release", got[0].Project)

	second := table.Rows[1]
	assert.Equal(t, "false", second.Value(ColumnValid))
	assert.Equal(t, "vendor not matched; total cost must be greater than zero", second.Value(ColumnValidationErrors))
}

func TestExtraColumnsDoNotShadowFields(t *testing.T) {
	headers := RecordHeaders()
	detected := mapping.Detect(headers)

	for _, spec := range mapping.Catalog {
		assert.Equal(t, spec.Fallback[0], detected.Column(spec.Field), spec.Field)
	}
}

func TestWriteBucket(t *testing.T) {
	rs := records()
	vendors := matching.Vendors{{ID: "v1", FullName: "Jane Doe", Email: "jane@x.com"}}
	roster := &platform.Roster{Items: []*platform.RosterMember{{ExternalID: "sup-1", MatchedVendorID: "v1"}}}
	result := reconcile.Reconcile(rs, vendors, roster, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteBucket(&buf, result.Group(reconcile.Matched)))

	table := ingest.Parse(buf.String())
	require.Equal(t, 1, table.Len())
	row := table.Rows[0]
	assert.Equal(t, "INV001", row.Value("InvoiceCode"))
	assert.Equal(t, "matched", row.Value(ColumnBucket))
	assert.Equal(t, "jane@x.com", row.Value(ColumnVendorEmail))
	assert.Equal(t, "sup-1", row.Value(ColumnRosterID))
}

func TestWriteEmptyBucketHasHeaderOnly(t *testing.T) {
	result := reconcile.Reconcile(nil, nil, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteBucket(&buf, result.Group(reconcile.UnmatchedEverywhere)))

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.True(t, ingest.Parse(buf.String()).Empty())
}

func TestToTmpFile(t *testing.T) {
	name, err := ToTmpFile("invoices_*.tsv", func(w io.Writer) error {
		return WriteRecords(w, records())
	})
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(name) })

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, 2, ingest.Parse(string(data)).Len())
	assert.True(t, strings.HasSuffix(name, ".tsv"))
}

func TestToTmpFileWriteError(t *testing.T) {
	boom := errors.New("disk full")

	_, err := ToTmpFile("invoices_*.tsv", func(io.Writer) error { return boom })

	assert.ErrorIs(t, err, boom)
}
