package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
)

var (
	jane = matching.Vendor{ID: "v1", FullName: "Jane Doe", Email: "jane@x.com", ExternalSupplierID: "sup-1"}

	defaults = mapping.Defaults{ServiceType: "Translation", UnitsType: "Words", Currency: "EUR"}
)

func validRecord(code string) *invoice.Record {
	return &invoice.Record{
		InvoiceCode:       code,
		Resource:          "Jane Doe",
		TotalCost:         decimal.NewFromInt(100),
		Currency:          "EUR",
		WordCount:         1000,
		FreelancerID:      "v1",
		FreelancerMatched: true,
	}
}

func TestBuildUnitDerivation(t *testing.T) {
	t.Run("word count gives a per word price", func(t *testing.T) {
		p := Build(validRecord("INV1"), &jane, defaults)

		assert.Equal(t, invoice.UnitsWords, p.UnitsType)
		assert.True(t, p.UnitsAmount.Equal(decimal.NewFromInt(1000)))
		assert.True(t, p.PricePerUnit.Equal(decimal.RequireFromString("0.1")), p.PricePerUnit.String())
	})

	t.Run("uneven division is rounded", func(t *testing.T) {
		r := validRecord("INV1")
		r.WordCount = 3

		p := Build(r, &jane, defaults)

		assert.Equal(t, "33.333333", p.PricePerUnit.String())
	})

	t.Run("document based default bills one unit", func(t *testing.T) {
		r := validRecord("INV1")
		r.WordCount = 0

		p := Build(r, &jane, mapping.Defaults{UnitsType: "pages", ServiceType: "DTP", Currency: "EUR"})

		assert.Equal(t, "Pages", p.UnitsType)
		assert.True(t, p.UnitsAmount.Equal(decimal.NewFromInt(1)))
		assert.True(t, p.PricePerUnit.Equal(decimal.NewFromInt(100)))
	})

	t.Run("other default unit types bill one unit too", func(t *testing.T) {
		r := validRecord("INV1")
		r.WordCount = 0

		p := Build(r, &jane, mapping.Defaults{UnitsType: "Hours", ServiceType: "Interpreting", Currency: "EUR"})

		assert.Equal(t, "Hours", p.UnitsType)
		assert.True(t, p.UnitsAmount.Equal(decimal.NewFromInt(1)))
		assert.True(t, p.PricePerUnit.Equal(decimal.NewFromInt(100)))
	})
}

func TestBuildServiceAndCurrency(t *testing.T) {
	r := validRecord("INV1")
	r.Service = "proofreading"
	r.Currency = "GBP"

	p := Build(r, &jane, defaults)
	assert.Equal(t, "Proofreading", p.ServiceType)
	assert.Equal(t, "GBP", p.Currency)

	r.Service = "Copywriting"
	r.Currency = "JPY"

	p = Build(r, &jane, defaults)
	assert.Equal(t, "Translation", p.ServiceType)
	assert.Equal(t, "EUR", p.Currency)
}

func TestBuildSupplier(t *testing.T) {
	alt := matching.Vendor{ID: "v2", FullName: "Alt Only", AltEmail: "alt@x.com", ExternalSupplierID: "sup-2"}

	p := Build(validRecord("INV1"), &alt, defaults)

	assert.Equal(t, "alt@x.com", p.SupplierEmail)
	assert.Equal(t, "sup-2", p.SupplierID)
	assert.Equal(t, "Alt Only", p.SupplierName)

	p = Build(validRecord("INV1"), nil, defaults)
	assert.Empty(t, p.SupplierEmail)
	assert.Empty(t, p.SupplierID)
}

func TestValidate(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		assert.Empty(t, Validate(validRecord("INV1"), &jane, defaults))
	})

	t.Run("unmatched vendor", func(t *testing.T) {
		r := validRecord("INV1")
		r.FreelancerMatched = false

		assert.Equal(t, []string{ReasonVendorNotMatched}, Validate(r, nil, defaults))
	})

	t.Run("unusable email", func(t *testing.T) {
		broken := jane
		broken.Email = "not an email"

		assert.Equal(t, []string{ReasonNoUsableEmail}, Validate(validRecord("INV1"), &broken, defaults))
	})

	t.Run("zero total cost", func(t *testing.T) {
		r := validRecord("INV1")
		r.TotalCost = decimal.Zero

		reasons := Validate(r, &jane, defaults)
		assert.Contains(t, reasons, ReasonNoTotalCost)
		assert.Contains(t, reasons, ReasonNoPricePerUnit)
	})

	t.Run("missing invoice code", func(t *testing.T) {
		assert.Equal(t, []string{ReasonNoInvoiceCode}, Validate(validRecord(""), &jane, defaults))
	})

	t.Run("no configured defaults", func(t *testing.T) {
		r := validRecord("INV1")
		r.WordCount = 0
		r.Currency = ""

		assert.Empty(t, Validate(r, &jane, mapping.Defaults{}))

		p := Build(r, &jane, mapping.Defaults{})
		assert.Equal(t, invoice.UnitsWords, p.UnitsType)
		assert.Equal(t, invoice.ServiceTypes[0], p.ServiceType)
		assert.Equal(t, invoice.Currencies[0], p.Currency)
	})

	t.Run("evaluate stores the outcome", func(t *testing.T) {
		r := validRecord("")
		Evaluate(r, &jane, defaults)

		assert.False(t, r.IsValidForPayment)
		assert.NotEmpty(t, r.ValidationErrors)
	})
}

func TestEndToEndWordPayload(t *testing.T) {
	table := ingest.Parse("InvoiceCode\tResource\tTotalCost\tWordCount\nINV001\tJane Doe\t100\t1000")
	require.Equal(t, 1, table.Len())

	records := invoice.Normalize(table.Rows, nil, defaults)
	matching.NewResolver([]matching.Vendor{{ID: "v1", FullName: "Jane Doe", Email: "jane@x.com"}}, nil).Apply(records)

	r := records[0]
	require.True(t, r.FreelancerMatched)

	vendor := &matching.Vendor{ID: "v1", FullName: "Jane Doe", Email: "jane@x.com"}
	p := Build(r, vendor, defaults)

	assert.Empty(t, Validate(r, vendor, defaults))
	assert.Equal(t, "Words", p.UnitsType)
	assert.True(t, p.UnitsAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, p.PricePerUnit.Equal(decimal.RequireFromString("0.1")))
}
