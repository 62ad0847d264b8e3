package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/linguaops/payrecon/internal/ai"
	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
	"github.com/linguaops/payrecon/internal/platform"
	"github.com/linguaops/payrecon/internal/reconcile"
)

const fallbackInput = "InvoiceCode\tResource\tTotalCost\tWordCount\n" +
	"INV001\tJane Doe\t100\t1000\n" +
	"INV002\tNobody Known\t50\t500\n"

const customInput = "Code\tWho\tAmount\tWords\n" +
	"C-1\tjane@x.com\t80\t800\n"

type vendorList struct {
	vendors []matching.Vendor
	err     error
	calls   int
}

func (v *vendorList) List(context.Context) ([]matching.Vendor, error) {
	v.calls++
	return v.vendors, v.err
}

type templateList struct {
	items []*mapping.Template
}

func (s *templateList) List(context.Context) ([]*mapping.Template, error) {
	return s.items, nil
}

func (s *templateList) Create(_ context.Context, t *mapping.Template) error {
	s.items = append(s.items, t)
	return nil
}

func (s *templateList) Update(_ context.Context, id string, patch mapping.TemplatePatch) error {
	for _, t := range s.items {
		if t.ID == id {
			if patch.LastUsedAt != nil {
				t.LastUsedAt = patch.LastUsedAt
			}
			if patch.IsDefault != nil {
				t.IsDefault = *patch.IsDefault
			}
			return nil
		}
	}
	return mapping.ErrTemplateNotFound
}

func (s *templateList) Delete(context.Context, string) error { return nil }

type stubSuggester struct {
	suggestion *ai.MappingSuggestion
	err        error
	headers    []string
	sampled    int
}

func (s *stubSuggester) Suggest(_ context.Context, headers []string, sample []*ingest.RawRow) (*ai.MappingSuggestion, error) {
	s.headers = headers
	s.sampled = len(sample)
	return s.suggestion, s.err
}

var (
	jane     = matching.Vendor{ID: "v1", FullName: "Jane Doe", Email: "jane@x.com", ExternalSupplierID: "sup-1"}
	defaults = mapping.Defaults{ServiceType: "Translation", UnitsType: "Words", Currency: "EUR"}

	customMapping = mapping.FieldMapping{
		mapping.FieldInvoiceCode: "Code",
		mapping.FieldResource:    "Who",
		mapping.FieldTotalCost:   "Amount",
		mapping.FieldWordCount:   "Words",
	}
)

func templates(items ...*mapping.Template) *mapping.TemplateService {
	return mapping.NewTemplateService(&templateList{items: items}, nil)
}

func TestRunWithFallbackSpellings(t *testing.T) {
	vendors := &vendorList{vendors: []matching.Vendor{jane}}
	p, err := New(context.Background(), Deps{Vendors: vendors}, Config{Defaults: defaults})
	require.NoError(t, err)
	assert.Nil(t, p.Template())

	res, err := p.Run(context.Background(), fallbackInput)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, vendors.calls)
	assert.Equal(t, defaults, res.Defaults)

	paid := res.Records.FindByInvoiceCode("INV001")
	require.NotNil(t, paid)
	assert.True(t, paid.FreelancerMatched)
	assert.Equal(t, string(matching.MatchFullName), paid.MatchedBy)
	assert.True(t, paid.IsValidForPayment)

	unpaid := res.Records.FindByInvoiceCode("INV002")
	require.NotNil(t, unpaid)
	assert.False(t, unpaid.IsValidForPayment)
	assert.NotEmpty(t, unpaid.ValidationErrors)

	assert.Len(t, res.Session.Selectable(), 1)
}

func TestRunWithoutConfiguredDefaults(t *testing.T) {
	for name, cfg := range map[string]Config{
		"fallback spellings": {},
		"auto detection":     {AutoDetect: true},
	} {
		t.Run(name, func(t *testing.T) {
			p, err := New(context.Background(), Deps{Vendors: &vendorList{vendors: []matching.Vendor{jane}}}, cfg)
			require.NoError(t, err)

			res, err := p.Run(context.Background(), fallbackInput)
			require.NoError(t, err)

			paid := res.Records.FindByInvoiceCode("INV001")
			require.NotNil(t, paid)
			assert.Empty(t, paid.ValidationErrors)
			assert.True(t, paid.IsValidForPayment)
			assert.Empty(t, paid.SourceLanguage)
			assert.Equal(t, "Jane Doe", paid.Resource)
			assert.Len(t, res.Session.Selectable(), 1)
		})
	}
}

func TestRunEmptyInput(t *testing.T) {
	vendors := &vendorList{vendors: []matching.Vendor{jane}}
	p, err := New(context.Background(), Deps{Vendors: vendors}, Config{})
	require.NoError(t, err)

	for _, text := range []string{"", "InvoiceCode\tResource"} {
		res, err := p.Run(context.Background(), text)
		require.NoError(t, err)
		assert.Empty(t, res.Records)
		assert.Empty(t, res.Session.Selectable())
	}
	assert.Zero(t, vendors.calls)
}

func TestRunVendorFailure(t *testing.T) {
	p, err := New(context.Background(), Deps{Vendors: &vendorList{err: errors.New("db down")}}, Config{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), fallbackInput)
	assert.ErrorContains(t, err, "listing vendors: db down")
}

func TestNewRequiresVendors(t *testing.T) {
	_, err := New(context.Background(), Deps{}, Config{})
	assert.ErrorIs(t, err, ErrNoVendorSource)
}

func TestNewUnknownTemplate(t *testing.T) {
	_, err := New(context.Background(), Deps{Vendors: &vendorList{}, Templates: templates()}, Config{TemplateName: "missing"})
	assert.ErrorIs(t, err, mapping.ErrTemplateNotFound)
}

func TestDefaultTemplateApplied(t *testing.T) {
	tpl := &mapping.Template{
		ID:        "t1",
		Name:      "billing export",
		Mapping:   customMapping,
		Defaults:  mapping.Defaults{Currency: "USD"},
		IsDefault: true,
	}
	p, err := New(context.Background(), Deps{
		Vendors:   &vendorList{vendors: []matching.Vendor{jane}},
		Templates: templates(tpl),
	}, Config{Defaults: defaults})
	require.NoError(t, err)
	require.NotNil(t, p.Template())
	assert.Equal(t, "billing export", p.Template().Name)

	res, err := p.Run(context.Background(), customInput)
	require.NoError(t, err)

	assert.Equal(t, mapping.Defaults{ServiceType: "Translation", UnitsType: "Words", Currency: "USD"}, res.Defaults)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "C-1", r.InvoiceCode)
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, string(matching.MatchEmail), r.MatchedBy)
	assert.True(t, r.IsValidForPayment, r.ValidationErrors)
	assert.Equal(t, mapping.SourceTemplate, res.Resolution.Sources[mapping.FieldInvoiceCode])
}

func TestNamedTemplateWinsOverDefault(t *testing.T) {
	p, err := New(context.Background(), Deps{
		Vendors: &vendorList{},
		Templates: templates(
			&mapping.Template{ID: "t1", Name: "default", IsDefault: true},
			&mapping.Template{ID: "t2", Name: "Custom", Mapping: customMapping},
		),
	}, Config{TemplateName: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "t2", p.Template().ID)
}

func TestManualOverridesTemplate(t *testing.T) {
	tpl := &mapping.Template{ID: "t1", Name: "billing", Mapping: customMapping, IsDefault: true}
	input := "Code\tWho\tAmount\tWords\tRef\n" +
		"C-1\tJane Doe\t80\t800\tR-9\n"

	p, err := New(context.Background(), Deps{
		Vendors:   &vendorList{vendors: []matching.Vendor{jane}},
		Templates: templates(tpl),
	}, Config{
		Defaults: defaults,
		Manual:   mapping.FieldMapping{mapping.FieldInvoiceCode: "Ref"},
	})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "R-9", res.Records[0].InvoiceCode)
	assert.Equal(t, mapping.SourceManual, res.Resolution.Sources[mapping.FieldInvoiceCode])
}

func TestConfigIsCopied(t *testing.T) {
	manual := mapping.FieldMapping{mapping.FieldInvoiceCode: "Code"}
	p, err := New(context.Background(), Deps{Vendors: &vendorList{}}, Config{Manual: manual})
	require.NoError(t, err)

	manual[mapping.FieldInvoiceCode] = "Other"
	got := p.Config()
	assert.Equal(t, "Code", got.Manual[mapping.FieldInvoiceCode])

	got.Manual[mapping.FieldInvoiceCode] = "Changed"
	assert.Equal(t, "Code", p.Config().Manual[mapping.FieldInvoiceCode])
}

func TestSuggestionLayer(t *testing.T) {
	suggester := &stubSuggester{suggestion: &ai.MappingSuggestion{
		Mapping:   customMapping,
		Discarded: []string{"bogus -> Nowhere"},
	}}
	p, err := New(context.Background(), Deps{
		Vendors:   &vendorList{vendors: []matching.Vendor{jane}},
		Suggester: suggester,
	}, Config{Defaults: defaults})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), customInput)
	require.NoError(t, err)

	assert.Equal(t, []string{"Code", "Who", "Amount", "Words"}, suggester.headers)
	assert.Equal(t, 1, suggester.sampled)
	assert.Equal(t, mapping.SourceAI, res.Resolution.Sources[mapping.FieldResource])
	assert.True(t, res.Records[0].IsValidForPayment)
}

func TestSuggestionFailureIsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p, err := New(context.Background(), Deps{
		Vendors:   &vendorList{vendors: []matching.Vendor{jane}},
		Suggester: &stubSuggester{err: errors.New("quota exceeded")},
		Logger:    zap.New(core),
	}, Config{Defaults: defaults, AutoDetect: true})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), fallbackInput)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)

	entries := logs.FilterMessage("mapping suggestion failed, skipping").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "quota exceeded", entries[0].ContextMap()["error"])
}

func TestResultReconcile(t *testing.T) {
	p, err := New(context.Background(), Deps{Vendors: &vendorList{vendors: []matching.Vendor{jane}}}, Config{Defaults: defaults})
	require.NoError(t, err)

	res, err := p.Run(context.Background(), fallbackInput)
	require.NoError(t, err)

	roster := &platform.Roster{Items: []*platform.RosterMember{{ExternalID: "sup-1", Name: "Jane Doe"}}}
	rec := res.Reconcile(roster)

	bucket, ok := rec.BucketOf(res.Records.FindByInvoiceCode("INV001"))
	require.True(t, ok)
	assert.Equal(t, reconcile.Matched, bucket)

	bucket, ok = rec.BucketOf(res.Records.FindByInvoiceCode("INV002"))
	require.True(t, ok)
	assert.Equal(t, reconcile.UnmatchedEverywhere, bucket)
	assert.Equal(t, 2, rec.Summary.Records)
}
