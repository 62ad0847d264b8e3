// Package pipeline runs the import chain every command shares: parse, resolve
// the column mapping, normalize, resolve vendors, evaluate and, on demand,
// reconcile against the platform roster.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/ai"
	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/logger"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
	"github.com/linguaops/payrecon/internal/payment"
	"github.com/linguaops/payrecon/internal/platform"
	"github.com/linguaops/payrecon/internal/reconcile"
)

var ErrNoVendorSource = errors.New("vendor registry is not configured")

// Deps are the collaborators of a pipeline. Templates and Suggester are optional.
type Deps struct {
	Templates *mapping.TemplateService
	Vendors   matching.VendorSource
	Suggester ai.MappingSuggester
	Logger    *zap.Logger
}

// Config is the per-invocation configuration. The pipeline keeps its own copy.
type Config struct {
	// TemplateName selects a saved template. Empty means the default template, if any.
	TemplateName string
	Manual       mapping.FieldMapping
	// Defaults fill in whatever the template defaults leave empty.
	Defaults   mapping.Defaults
	AutoDetect bool
}

func (c Config) clone() Config {
	c.Manual = c.Manual.Clone()
	return c
}

type Pipeline struct {
	deps     Deps
	cfg      Config
	template *mapping.Template
	logger   *zap.Logger
}

// New loads the template once. A named template that cannot be found is an
// error; a missing default template is not.
func New(ctx context.Context, deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Vendors == nil {
		return nil, ErrNoVendorSource
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	p := &Pipeline{
		deps:   deps,
		cfg:    cfg.clone(),
		logger: deps.Logger,
	}

	if deps.Templates == nil {
		return p, nil
	}

	name := strings.TrimSpace(cfg.TemplateName)
	if name != "" {
		t, err := deps.Templates.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("loading template %q: %w", name, err)
		}
		p.template = t
	} else {
		t, err := deps.Templates.LoadDefault(ctx)
		switch {
		case errors.Is(err, mapping.ErrTemplateNotFound):
			p.logger.Debug("no default template")
		case err != nil:
			return nil, fmt.Errorf("loading default template: %w", err)
		default:
			p.template = t
		}
	}

	if p.template != nil {
		p.logger.Info("template loaded", zap.String("template", p.template.Name), zap.String("id", p.template.ID))
	}
	return p, nil
}

// Config returns a copy of the configuration the pipeline runs with.
func (p *Pipeline) Config() Config { return p.cfg.clone() }

// Template returns the loaded template, or nil.
func (p *Pipeline) Template() *mapping.Template { return p.template }

// Result is one run over one input.
type Result struct {
	Table      *ingest.Table
	Resolution mapping.Resolution
	// Defaults are the effective defaults: template values merged over the config.
	Defaults mapping.Defaults
	Records  invoice.Records
	Vendors  matching.Vendors
	Session  *payment.Session

	logger *zap.Logger
}

// Run processes text. Empty or single-line input yields an empty result.
// Only the vendor registry lookup can fail.
func (p *Pipeline) Run(ctx context.Context, text string) (*Result, error) {
	table := ingest.Parse(text)
	p.logger.Info("input parsed", zap.Int("headers", len(table.Headers)), zap.Int("rows", table.Len()))

	opts := mapping.Options{
		AutoDetect: p.cfg.AutoDetect,
		Template:   p.template,
		Manual:     p.cfg.Manual.Clone(),
	}
	if !table.Empty() {
		opts.Suggested = p.suggest(ctx, table)
	}

	resolution := mapping.Resolve(table.Headers, opts, p.logger)
	defaults := resolution.Defaults.Merge(p.cfg.Defaults)
	records := invoice.Normalize(table.Rows, resolution.Mapping, defaults)

	var vendors matching.Vendors
	if !table.Empty() {
		listed, err := p.deps.Vendors.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing vendors: %w", err)
		}
		vendors = listed
	}

	matching.NewResolver(vendors, p.logger).Apply(records)

	session := payment.NewSession(records, vendors, defaults, p.logger)
	session.Evaluate()

	for _, r := range records {
		if !r.IsValidForPayment {
			p.logger.Debug("record not payable",
				append(logger.RecordFields(r), zap.Strings("reasons", r.ValidationErrors))...,
			)
		}
	}

	return &Result{
		Table:      table,
		Resolution: resolution,
		Defaults:   defaults,
		Records:    records,
		Vendors:    vendors,
		Session:    session,
		logger:     p.logger,
	}, nil
}

// Reconcile buckets the result against roster. A nil roster leaves resolved
// records in the internal-only bucket.
func (r *Result) Reconcile(roster *platform.Roster) *reconcile.Result {
	return reconcile.Reconcile(r.Records, r.Vendors, roster, r.logger)
}

func (p *Pipeline) suggest(ctx context.Context, table *ingest.Table) mapping.FieldMapping {
	if p.deps.Suggester == nil {
		return nil
	}

	suggestion, err := p.deps.Suggester.Suggest(ctx, table.Headers, table.Sample(ai.MaxSampleRows))
	if err != nil {
		p.logger.Warn("mapping suggestion failed, skipping", zap.Error(err))
		return nil
	}
	if suggestion == nil {
		return nil
	}
	if len(suggestion.Discarded) > 0 {
		p.logger.Debug("suggestion entries discarded", zap.Strings("entries", suggestion.Discarded))
	}
	return suggestion.Mapping
}
