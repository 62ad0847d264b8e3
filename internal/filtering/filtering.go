// Package filtering narrows payment candidates before the operator picks a batch.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
)

// Filter is a single narrowing step. Apply must not modify the input slice.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, records invoice.Records) (invoice.Records, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// StepResult is a Step tagged with the filter that produced it.
type StepResult struct {
	Name string
	Step
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

type Filtering struct {
	steps   []Filter
	logger  *zap.Logger
	results []StepResult
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func (f *Filtering) DisableByName(name, reason string) {
	for _, step := range f.steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// RunFilters executes the enabled filters in order and returns what is left.
func (f *Filtering) RunFilters(ctx context.Context, records invoice.Records) (invoice.Records, error) {
	for _, step := range f.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	f.results = f.results[:0]
	for _, step := range f.steps {
		if !step.IsEnabled() {
			f.logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		f.results = append(f.results, StepResult{Name: step.Name(), Step: info})
		records = next
	}

	return records, nil
}

// Results reports the steps of the last run.
func (f *Filtering) Results() []StepResult {
	return append([]StepResult(nil), f.results...)
}

// Describe returns status entries for the configured filters.
func (f *Filtering) Describe() []Status {
	statuses := make([]Status, 0, len(f.steps))
	for _, step := range f.steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the records for which ok is true, and the invoice codes of the rest.
func keep(records invoice.Records, ok func(*invoice.Record) bool) (invoice.Records, []string) {
	kept := make(invoice.Records, 0, len(records))
	var dropped []string
	for _, r := range records {
		if ok(r) {
			kept = append(kept, r)
			continue
		}
		dropped = append(dropped, r.InvoiceCode)
	}
	return kept, dropped
}

func step(initial int, kept invoice.Records) Step {
	return Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}
}
