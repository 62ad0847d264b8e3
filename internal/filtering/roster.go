package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/reconcile"
)

type rosterFilter struct {
	result   *reconcile.Result
	logger   *zap.Logger
	disabled bool
	reason   string
}

// NewRosterMembership keeps only records reconciled into the matched bucket.
// Without a reconciliation result the filter disables itself.
func NewRosterMembership(result *reconcile.Result, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &rosterFilter{result: result, logger: logger}
	if result == nil {
		f.Disable("no roster was reconciled")
	}
	return f
}

func (f *rosterFilter) Name() string { return "roster_membership" }

func (f *rosterFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *rosterFilter) IsEnabled() bool { return !f.disabled }

func (f *rosterFilter) Validate() error { return nil }

func (f *rosterFilter) Apply(_ context.Context, records invoice.Records) (invoice.Records, Step, error) {
	kept, dropped := keep(records, func(r *invoice.Record) bool {
		b, ok := f.result.BucketOf(r)
		return ok && b == reconcile.Matched
	})
	if len(dropped) > 0 {
		f.logger.Info("excluding invoices whose vendor is not on the platform roster",
			zap.Strings("excluded_invoices", dropped),
			zap.Int("invoices_left", len(kept)),
		)
	}
	return kept, step(len(records), kept), nil
}

func (f *rosterFilter) Status() Status {
	details := map[string]string{}
	if f.result != nil {
		details["matched"] = strconv.Itoa(f.result.Group(reconcile.Matched).Len())
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
