package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
)

type sentFilter struct {
	logger *zap.Logger
}

// NewSentToPlatform drops records that already have a payment on the platform.
func NewSentToPlatform(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sentFilter{logger: logger}
}

func (f *sentFilter) Name() string { return "sent_to_platform" }

func (f *sentFilter) Disable(string) {}

func (f *sentFilter) IsEnabled() bool { return true }

func (f *sentFilter) Validate() error { return nil }

func (f *sentFilter) Apply(_ context.Context, records invoice.Records) (invoice.Records, Step, error) {
	kept, dropped := keep(records, func(r *invoice.Record) bool { return !r.SentToPlatform })
	if len(dropped) > 0 {
		f.logger.Info("excluding invoices already sent to the platform",
			zap.Strings("excluded_invoices", dropped),
			zap.Int("invoices_left", len(kept)),
		)
	}
	return kept, step(len(records), kept), nil
}

type invalidFilter struct {
	logger   *zap.Logger
	disabled bool
	reason   string
}

// NewInvalidForPayment drops records that failed payment validation.
func NewInvalidForPayment(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &invalidFilter{logger: logger}
}

func (f *invalidFilter) Name() string { return "invalid_for_payment" }

func (f *invalidFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *invalidFilter) IsEnabled() bool { return !f.disabled }

func (f *invalidFilter) Validate() error { return nil }

func (f *invalidFilter) Apply(_ context.Context, records invoice.Records) (invoice.Records, Step, error) {
	kept, dropped := keep(records, func(r *invoice.Record) bool { return r.IsValidForPayment })
	for _, r := range records {
		if r.IsValidForPayment {
			continue
		}
		f.logger.Debug("invoice is not valid for payment",
			zap.String("invoice_code", r.InvoiceCode),
			zap.Int("line", r.Line),
			zap.Strings("reasons", r.ValidationErrors),
		)
	}
	if len(dropped) > 0 {
		f.logger.Info("excluding invoices that failed validation",
			zap.Strings("excluded_invoices", dropped),
			zap.Int("invoices_left", len(kept)),
		)
	}
	return kept, step(len(records), kept), nil
}

func (f *invalidFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"keeps_invalid": strconv.FormatBool(f.disabled)},
	}
}
