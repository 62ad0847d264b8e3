package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
)

type excludeFileFilter struct {
	path   string
	logger *zap.Logger
}

// NewExcludeFile creates a filter that removes invoices listed in the exclude file.
// An empty path keeps everything.
func NewExcludeFile(path string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &excludeFileFilter{
		path:   strings.TrimSpace(path),
		logger: logger,
	}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, records invoice.Records) (invoice.Records, Step, error) {
	if f.path == "" {
		return records, step(len(records), records), nil
	}

	excluded, err := LoadExcluded(f.path)
	if err != nil {
		return nil, Step{}, fmt.Errorf("getting excluded invoices from file: %w", err)
	}

	codes := make(map[string]struct{}, len(excluded.Items))
	for _, code := range excluded.InvoiceCodes() {
		codes[code] = struct{}{}
	}

	kept, dropped := keep(records, func(r *invoice.Record) bool {
		_, ok := codes[r.InvoiceCode]
		return !ok
	})
	if len(dropped) > 0 {
		f.logger.Info("excluding invoices based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_invoices", dropped),
			zap.Int("invoices_left", len(kept)),
		)
	}

	return kept, step(len(records), kept), nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
