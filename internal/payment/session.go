package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
)

const ReasonAlreadySent = "already sent to platform"

var ErrEmptyBatch = errors.New("no records selected")

// Submitter creates payments on the external platform.
type Submitter interface {
	CreatePayments(ctx context.Context, payloads []Payload) (int, error)
}

// Problem is one blocked record in a batch.
type Problem struct {
	Record  *invoice.Record
	Reasons []string
}

// BatchError blocks a whole submission. Nothing was sent.
type BatchError struct {
	Problems []Problem
	Selected int
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", label(p.Record), strings.Join(p.Reasons, ", ")))
	}
	return fmt.Sprintf("batch blocked, %d of %d records cannot be paid: %s",
		len(e.Problems), e.Selected, strings.Join(parts, "; "))
}

// Session owns one working dataset. Records marked sent stay sent for the
// lifetime of the session.
type Session struct {
	records  invoice.Records
	vendors  matching.Vendors
	defaults mapping.Defaults
	logger   *zap.Logger
}

func NewSession(records invoice.Records, vendors matching.Vendors, defaults mapping.Defaults, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		records:  records,
		vendors:  vendors,
		defaults: defaults,
		logger:   logger,
	}
}

func (s *Session) Records() invoice.Records { return s.records }

func (s *Session) Defaults() mapping.Defaults { return s.defaults }

// Vendor returns the registry vendor r was resolved to.
func (s *Session) Vendor(r *invoice.Record) *matching.Vendor {
	if !r.FreelancerMatched {
		return nil
	}
	return s.vendors.FindByID(r.FreelancerID)
}

// Evaluate validates every record in the dataset.
func (s *Session) Evaluate() {
	valid := 0
	for _, r := range s.records {
		Evaluate(r, s.Vendor(r), s.defaults)
		if r.IsValidForPayment {
			valid++
		}
	}
	s.logger.Info("records evaluated",
		zap.Int("records", len(s.records)),
		zap.Int("valid", valid),
		zap.Int("invalid", len(s.records)-valid),
	)
}

// Selectable lists records that are valid and not yet sent.
func (s *Session) Selectable() invoice.Records {
	var out invoice.Records
	for _, r := range s.records {
		if r.IsValidForPayment && !r.SentToPlatform {
			out = append(out, r)
		}
	}
	return out
}

// Payload builds the payment payload for r.
func (s *Session) Payload(r *invoice.Record) Payload {
	return Build(r, s.Vendor(r), s.defaults)
}

// Submit sends selected as one batch. Any invalid, already sent or repeated
// record blocks the whole batch with a *BatchError. On success every record in
// the batch is marked sent.
func (s *Session) Submit(ctx context.Context, submitter Submitter, selected invoice.Records) (int, error) {
	if len(selected) == 0 {
		return 0, ErrEmptyBatch
	}

	batchErr := &BatchError{Selected: len(selected)}
	seen := make(map[*invoice.Record]bool, len(selected))
	payloads := make([]Payload, 0, len(selected))

	for _, r := range selected {
		var reasons []string
		if seen[r] {
			reasons = append(reasons, "selected more than once")
		}
		seen[r] = true

		if r.SentToPlatform {
			reasons = append(reasons, ReasonAlreadySent)
		}

		vendor := s.Vendor(r)
		Evaluate(r, vendor, s.defaults)
		reasons = append(reasons, r.ValidationErrors...)

		if len(reasons) > 0 {
			batchErr.Problems = append(batchErr.Problems, Problem{Record: r, Reasons: reasons})
			continue
		}
		payloads = append(payloads, Build(r, vendor, s.defaults))
	}

	if len(batchErr.Problems) > 0 {
		s.logger.Warn("batch blocked",
			zap.Int("selected", len(selected)),
			zap.Int("blocked", len(batchErr.Problems)),
		)
		return 0, batchErr
	}

	created, err := submitter.CreatePayments(ctx, payloads)
	if err != nil {
		return 0, fmt.Errorf("submitting %d payments: %w", len(payloads), err)
	}

	// The request succeeded as a whole, so every record counts as sent.
	for _, r := range selected {
		r.SentToPlatform = true
	}

	if created < len(payloads) {
		s.logger.Warn("platform created fewer payments than submitted",
			zap.Int("submitted", len(payloads)),
			zap.Int("created", created),
		)
	}

	s.logger.Info("payments submitted", zap.Int("count", len(payloads)), zap.Int("created", created))
	return created, nil
}

func label(r *invoice.Record) string {
	if r.InvoiceCode != "" {
		return r.InvoiceCode
	}
	return fmt.Sprintf("line %d", r.Line)
}
