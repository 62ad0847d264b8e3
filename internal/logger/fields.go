package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
)

const (
	FieldInvoiceCode  = "invoice_code"
	FieldResource     = "resource"
	FieldLine         = "line"
	FieldFreelancerID = "freelancer_id"
	FieldMatchedBy    = "matched_by"

	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// RecordFields identifies a record in log entries. Empty values are left out.
func RecordFields(r *invoice.Record) []zap.Field {
	if r == nil {
		return nil
	}

	fields := StringFields(
		StringField{Key: FieldInvoiceCode, Value: r.InvoiceCode},
		StringField{Key: FieldResource, Value: r.Resource},
		StringField{Key: FieldFreelancerID, Value: r.FreelancerID},
		StringField{Key: FieldMatchedBy, Value: r.MatchedBy},
	)
	if r.Line > 0 {
		fields = append(fields, zap.Int(FieldLine, r.Line))
	}
	return fields
}

// AIFields describes the AI provider and model.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}
