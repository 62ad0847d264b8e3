// Package ai holds optional model-backed helpers for the import pipeline.
package ai

import (
	"context"

	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/mapping"
)

// MaxSampleRows bounds how much of an upload is shown to a model.
const MaxSampleRows = 5

// MappingSuggestion is a model's guess at which header holds which field.
type MappingSuggestion struct {
	Mapping mapping.FieldMapping
	// Discarded lists entries that named an unknown field or header.
	Discarded []string
	Raw       string
}

// MappingSuggester proposes a column mapping from headers and a few sample rows.
type MappingSuggester interface {
	Suggest(ctx context.Context, headers []string, sample []*ingest.RawRow) (*MappingSuggestion, error)
}
