package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/ai"
	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Suggester asks Gemini for a column mapping.
type Suggester struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.MappingSuggester = (*Suggester)(nil)

func NewSuggester(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Suggester {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Suggester{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Suggester) Suggest(ctx context.Context, headers []string, sample []*ingest.RawRow) (*ai.MappingSuggestion, error) {
	if len(headers) == 0 {
		return nil, errors.New("headers are required")
	}
	if len(sample) > ai.MaxSampleRows {
		sample = sample[:ai.MaxSampleRows]
	}

	message, err := buildMessage(headers, sample)
	if err != nil {
		return nil, err
	}
	system := buildSystemPrompt()

	s.logger.Debug("gemini generate content request",
		zap.Int("headers", len(headers)),
		zap.Int("sample_rows", len(sample)),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	suggestion, err := parseResponse(raw, headers)
	if err != nil {
		return nil, err
	}

	if len(suggestion.Discarded) > 0 {
		s.logger.Info("discarded mapping suggestions", zap.Strings("entries", suggestion.Discarded))
	}

	return suggestion, nil
}

func buildSystemPrompt() string {
	var fields strings.Builder
	for _, spec := range mapping.Catalog {
		fmt.Fprintf(&fields, "- %s: %s\n", spec.Field, spec.Label)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Map billing export headers to these fields and answer with a JSON object:\n{{FIELDS}}"
	}
	return strings.ReplaceAll(template, "{{FIELDS}}", strings.TrimRight(fields.String(), "\n"))
}

func buildMessage(headers []string, sample []*ingest.RawRow) (string, error) {
	rows := make([]map[string]string, 0, len(sample))
	for _, row := range sample {
		values := make(map[string]string, row.Len())
		for _, k := range row.Keys() {
			values[k] = row.Value(k)
		}
		rows = append(rows, values)
	}

	payload, err := json.MarshalIndent(map[string]any{
		"headers": headers,
		"rows":    rows,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal mapping request: %w", err)
	}
	return string(payload), nil
}

// parseResponse keeps entries that name a known field and an existing header.
// A header is used by at most one field; later claims are discarded.
func parseResponse(raw string, headers []string) (*ai.MappingSuggestion, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	suggestion := &ai.MappingSuggestion{Mapping: mapping.FieldMapping{}, Raw: raw}
	used := map[string]bool{}
	for _, k := range keys {
		value := coerceString(data[k])
		field, ok := mapping.ParseField(k)
		if !ok {
			suggestion.Discarded = append(suggestion.Discarded, fmt.Sprintf("%s=%s: unknown field", k, value))
			continue
		}
		header, ok := matchHeader(headers, value)
		if !ok {
			suggestion.Discarded = append(suggestion.Discarded, fmt.Sprintf("%s=%s: unknown header", k, value))
			continue
		}
		if used[header] {
			suggestion.Discarded = append(suggestion.Discarded, fmt.Sprintf("%s=%s: header already mapped", k, value))
			continue
		}
		used[header] = true
		suggestion.Mapping[field] = header
	}

	return suggestion, nil
}

func matchHeader(headers []string, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, h := range headers {
		if h == value {
			return h, true
		}
	}
	for _, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), value) {
			return h, true
		}
	}
	return "", false
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
