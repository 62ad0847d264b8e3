package mapping

import "strings"

// Detect guesses a column for every canonical field from the headers alone.
//
// Exact matches on the key, ignoring case and separators, are settled first for
// all fields. Remaining fields then try, in catalog order, a substring match on
// the key or the first token of the field label, and finally the field's regex
// shortlist. A header is assigned to at most one field, so "Resource" taken by
// resource is not also read as a source language. Fields without a hit are left
// out. The result is a convenience default and can be wrong.
func Detect(headers []string) FieldMapping {
	out := make(FieldMapping, len(Catalog))
	taken := make(map[string]bool, len(headers))

	for _, spec := range Catalog {
		if column, ok := exactHeader(spec, headers, taken); ok {
			out[spec.Field] = column
			taken[column] = true
		}
	}

	for _, spec := range Catalog {
		if _, done := out[spec.Field]; done {
			continue
		}
		if column, ok := looseHeader(spec, headers, taken); ok {
			out[spec.Field] = column
			taken[column] = true
		}
	}
	return out
}

func exactHeader(spec Spec, headers []string, taken map[string]bool) (string, bool) {
	key := squash(string(spec.Field))
	for _, h := range headers {
		if !taken[h] && squash(h) == key {
			return h, true
		}
	}
	return "", false
}

func looseHeader(spec Spec, headers []string, taken map[string]bool) (string, bool) {
	key := squash(string(spec.Field))
	token := firstLabelToken(spec.Label)
	for _, h := range headers {
		if taken[h] {
			continue
		}
		squashed := squash(h)
		if squashed == "" {
			continue
		}
		if strings.Contains(squashed, key) || (token != "" && strings.Contains(squashed, token)) {
			return h, true
		}
	}

	if spec.Pattern != nil {
		for _, h := range headers {
			if !taken[h] && spec.Pattern.MatchString(h) {
				return h, true
			}
		}
	}

	return "", false
}
