package mapping

import "sort"

// FieldMapping maps canonical fields to source column names. It may be partial.
type FieldMapping map[Field]string

// Defaults are the values used when a record does not carry its own.
type Defaults struct {
	ServiceType string `json:"serviceType" mapstructure:"service-type"`
	UnitsType   string `json:"unitsType" mapstructure:"units-type"`
	Currency    string `json:"currency" mapstructure:"currency"`
}

// IsEmpty reports whether no field has a column assigned.
func (m FieldMapping) IsEmpty() bool {
	for _, column := range m {
		if column != "" {
			return false
		}
	}
	return true
}

// Column returns the source column for f, or "".
func (m FieldMapping) Column(f Field) string {
	if m == nil {
		return ""
	}
	return m[f]
}

// Clone returns an independent copy without empty entries.
func (m FieldMapping) Clone() FieldMapping {
	out := make(FieldMapping, len(m))
	for f, column := range m {
		if column != "" {
			out[f] = column
		}
	}
	return out
}

// Overlay returns a copy of m where every non-empty entry of over wins.
func (m FieldMapping) Overlay(over FieldMapping) FieldMapping {
	out := m.Clone()
	for f, column := range over {
		if column != "" {
			out[f] = column
		}
	}
	return out
}

// Restrict drops entries pointing to columns that are not among headers and
// returns the dropped fields.
func (m FieldMapping) Restrict(headers []string) (FieldMapping, []Field) {
	known := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		known[h] = struct{}{}
	}

	out := make(FieldMapping, len(m))
	var dropped []Field
	for f, column := range m {
		if column == "" {
			continue
		}
		if _, ok := known[column]; !ok {
			dropped = append(dropped, f)
			continue
		}
		out[f] = column
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	return out, dropped
}

// Merge fills empty defaults from fallback.
func (d Defaults) Merge(fallback Defaults) Defaults {
	if d.ServiceType == "" {
		d.ServiceType = fallback.ServiceType
	}
	if d.UnitsType == "" {
		d.UnitsType = fallback.UnitsType
	}
	if d.Currency == "" {
		d.Currency = fallback.Currency
	}
	return d
}
