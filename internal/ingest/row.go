package ingest

// RawRow is a single ingested data line keyed by source column name.
// Keys keep the order in which they were first set.
type RawRow struct {
	keys   []string
	values map[string]string
}

// NewRawRow creates an empty row with room for n columns.
func NewRawRow(n int) *RawRow {
	return &RawRow{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// Set stores value under key. Setting an existing key keeps its position.
func (r *RawRow) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key and whether the column exists.
func (r *RawRow) Get(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value for key or an empty string.
func (r *RawRow) Value(key string) string {
	v, _ := r.Get(key)
	return v
}

func (r *RawRow) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *RawRow) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Table is the parser output: the header cells and one RawRow per data line.
type Table struct {
	Headers []string
	Rows    []*RawRow
}

// Empty reports whether nothing was parsed.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Sample returns up to n rows from the top of the table.
func (t *Table) Sample(n int) []*RawRow {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}
