// Package ingest turns pasted or uploaded billing exports into header + row records.
package ingest

import (
	"regexp"
	"strings"
)

// spaceOrComma is used when the header line has no tab in it.
var spaceOrComma = regexp.MustCompile(` {2,}|,`)

// Parse splits raw text into a Table.
//
// The delimiter is chosen once from the header line: tab when the header contains
// one, otherwise two-or-more spaces or a comma. Mixed delimiters across lines are
// not supported. Input with fewer than two non-blank lines yields an empty Table.
func Parse(text string) *Table {
	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return &Table{}
	}

	split := splitterFor(lines[0])

	rawHeaders := split(lines[0])
	headers := make([]string, 0, len(rawHeaders))
	for _, h := range rawHeaders {
		headers = append(headers, cleanHeader(h))
	}

	rows := make([]*RawRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := split(line)
		row := NewRawRow(len(headers))
		for i, h := range headers {
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			row.Set(h, value)
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}
}

// Delimiter reports which delimiter Parse would use for the given header line.
func Delimiter(header string) string {
	if strings.Contains(header, "\t") {
		return "\t"
	}
	return spaceOrComma.String()
}

func splitterFor(header string) func(string) []string {
	if strings.Contains(header, "\t") {
		return func(line string) []string {
			return strings.Split(line, "\t")
		}
	}
	return func(line string) []string {
		return spaceOrComma.Split(line, -1)
	}
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func cleanHeader(h string) string {
	h = strings.TrimSpace(h)
	if len(h) >= 2 {
		first, last := h[0], h[len(h)-1]
		if (first == '"' || first == '\'') && first == last {
			h = strings.TrimSpace(h[1 : len(h)-1])
		}
	}
	return h
}
