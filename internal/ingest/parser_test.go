package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("tab separated block", func(t *testing.T) {
		text := "Code\tName\nA1\tJane\nA2\tJohn\nA3\tAnna"

		table := Parse(text)

		require.Equal(t, 3, table.Len())
		assert.Equal(t, []string{"Code", "Name"}, table.Headers)
		for _, row := range table.Rows {
			assert.Equal(t, []string{"Code", "Name"}, row.Keys())
		}
		assert.Equal(t, "John", table.Rows[1].Value("Name"))
	})

	t.Run("single line yields empty result", func(t *testing.T) {
		table := Parse("Code\tName")

		assert.True(t, table.Empty())
		assert.Empty(t, table.Headers)
	})

	t.Run("blank lines are discarded", func(t *testing.T) {
		table := Parse("\n\nCode\tName\n\n   \nA1\tJane\n\n")

		require.Equal(t, 1, table.Len())
		assert.Equal(t, "Jane", table.Rows[0].Value("Name"))
	})

	t.Run("comma separated without tabs", func(t *testing.T) {
		table := Parse("Code,Name,Total\nA1,Jane Doe,100")

		require.Equal(t, 1, table.Len())
		assert.Equal(t, "Jane Doe", table.Rows[0].Value("Name"))
		assert.Equal(t, "100", table.Rows[0].Value("Total"))
	})

	t.Run("two or more spaces act as delimiter", func(t *testing.T) {
		table := Parse("Code    Name   Total\nA1  Jane Doe  100")

		require.Equal(t, 1, table.Len())
		assert.Equal(t, []string{"Code", "Name", "Total"}, table.Headers)
		assert.Equal(t, "Jane Doe", table.Rows[0].Value("Name"))
	})

	t.Run("tab header keeps commas in data", func(t *testing.T) {
		table := Parse("Code\tNote\nA1\tone, two")

		assert.Equal(t, "one, two", table.Rows[0].Value("Note"))
	})

	t.Run("header cells are trimmed and unquoted", func(t *testing.T) {
		table := Parse("  \"Code\" \t'Name'\r\nA1\tJane\r\n")

		assert.Equal(t, []string{"Code", "Name"}, table.Headers)
		assert.Equal(t, "Jane", table.Rows[0].Value("Name"))
	})

	t.Run("short rows are padded", func(t *testing.T) {
		table := Parse("Code\tName\tTotal\nA1")

		row := table.Rows[0]
		assert.Equal(t, 3, row.Len())
		v, ok := row.Get("Total")
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("long rows drop extra cells", func(t *testing.T) {
		table := Parse("Code\tName\nA1\tJane\textra")

		assert.Equal(t, 2, table.Rows[0].Len())
	})

	t.Run("empty input", func(t *testing.T) {
		assert.True(t, Parse("").Empty())
	})
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, "\t", Delimiter("a\tb"))
	assert.Equal(t, ` {2,}|,`, Delimiter("a,b"))
}

func TestRawRowKeepsInsertionOrder(t *testing.T) {
	row := NewRawRow(3)
	row.Set("b", "1")
	row.Set("a", "2")
	row.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, row.Keys())
	assert.Equal(t, "3", row.Value("b"))
}

func TestTableSample(t *testing.T) {
	table := Parse("A\n1\n2\n3")

	assert.Len(t, table.Sample(2), 2)
	assert.Len(t, table.Sample(10), 3)
	assert.Nil(t, table.Sample(0))
}
