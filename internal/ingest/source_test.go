package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type stubObjects struct {
	bucket, key string
	data        []byte
	err         error
}

func (s *stubObjects) Fetch(_ context.Context, bucket, key string) ([]byte, error) {
	s.bucket, s.key = bucket, key
	return s.data, s.err
}

func TestReaderReadText(t *testing.T) {
	ctx := context.Background()

	t.Run("stdin", func(t *testing.T) {
		r := NewReader(nil, nil)
		r.Stdin = strings.NewReader("A\tB\n1\t2")

		text, err := r.ReadText(ctx, "-")

		require.NoError(t, err)
		assert.Equal(t, "A\tB\n1\t2", text)
	})

	t.Run("local file with BOM", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "export.tsv")
		require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFA\tB\n1\t2"), 0o600))

		text, err := NewReader(nil, nil).ReadText(ctx, path)

		require.NoError(t, err)
		assert.Equal(t, "A\tB\n1\t2", text)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewReader(nil, nil).ReadText(ctx, filepath.Join(t.TempDir(), "nope.tsv"))

		assert.Error(t, err)
	})

	t.Run("upload storage", func(t *testing.T) {
		objects := &stubObjects{data: []byte("A\tB\n1\t2")}

		text, err := NewReader(nil, objects).ReadText(ctx, "s3://uploads/2024/invoices.tsv")

		require.NoError(t, err)
		assert.Equal(t, "uploads", objects.bucket)
		assert.Equal(t, "2024/invoices.tsv", objects.key)
		assert.Contains(t, text, "A\tB")
	})

	t.Run("upload storage not configured", func(t *testing.T) {
		_, err := NewReader(nil, nil).ReadText(ctx, "s3://uploads/x.tsv")

		assert.ErrorIs(t, err, ErrUnsupportedSource)
	})

	t.Run("malformed object reference", func(t *testing.T) {
		_, err := NewReader(nil, &stubObjects{}).ReadText(ctx, "s3://uploads")

		assert.ErrorIs(t, err, ErrUnsupportedSource)
	})

	t.Run("upload storage failure surfaces", func(t *testing.T) {
		boom := errors.New("access denied")

		_, err := NewReader(nil, &stubObjects{err: boom}).ReadText(ctx, "s3://uploads/x.tsv")

		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := NewReader(nil, nil).ReadText(ctx, "  ")

		assert.ErrorIs(t, err, ErrUnsupportedSource)
	})
}

func TestDecodeTextWindows1252(t *testing.T) {
	// "Zoë" in Windows-1252
	text, err := DecodeText([]byte{'Z', 'o', 0xEB})

	require.NoError(t, err)
	assert.Equal(t, "Zoë", text)
}

func TestWorkbookText(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"InvoiceCode", "Resource", "TotalCost"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"INV001", "Jane\tDoe", 100}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := WorkbookText(buf)
	require.NoError(t, err)

	table := Parse(text)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, []string{"InvoiceCode", "Resource", "TotalCost"}, table.Headers)
	assert.Equal(t, "Jane Doe", table.Rows[0].Value("Resource"))
	assert.Equal(t, "100", table.Rows[0].Value("TotalCost"))
}

type stubGetter struct {
	input *s3.GetObjectInput
}

func (s *stubGetter) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	s.input = params
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("A\n1"))}, nil
}

func TestS3FetcherFetch(t *testing.T) {
	getter := &stubGetter{}
	fetcher := &S3Fetcher{client: getter, logger: zap.NewNop()}

	data, err := fetcher.Fetch(context.Background(), "uploads", "a.tsv")

	require.NoError(t, err)
	assert.Equal(t, "A\n1", string(data))
	assert.Equal(t, "uploads", *getter.input.Bucket)
	assert.Equal(t, "a.tsv", *getter.input.Key)
}
