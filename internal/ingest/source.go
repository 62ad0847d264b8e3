package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	stdinRef = "-"
	s3Scheme = "s3://"
)

// ErrUnsupportedSource is returned for references no configured reader can open.
var ErrUnsupportedSource = errors.New("unsupported source")

// ObjectFetcher reads an uploaded object from upload storage.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// Reader loads pasted text or uploaded files and returns decoded text ready for Parse.
type Reader struct {
	Stdin   io.Reader
	Objects ObjectFetcher
	logger  *zap.Logger
}

func NewReader(logger *zap.Logger, objects ObjectFetcher) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		Stdin:   os.Stdin,
		Objects: objects,
		logger:  logger,
	}
}

// ReadText resolves ref to decoded text. ref is "-" for stdin, an s3://bucket/key
// reference for upload storage, or a local path. Workbooks (.xlsx) are rendered as
// tab-separated text.
func (r *Reader) ReadText(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrUnsupportedSource)
	}

	data, err := r.read(ctx, ref)
	if err != nil {
		return "", err
	}

	r.logger.Debug("source loaded", zap.String("source", ref), zap.Int("bytes", len(data)))

	if isWorkbook(ref) {
		return WorkbookText(bytes.NewReader(data))
	}

	return DecodeText(data)
}

func (r *Reader) read(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == stdinRef:
		if r.Stdin == nil {
			return nil, fmt.Errorf("%w: stdin is not available", ErrUnsupportedSource)
		}
		return io.ReadAll(r.Stdin)
	case strings.HasPrefix(ref, s3Scheme):
		if r.Objects == nil {
			return nil, fmt.Errorf("%w: upload storage is not configured for %s", ErrUnsupportedSource, ref)
		}
		bucket, key, err := splitObjectRef(ref)
		if err != nil {
			return nil, err
		}
		data, err := r.Objects.Fetch(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", ref, err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", ref, err)
		}
		return data, nil
	}
}

// DecodeText strips a UTF-8 BOM and decodes non UTF-8 input as Windows-1252,
// which is what spreadsheet exports on office machines usually are.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.Windows1252.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decoding windows-1252 text: %w", err)
	}
	return string(decoded), nil
}

func splitObjectRef(ref string) (string, string, error) {
	rest := strings.TrimPrefix(ref, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: expected s3://bucket/key, got %q", ErrUnsupportedSource, ref)
	}
	return bucket, key, nil
}

func isWorkbook(ref string) bool {
	return strings.EqualFold(filepath.Ext(ref), ".xlsx")
}
