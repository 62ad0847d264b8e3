package filtering

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/linguaops/payrecon/internal/invoice"
)

// ExcludedInvoices is the content of an exclude file.
type ExcludedInvoices struct {
	Items []*ExcludedInvoice
}

type ExcludedInvoice struct {
	InvoiceCode string
	Resource    string
	TotalCost   string
	ExcludedAt  time.Time
}

// ExcludedFromRecords converts records into exclude file entries.
func ExcludedFromRecords(records invoice.Records) *ExcludedInvoices {
	now := time.Now().UTC()
	excluded := &ExcludedInvoices{}
	for _, r := range records {
		excluded.Items = append(excluded.Items, &ExcludedInvoice{
			InvoiceCode: r.InvoiceCode,
			Resource:    r.Resource,
			TotalCost:   r.TotalCost.String(),
			ExcludedAt:  now,
		})
	}
	return excluded
}

// LoadExcluded reads an exclude file. A missing or empty file holds no entries.
func LoadExcluded(path string) (*ExcludedInvoices, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedInvoices{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedInvoices{}, nil
	}

	var excluded ExcludedInvoices
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds entries whose invoice code is not yet listed and reports how many were added.
func (e *ExcludedInvoices) Append(s *ExcludedInvoices) int {
	have := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		have[item.InvoiceCode] = struct{}{}
	}

	added := 0
	for _, item := range s.Items {
		if _, ok := have[item.InvoiceCode]; ok {
			continue
		}
		have[item.InvoiceCode] = struct{}{}
		e.Items = append(e.Items, item)
		added++
	}
	return added
}

func (e *ExcludedInvoices) InvoiceCodes() []string {
	codes := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		codes = append(codes, item.InvoiceCode)
	}
	return codes
}

func (e *ExcludedInvoices) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
