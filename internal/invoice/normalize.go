package invoice

import (
	"strings"

	"github.com/linguaops/payrecon/internal/ingest"
	"github.com/linguaops/payrecon/internal/mapping"
)

// Normalize turns raw rows into records.
//
// When any mapping entry is set the mapping is authoritative and unmapped fields
// stay empty. With an empty mapping every field is looked up under its
// conventional header spellings instead. Numbers parse leniently: bad values
// become zero and are left for validation to reject.
func Normalize(rows []*ingest.RawRow, m mapping.FieldMapping, d mapping.Defaults) Records {
	useMapping := !m.IsEmpty()
	records := make(Records, 0, len(rows))

	for i, row := range rows {
		value := func(f mapping.Field) string {
			if useMapping {
				column := m.Column(f)
				if column == "" {
					return ""
				}
				return strings.TrimSpace(row.Value(column))
			}
			return fallbackValue(row, f)
		}

		records = append(records, &Record{
			Line:           i + 1,
			InvoiceCode:    value(mapping.FieldInvoiceCode),
			Resource:       value(mapping.FieldResource),
			Status:         value(mapping.FieldStatus),
			TotalCost:      parseDecimal(value(mapping.FieldTotalCost)),
			Currency:       normalizeCurrency(value(mapping.FieldCurrency), d.Currency),
			VAT:            parseDecimal(value(mapping.FieldVAT)),
			DateSent:       value(mapping.FieldDateSent),
			DatePaid:       value(mapping.FieldDatePaid),
			Project:        value(mapping.FieldProject),
			SourceLanguage: value(mapping.FieldSourceLanguage),
			TargetLanguage: value(mapping.FieldTargetLanguage),
			WordCount:      parseInt(value(mapping.FieldWordCount)),
			Rate:           parseDecimal(value(mapping.FieldRate)),
			Service:        value(mapping.FieldService),
		})
	}

	return records
}

func fallbackValue(row *ingest.RawRow, f mapping.Field) string {
	spec, ok := mapping.Lookup(f)
	if !ok {
		return ""
	}

	keys := row.Keys()
	for _, spelling := range spec.Fallback {
		if v, ok := row.Get(spelling); ok {
			return strings.TrimSpace(v)
		}
		for _, k := range keys {
			if strings.EqualFold(strings.TrimSpace(k), spelling) {
				return strings.TrimSpace(row.Value(k))
			}
		}
	}
	return ""
}

// normalizeCurrency returns a supported currency, falling back to def and then
// to the first supported currency.
func normalizeCurrency(raw, def string) string {
	if c, ok := CanonicalCurrency(raw); ok {
		return c
	}
	if c, ok := CanonicalCurrency(def); ok {
		return c
	}
	return Currencies[0]
}
