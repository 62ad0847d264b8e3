package matching

import (
	"strings"

	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/invoice"
)

// Step names the cascade step that produced a match.
type Step string

const (
	MatchFullName     Step = "full_name"
	MatchEmail        Step = "email"
	MatchResourceCode Step = "resource_code"
	MatchAltEmail     Step = "alt_email"
	MatchSupplierID   Step = "supplier_id"
	MatchNameTokens   Step = "name_tokens"
)

// Cascade is the fixed order in which steps are tried. Operators read which
// step matched, so the order is part of the contract.
var Cascade = []Step{
	MatchFullName,
	MatchEmail,
	MatchResourceCode,
	MatchAltEmail,
	MatchSupplierID,
	MatchNameTokens,
}

// Match is a resolved vendor and the step that found it.
type Match struct {
	Vendor Vendor
	Step   Step
}

// Resolver matches resources against a fixed vendor list.
type Resolver struct {
	vendors Vendors
	logger  *zap.Logger
}

func NewResolver(vendors []Vendor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{vendors: vendors, logger: logger}
}

func (r *Resolver) Vendors() Vendors { return r.vendors }

// Resolve finds at most one vendor for resource. Each step scans the whole
// vendor list before the next step is tried; comparisons are trimmed and
// case-insensitive. There is no scoring beyond the step order.
func (r *Resolver) Resolve(resource string) (Match, bool) {
	needle := fold(resource)
	if needle == "" {
		return Match{}, false
	}

	for _, step := range Cascade {
		for _, v := range r.vendors {
			if matches(step, needle, v) {
				return Match{Vendor: v, Step: step}, true
			}
		}
	}
	return Match{}, false
}

// Apply resolves every record and stores the outcome on it.
func (r *Resolver) Apply(records invoice.Records) {
	matched := 0
	for _, rec := range records {
		m, ok := r.Resolve(rec.Resource)
		if !ok {
			rec.FreelancerID = ""
			rec.FreelancerMatched = false
			rec.MatchedBy = ""
			r.logger.Debug("resource not resolved",
				zap.String("invoice_code", rec.InvoiceCode),
				zap.String("resource", rec.Resource),
			)
			continue
		}
		rec.FreelancerID = m.Vendor.ID
		rec.FreelancerMatched = true
		rec.MatchedBy = string(m.Step)
		matched++
	}

	r.logger.Info("resources resolved",
		zap.Int("records", len(records)),
		zap.Int("matched", matched),
		zap.Int("unmatched", len(records)-matched),
	)
}

func matches(step Step, needle string, v Vendor) bool {
	switch step {
	case MatchFullName:
		return equal(needle, v.FullName)
	case MatchEmail:
		return equal(needle, v.Email)
	case MatchResourceCode:
		return equal(needle, v.ResourceCode)
	case MatchAltEmail:
		return equal(needle, v.AltEmail)
	case MatchSupplierID:
		return equal(needle, v.ExternalSupplierID)
	case MatchNameTokens:
		tokens := strings.Fields(needle)
		if len(tokens) < 2 {
			return false
		}
		name := fold(v.FullName)
		return name != "" && strings.Contains(name, tokens[0]) && strings.Contains(name, tokens[len(tokens)-1])
	default:
		return false
	}
}

func equal(needle, value string) bool {
	value = fold(value)
	return value != "" && value == needle
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
