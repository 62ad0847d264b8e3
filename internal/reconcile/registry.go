package reconcile

import (
	"strings"

	"github.com/linguaops/payrecon/internal/matching"
	"github.com/linguaops/payrecon/internal/platform"
)

// RegistryCandidates returns a vendor for every roster member the registry does
// not know yet, in roster order. A member is known when it is linked to a
// registry vendor, when a vendor carries its id as external supplier id, or when
// a vendor shares its email. The candidates have no id.
func RegistryCandidates(roster *platform.Roster, vendors matching.Vendors) []matching.Vendor {
	if roster.Len() == 0 {
		return nil
	}

	supplierIDs := make(map[string]struct{}, len(vendors))
	emails := make(map[string]struct{}, len(vendors)*2)
	for _, v := range vendors {
		if id := strings.TrimSpace(v.ExternalSupplierID); id != "" {
			supplierIDs[strings.ToLower(id)] = struct{}{}
		}
		for _, e := range []string{v.Email, v.AltEmail} {
			if e = strings.TrimSpace(e); e != "" {
				emails[strings.ToLower(e)] = struct{}{}
			}
		}
	}

	var candidates []matching.Vendor
	for _, m := range roster.Items {
		if m.MatchedVendorID != "" && vendors.FindByID(m.MatchedVendorID) != nil {
			continue
		}
		id := strings.TrimSpace(m.ExternalID)
		if _, ok := supplierIDs[strings.ToLower(id)]; ok && id != "" {
			continue
		}
		email := strings.TrimSpace(m.Email)
		if _, ok := emails[strings.ToLower(email)]; ok && email != "" {
			continue
		}
		if id == "" && email == "" {
			continue
		}

		candidates = append(candidates, matching.Vendor{
			FullName:           strings.TrimSpace(m.Name),
			Email:              email,
			ExternalSupplierID: id,
		})
		// Duplicate roster entries yield one candidate.
		if id != "" {
			supplierIDs[strings.ToLower(id)] = struct{}{}
		}
		if email != "" {
			emails[strings.ToLower(email)] = struct{}{}
		}
	}
	return candidates
}
