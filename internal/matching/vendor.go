// Package matching resolves free-text resource identifiers to registry vendors.
package matching

import (
	"context"
	"strings"
)

// Vendor is a record from the internal vendor registry. It is read-only here.
type Vendor struct {
	ID                 string
	FullName           string
	Email              string
	AltEmail           string
	ResourceCode       string
	ExternalSupplierID string
}

// VendorSource lists the internal registry.
type VendorSource interface {
	List(ctx context.Context) ([]Vendor, error)
}

// Vendors is an ordered vendor list.
type Vendors []Vendor

func (vs Vendors) Len() int { return len(vs) }

// FindByID returns the vendor with id, or nil.
func (vs Vendors) FindByID(id string) *Vendor {
	if id == "" {
		return nil
	}
	for i := range vs {
		if vs[i].ID == id {
			return &vs[i]
		}
	}
	return nil
}

// ContactEmail returns the first non-empty address, primary before secondary.
func (v *Vendor) ContactEmail() string {
	if v == nil {
		return ""
	}
	if e := strings.TrimSpace(v.Email); e != "" {
		return e
	}
	return strings.TrimSpace(v.AltEmail)
}
