package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/linguaops/payrecon/internal/matching"
)

// VendorStore is the internal vendor registry. It implements matching.VendorSource.
type VendorStore struct {
	db *gorm.DB
}

func NewVendorStore(db *gorm.DB) *VendorStore {
	return &VendorStore{db: db}
}

// List returns every vendor in registration order.
func (s *VendorStore) List(ctx context.Context) ([]matching.Vendor, error) {
	var models []VendorModel
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	vendors := make([]matching.Vendor, 0, len(models))
	for i := range models {
		vendors = append(vendors, models[i].ToDomain())
	}
	return vendors, nil
}

// Save inserts or replaces vendors. Vendors without an id get a new one,
// which is written back into the slice.
func (s *VendorStore) Save(ctx context.Context, vendors []matching.Vendor) error {
	if len(vendors) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range vendors {
			if strings.TrimSpace(vendors[i].ID) == "" {
				vendors[i].ID = uuid.NewString()
			}
			var m VendorModel
			m.FromDomain(vendors[i])
			upsert := clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "alt_email", "resource_code", "external_supplier_id", "updated_at"}),
			}
			if err := tx.Clauses(upsert).Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
