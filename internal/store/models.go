package store

import (
	"time"

	"github.com/linguaops/payrecon/internal/mapping"
	"github.com/linguaops/payrecon/internal/matching"
)

type TemplateModel struct {
	ID          string               `gorm:"type:varchar(36);primaryKey"`
	Name        string               `gorm:"not null;index"`
	Mapping     mapping.FieldMapping `gorm:"serializer:json"`
	ServiceType string
	UnitsType   string
	Currency    string
	IsDefault   bool `gorm:"not null;default:false"`
	LastUsedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (TemplateModel) TableName() string { return "mapping_templates" }

func (m *TemplateModel) ToDomain() *mapping.Template {
	return &mapping.Template{
		ID:      m.ID,
		Name:    m.Name,
		Mapping: m.Mapping.Clone(),
		Defaults: mapping.Defaults{
			ServiceType: m.ServiceType,
			UnitsType:   m.UnitsType,
			Currency:    m.Currency,
		},
		IsDefault:  m.IsDefault,
		LastUsedAt: m.LastUsedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (m *TemplateModel) FromDomain(t *mapping.Template) {
	m.ID = t.ID
	m.Name = t.Name
	m.Mapping = t.Mapping.Clone()
	m.ServiceType = t.Defaults.ServiceType
	m.UnitsType = t.Defaults.UnitsType
	m.Currency = t.Defaults.Currency
	m.IsDefault = t.IsDefault
	m.LastUsedAt = t.LastUsedAt
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// apply copies the set fields of patch onto m.
func (m *TemplateModel) apply(patch mapping.TemplatePatch) {
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Mapping != nil {
		m.Mapping = patch.Mapping.Clone()
	}
	if patch.Defaults != nil {
		m.ServiceType = patch.Defaults.ServiceType
		m.UnitsType = patch.Defaults.UnitsType
		m.Currency = patch.Defaults.Currency
	}
	if patch.IsDefault != nil {
		m.IsDefault = *patch.IsDefault
	}
	if patch.LastUsedAt != nil {
		used := *patch.LastUsedAt
		m.LastUsedAt = &used
	}
}

type VendorModel struct {
	ID                 string `gorm:"type:varchar(36);primaryKey"`
	FullName           string `gorm:"not null;index"`
	Email              string `gorm:"index"`
	AltEmail           string
	ResourceCode       string `gorm:"index"`
	ExternalSupplierID string `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (VendorModel) TableName() string { return "vendors" }

func (m *VendorModel) ToDomain() matching.Vendor {
	return matching.Vendor{
		ID:                 m.ID,
		FullName:           m.FullName,
		Email:              m.Email,
		AltEmail:           m.AltEmail,
		ResourceCode:       m.ResourceCode,
		ExternalSupplierID: m.ExternalSupplierID,
	}
}

func (m *VendorModel) FromDomain(v matching.Vendor) {
	m.ID = v.ID
	m.FullName = v.FullName
	m.Email = v.Email
	m.AltEmail = v.AltEmail
	m.ResourceCode = v.ResourceCode
	m.ExternalSupplierID = v.ExternalSupplierID
}
