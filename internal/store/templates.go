package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/linguaops/payrecon/internal/mapping"
)

// TemplateStore implements mapping.TemplateStore and mapping.Transactor.
type TemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) List(ctx context.Context) ([]*mapping.Template, error) {
	var models []TemplateModel
	if err := s.db.WithContext(ctx).Order("created_at ASC, name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	templates := make([]*mapping.Template, 0, len(models))
	for i := range models {
		templates = append(templates, models[i].ToDomain())
	}
	return templates, nil
}

func (s *TemplateStore) Create(ctx context.Context, t *mapping.Template) error {
	var m TemplateModel
	m.FromDomain(t)
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *TemplateStore) Update(ctx context.Context, id string, patch mapping.TemplatePatch) error {
	var m TemplateModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", mapping.ErrTemplateNotFound, id)
		}
		return err
	}

	m.apply(patch)
	m.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(&m).Error
}

func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&TemplateModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", mapping.ErrTemplateNotFound, id)
	}
	return nil
}

// InTx runs fn against a store bound to one transaction.
func (s *TemplateStore) InTx(ctx context.Context, fn func(mapping.TemplateStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TemplateStore{db: tx})
	})
}
