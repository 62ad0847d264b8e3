package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNameRequired     = errors.New("template name is required")
	ErrTemplateNotFound = errors.New("template not found")
)

// Template is a named, reusable mapping plus default values.
type Template struct {
	ID         string
	Name       string
	Mapping    FieldMapping
	Defaults   Defaults
	IsDefault  bool
	LastUsedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TemplatePatch is a partial update. Nil fields are left untouched.
type TemplatePatch struct {
	Name       *string
	Mapping    FieldMapping
	Defaults   *Defaults
	IsDefault  *bool
	LastUsedAt *time.Time
}

// TemplateStore is plain CRUD over persisted templates. It enforces nothing.
type TemplateStore interface {
	List(ctx context.Context) ([]*Template, error)
	Create(ctx context.Context, t *Template) error
	Update(ctx context.Context, id string, patch TemplatePatch) error
	Delete(ctx context.Context, id string) error
}

// Transactor is implemented by stores that can run several writes atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(TemplateStore) error) error
}

// TemplateService keeps the template invariants on top of a TemplateStore:
// names are required and at most one template is the default.
type TemplateService struct {
	store  TemplateStore
	logger *zap.Logger
	now    func() time.Time
}

func NewTemplateService(store TemplateStore, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *TemplateService) List(ctx context.Context) ([]*Template, error) {
	return s.store.List(ctx)
}

// Save persists mapping and defaults as a new template.
func (s *TemplateService) Save(ctx context.Context, name string, m FieldMapping, d Defaults, makeDefault bool) (*Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := s.now()
	t := &Template{
		ID:        uuid.NewString(),
		Name:      name,
		Mapping:   m.Clone(),
		Defaults:  d,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating template %q: %w", name, err)
	}

	s.logger.Info("template saved", zap.String("template", name), zap.String("id", t.ID))

	if makeDefault {
		if err := s.SetDefault(ctx, t.ID); err != nil {
			return t, err
		}
		t.IsDefault = true
	}

	return t, nil
}

// SetDefault makes id the only default template. Other defaults are cleared
// before the target is set, so an interruption can leave no default but never
// two. Stores implementing Transactor run both steps in one transaction; for
// the rest, a failure to set the target restores the previously cleared defaults.
func (s *TemplateService) SetDefault(ctx context.Context, id string) error {
	if tx, ok := s.store.(Transactor); ok {
		if err := tx.InTx(ctx, func(store TemplateStore) error {
			_, err := switchDefault(ctx, store, id)
			return err
		}); err != nil {
			return fmt.Errorf("setting default template: %w", err)
		}
		s.logger.Info("default template set", zap.String("id", id))
		return nil
	}

	cleared, err := switchDefault(ctx, s.store, id)
	if err == nil {
		s.logger.Info("default template set", zap.String("id", id))
		return nil
	}

	for _, prev := range cleared {
		if rerr := s.store.Update(ctx, prev, TemplatePatch{IsDefault: boolPtr(true)}); rerr != nil {
			s.logger.Error("restoring previous default template", zap.String("id", prev), zap.Error(rerr))
		}
	}
	return fmt.Errorf("setting default template: %w", err)
}

// switchDefault clears every default other than id, then flags id. It returns
// the ids it cleared.
func switchDefault(ctx context.Context, store TemplateStore, id string) ([]string, error) {
	templates, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	found := false
	for _, t := range templates {
		if t.ID == id {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}

	var cleared []string
	for _, t := range templates {
		if t.ID == id || !t.IsDefault {
			continue
		}
		if err := store.Update(ctx, t.ID, TemplatePatch{IsDefault: boolPtr(false)}); err != nil {
			return cleared, fmt.Errorf("clearing default on %s: %w", t.ID, err)
		}
		cleared = append(cleared, t.ID)
	}

	if err := store.Update(ctx, id, TemplatePatch{IsDefault: boolPtr(true)}); err != nil {
		return cleared, err
	}
	return cleared, nil
}

// Find returns a copy of the template with the given id or name. Unlike Load
// it leaves the last-used time alone.
func (s *TemplateService) Find(ctx context.Context, nameOrID string) (*Template, error) {
	t, err := s.find(ctx, nameOrID)
	if err != nil {
		return nil, err
	}
	found := *t
	found.Mapping = t.Mapping.Clone()
	return &found, nil
}

// Load returns a copy of the template with the given id or name and touches its
// last-used time.
func (s *TemplateService) Load(ctx context.Context, nameOrID string) (*Template, error) {
	t, err := s.find(ctx, nameOrID)
	if err != nil {
		return nil, err
	}
	return s.use(ctx, t), nil
}

func (s *TemplateService) find(ctx context.Context, nameOrID string) (*Template, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	templates, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	for _, t := range templates {
		if t.ID == nameOrID || strings.EqualFold(t.Name, nameOrID) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, nameOrID)
}

// LoadDefault returns the default template, or ErrTemplateNotFound when none is set.
func (s *TemplateService) LoadDefault(ctx context.Context) (*Template, error) {
	templates, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	for _, t := range templates {
		if t.IsDefault {
			return s.use(ctx, t), nil
		}
	}
	return nil, ErrTemplateNotFound
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting template %s: %w", id, err)
	}
	s.logger.Info("template deleted", zap.String("id", id))
	return nil
}

func (s *TemplateService) use(ctx context.Context, t *Template) *Template {
	loaded := *t
	loaded.Mapping = t.Mapping.Clone()

	now := s.now()
	if err := s.store.Update(ctx, t.ID, TemplatePatch{LastUsedAt: &now}); err != nil {
		s.logger.Warn("touching template last used time", zap.String("id", t.ID), zap.Error(err))
		return &loaded
	}

	loaded.LastUsedAt = &now
	return &loaded
}

func boolPtr(b bool) *bool { return &b }
