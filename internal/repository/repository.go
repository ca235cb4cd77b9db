package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
)

var ErrNotFound = errors.New("not found")

// Schema creates the module tables on first use. AutoMigrate only adds
// missing tables and columns, so running it against an older layout keeps
// existing rows.
type Schema struct {
	db    *gorm.DB
	mu    sync.Mutex
	ready bool
}

func NewSchema(db *gorm.DB) *Schema {
	return &Schema{db: db}
}

// Ensure migrates once per process; a failed attempt is retried on the next call
func (s *Schema) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.ServerConfig{},
		&models.ServiceData{},
		&models.ModuleCallLog{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	s.ready = true
	return nil
}

// normalizePath trims the value and forces one leading slash; blank means unset
func normalizePath(p string) *string {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil
	}
	p = "/" + strings.TrimLeft(p, "/")
	return &p
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(p *string) *string {
	if p == nil {
		return nil
	}
	return nonEmpty(*p)
}

func positive(p *int) *int {
	if p == nil || *p <= 0 {
		return nil
	}
	v := *p
	return &v
}
