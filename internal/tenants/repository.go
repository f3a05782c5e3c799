// Package tenants resolves restaurant accounts for webhook routing.
package tenants

import (
	"context"
	"errors"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository loads tenant rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ResolveWhatsAppPhone maps a Cloud API phone_number_id to the active
// tenant it belongs to.
func (r *Repository) ResolveWhatsAppPhone(ctx context.Context, phoneID string) (*models.Tenant, error) {
	if phoneID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenants: phone id is required")
	}
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("whatsapp_phone_id = ? AND active = ?", phoneID, true).
		First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenants: unknown whatsapp phone id")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tenants: lookup failed")
	}
	return &tenant, nil
}

// FindBySlug loads one active tenant by its slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Where("slug = ? AND active = ?", slug, true).
		First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenants: unknown slug")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tenants: lookup failed")
	}
	return &tenant, nil
}
