package catalog

import (
	"context"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository loads the published menu rows of a tenant.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListCategories loads active categories with their active items, ordered
// for presentation.
func (r *Repository) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]models.MenuCategory, error) {
	var categories []models.MenuCategory
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("sort_order ASC, name ASC").
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("active = ?", true).Order("name ASC")
		}).
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// ListOptionGroups loads the tenant's option groups with their options.
func (r *Repository) ListOptionGroups(ctx context.Context, tenantID uuid.UUID) ([]models.OptionGroup, error) {
	var groups []models.OptionGroup
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Preload("Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("is_default DESC, name ASC")
		}).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// ListSynonyms loads every synonym phrase of the tenant.
func (r *Repository) ListSynonyms(ctx context.Context, tenantID uuid.UUID) ([]models.Synonym, error) {
	var synonyms []models.Synonym
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&synonyms).Error
	if err != nil {
		return nil, err
	}
	return synonyms, nil
}
