// Package draft owns the mutable draft order: the merge engine that applies
// extraction results to it and the serialized order-number allocation used
// when the draft is submitted.
package draft

import (
	"context"
	"errors"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists orders, order items and the tenant counters.
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

// FindDraft loads the conversation's draft order with its items, or nil.
func (r *Repository) FindDraft(ctx context.Context, conversationID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND status = ?", conversationID, enums.OrderStatusDraft).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByID loads any order with its items.
func (r *Repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder inserts the order row.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// SaveOrder persists the order row without touching associations.
func (r *Repository) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Save(order).Error
}

// CreateItem inserts one order line.
func (r *Repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// SaveItem persists one order line.
func (r *Repository) SaveItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem removes one order line.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.OrderItem{}, "id = ?", itemID).Error
}

// DeleteOrder removes the order and, via cascade, its lines. Used when a
// merge empties the line set; an empty shell must not survive.
func (r *Repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Delete(&models.OrderItem{}, "order_id = ?", orderID).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Order{}, "id = ?", orderID).Error
}

// NextOrderNumber allocates the tenant's next order number. The in-place
// increment takes the row lock, so two orders confirming concurrently for
// the same tenant can never receive the same number. Must run inside a
// transaction.
func (r *Repository) NextOrderNumber(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx)

	res := tx.Model(&models.TenantCounter{}).
		Where("tenant_id = ?", tenantID).
		UpdateColumn("next_order_number", gorm.Expr("next_order_number + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		counter := models.TenantCounter{TenantID: tenantID, NextOrderNumber: 2}
		if err := tx.Create(&counter).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	var counter models.TenantCounter
	if err := tx.First(&counter, "tenant_id = ?", tenantID).Error; err != nil {
		return 0, err
	}
	return counter.NextOrderNumber - 1, nil
}
