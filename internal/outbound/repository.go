package outbound

import (
	"context"
	"time"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository persists outbox rows.
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

// Insert stages one row. Callers pass a tx-bound repository so staging is
// atomic with the state mutation that produced the reply.
func (r *Repository) Insert(ctx context.Context, row *models.OutboundMessage) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// FetchPending returns the oldest pending rows up to limit.
func (r *Repository) FetchPending(ctx context.Context, limit int) ([]models.OutboundMessage, error) {
	var rows []models.OutboundMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OutboundStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSent finalizes a delivered row.
func (r *Repository) MarkSent(ctx context.Context, row *models.OutboundMessage) error {
	now := time.Now().UTC()
	row.Status = enums.OutboundStatusSent
	row.SentAt = &now
	row.LastError = nil
	return r.db.WithContext(ctx).Save(row).Error
}

// MarkAttemptFailed records a delivery failure, terminally once the attempt
// budget is spent.
func (r *Repository) MarkAttemptFailed(ctx context.Context, row *models.OutboundMessage, sendErr error, maxAttempts int) error {
	row.Attempts++
	message := sendErr.Error()
	row.LastError = &message
	if row.Attempts >= maxAttempts {
		row.Status = enums.OutboundStatusFailed
	}
	return r.db.WithContext(ctx).Save(row).Error
}
