package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists conversations, their message turns, extraction audit
// rows and saved customer addresses.
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

// FindOrCreate loads the conversation for (tenant, phone), creating an
// idle one on first contact.
func (r *Repository) FindOrCreate(ctx context.Context, tenantID uuid.UUID, customerPhone string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_phone = ?", tenantID, customerPhone).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = models.Conversation{
		ID:            uuid.New(),
		TenantID:      tenantID,
		CustomerPhone: customerPhone,
		Phase:         enums.PhaseIdle,
		Status:        enums.ConversationStatusOpen,
	}
	if err := r.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByID loads one conversation.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByActiveOrder locates the conversation referencing the order.
func (r *Repository) FindByActiveOrder(ctx context.Context, orderID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("active_order_id = ?", orderID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Save persists the conversation row.
func (r *Repository) Save(ctx context.Context, conv *models.Conversation) error {
	return r.db.WithContext(ctx).Save(conv).Error
}

// InsertMessage appends one turn.
func (r *Repository) InsertMessage(ctx context.Context, msg *models.ConversationMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// RecentMessages returns the last N turns, oldest first.
func (r *Repository) RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.ConversationMessage, error) {
	var rows []models.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// InsertIntent stores one extraction audit row.
func (r *Repository) InsertIntent(ctx context.Context, intent *models.OrderIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

// LatestIntent returns the newest audit row of the conversation, or nil.
func (r *Repository) LatestIntent(ctx context.Context, conversationID uuid.UUID) (*models.OrderIntent, error) {
	var intent models.OrderIntent
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// AttachIntentFeedback records the agent verdict on an extraction event.
// The audit row is otherwise immutable.
func (r *Repository) AttachIntentFeedback(ctx context.Context, intentID uuid.UUID, feedback enums.IntentFeedback) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.OrderIntent{}).
		Where("id = ?", intentID).
		Updates(map[string]any{"feedback": feedback, "feedback_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListAddresses returns the customer's saved addresses, newest first.
func (r *Repository) ListAddresses(ctx context.Context, tenantID uuid.UUID, customerPhone string) ([]models.CustomerAddress, error) {
	var rows []models.CustomerAddress
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_phone = ?", tenantID, customerPhone).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindAddress loads one saved address.
func (r *Repository) FindAddress(ctx context.Context, id uuid.UUID) (*models.CustomerAddress, error) {
	var row models.CustomerAddress
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
