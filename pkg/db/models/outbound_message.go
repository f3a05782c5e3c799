package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/aydinemre/menubot-backend/pkg/types"
)

// OutboundMessage is one reply staged for delivery. Rows are written in
// the same transaction as the phase/order mutation so a crash between
// state write and send never loses the customer's reply.
type OutboundMessage struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;index"`
	ConversationID uuid.UUID            `gorm:"column:conversation_id;type:uuid;not null;index"`
	Recipient      string               `gorm:"column:recipient;not null"`
	Payload        types.JSONMap        `gorm:"column:payload;type:jsonb;serializer:json"`
	Status         enums.OutboundStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Attempts       int                  `gorm:"column:attempts;not null;default:0"`
	LastError      *string              `gorm:"column:last_error"`
	SentAt         *time.Time           `gorm:"column:sent_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
