package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/aydinemre/menubot-backend/pkg/types"
)

// GeoCheckResult caches the last service-area verdict for a conversation.
type GeoCheckResult struct {
	WithinArea       bool              `json:"within_area"`
	StoreID          *uuid.UUID        `json:"store_id,omitempty"`
	Location         types.Coordinates `json:"location"`
	MinBasketKurus   int               `json:"min_basket_kurus"`
	DeliveryFeeKurus int               `json:"delivery_fee_kurus"`
	CheckedAt        time.Time         `json:"checked_at"`
}

// Conversation is the per-customer workflow record. One row per
// (tenant, customer phone); created on first inbound message, closed but
// never deleted. At most one non-terminal draft order is referenced by
// ActiveOrderID at a time.
type Conversation struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:idx_conversations_tenant_customer"`
	CustomerPhone string                   `gorm:"column:customer_phone;not null;uniqueIndex:idx_conversations_tenant_customer"`
	Phase         enums.ConversationPhase  `gorm:"column:phase;type:text;not null;default:'idle'"`
	Status        enums.ConversationStatus `gorm:"column:status;type:text;not null;default:'open'"`
	ActiveOrderID *uuid.UUID               `gorm:"column:active_order_id;type:uuid"`
	LastGeoCheck  *GeoCheckResult          `gorm:"column:last_geo_check;type:jsonb;serializer:json"`
	LastMessageAt *time.Time               `gorm:"column:last_message_at"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// ConversationMessage is one turn of the exchange, either direction.
// Extraction context reads recent rows instead of any in-process cache.
type ConversationMessage struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID         `gorm:"column:conversation_id;type:uuid;not null;index"`
	Direction      string            `gorm:"column:direction;not null"`
	Kind           enums.MessageKind `gorm:"column:kind;type:text;not null;default:'text'"`
	Body           string            `gorm:"column:body;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}

const (
	MessageDirectionInbound  = "inbound"
	MessageDirectionOutbound = "outbound"
)
