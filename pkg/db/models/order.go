package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/aydinemre/menubot-backend/pkg/types"
)

// Order is one purchase attempt. TotalKurus always equals the sum of
// qty×unit price over current items; the merge engine recomputes it on
// every write and deletes the row entirely when the line set empties.
type Order struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID             uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;index"`
	ConversationID       uuid.UUID            `gorm:"column:conversation_id;type:uuid;not null;index"`
	StoreID              *uuid.UUID           `gorm:"column:store_id;type:uuid"`
	Status               enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'draft'"`
	PaymentMethod        *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	TotalKurus           int                  `gorm:"column:total_kurus;not null;default:0"`
	DeliveryFeeKurus     int                  `gorm:"column:delivery_fee_kurus;not null;default:0"`
	OrderNumber          *int64               `gorm:"column:order_number"`
	OrderNotes           *string              `gorm:"column:order_notes"`
	DeliveryLocation     *types.Coordinates   `gorm:"column:delivery_location;type:geography(Point,4326)"`
	DeliveryAddressText  *string              `gorm:"column:delivery_address_text"`
	PaymentLinkURL       *string              `gorm:"column:payment_link_url"`
	PaymentLinkCreatedAt *time.Time           `gorm:"column:payment_link_created_at"`
	Items                []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt          *time.Time           `gorm:"column:confirmed_at"`
	CancelledAt          *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one logical line. Identity is menu item + canonical option
// set (OptionsKey); two lines with the same identity must be merged.
type OrderItem struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID     uuid.UUID              `gorm:"column:menu_item_id;type:uuid;not null"`
	Name           string                 `gorm:"column:name;not null"`
	Quantity       int                    `gorm:"column:quantity;not null"`
	UnitPriceKurus int                    `gorm:"column:unit_price_kurus;not null"`
	Options        types.OptionSelections `gorm:"column:options;type:jsonb;serializer:json"`
	OptionsKey     string                 `gorm:"column:options_key;not null;default:''"`
	Notes          *string                `gorm:"column:notes"`
	Extras         types.StringSlice      `gorm:"column:extras;type:jsonb;serializer:json"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotalKurus returns qty × unit price for the line.
func (i OrderItem) LineTotalKurus() int {
	return i.Quantity * i.UnitPriceKurus
}

// TenantCounter backs serialized order-number allocation per tenant.
type TenantCounter struct {
	TenantID        uuid.UUID `gorm:"column:tenant_id;type:uuid;primaryKey"`
	NextOrderNumber int64     `gorm:"column:next_order_number;not null;default:1"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
