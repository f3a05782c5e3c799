package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/pkg/types"
)

// Store is a physical location a tenant delivers from.
type Store struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID             uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name                 string            `gorm:"column:name;not null"`
	AddressText          *string           `gorm:"column:address_text"`
	Location             types.Coordinates `gorm:"column:location;type:geography(Point,4326)"`
	DeliveryRadiusMeters int               `gorm:"column:delivery_radius_meters;not null;default:0"`
	MinBasketKurus       int               `gorm:"column:min_basket_kurus;not null;default:0"`
	DeliveryFeeKurus     int               `gorm:"column:delivery_fee_kurus;not null;default:0"`
	Active               bool              `gorm:"column:active;not null"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
