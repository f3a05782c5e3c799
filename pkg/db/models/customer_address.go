package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/pkg/types"
)

// CustomerAddress is a saved delivery location offered back to the
// customer as a list selection during the location phase.
type CustomerAddress struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	CustomerPhone string            `gorm:"column:customer_phone;not null;index"`
	Label         string            `gorm:"column:label;not null"`
	AddressText   *string           `gorm:"column:address_text"`
	Location      types.Coordinates `gorm:"column:location;type:geography(Point,4326)"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
