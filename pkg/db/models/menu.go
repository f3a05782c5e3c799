package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuCategory groups menu items for presentation and category matching.
type MenuCategory struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0"`
	Active    bool      `gorm:"column:active;not null"`
	Items     []MenuItem `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// MenuItem is one orderable catalog entry.
type MenuItem struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID       uuid.UUID   `gorm:"column:tenant_id;type:uuid;not null;index"`
	CategoryID     uuid.UUID   `gorm:"column:category_id;type:uuid;not null;index"`
	Name           string      `gorm:"column:name;not null"`
	Description    *string     `gorm:"column:description"`
	BasePriceKurus int         `gorm:"column:base_price_kurus;not null"`
	Active         bool        `gorm:"column:active;not null"`
	OptionGroupIDs []uuid.UUID `gorm:"column:option_group_ids;type:jsonb;serializer:json"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// OptionGroup defines a set of choices attachable to menu items.
type OptionGroup struct {
	ID        uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID    `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name      string       `gorm:"column:name;not null"`
	Type      string       `gorm:"column:type;not null;default:'single'"`
	Required  bool         `gorm:"column:required;not null;default:false"`
	MinSelect int          `gorm:"column:min_select;not null;default:0"`
	MaxSelect int          `gorm:"column:max_select;not null;default:1"`
	Options   []MenuOption `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// MenuOption is one selectable choice within an option group.
type MenuOption struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID         uuid.UUID `gorm:"column:group_id;type:uuid;not null;index"`
	Name            string    `gorm:"column:name;not null"`
	PriceDeltaKurus int       `gorm:"column:price_delta_kurus;not null;default:0"`
	IsDefault       bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Synonym maps a colloquial phrase to a menu item with a match weight.
type Synonym struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Phrase    string    `gorm:"column:phrase;not null"`
	MapsToID  uuid.UUID `gorm:"column:maps_to_id;type:uuid;not null;index"`
	Weight    float64   `gorm:"column:weight;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
