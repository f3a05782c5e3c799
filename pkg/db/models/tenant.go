package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one restaurant account served by the bot. WhatsAppPhoneID is
// the Cloud API phone_number_id used to route inbound webhooks.
type Tenant struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Slug            string    `gorm:"column:slug;not null;uniqueIndex"`
	Phone           *string   `gorm:"column:phone"`
	WhatsAppPhoneID *string   `gorm:"column:whatsapp_phone_id;uniqueIndex"`
	Active          bool      `gorm:"column:active;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
