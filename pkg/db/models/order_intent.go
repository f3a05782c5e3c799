package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/aydinemre/menubot-backend/pkg/types"
)

// OrderIntent is the immutable audit record of one extraction event.
// Only the agent feedback column may change after insert.
type OrderIntent struct {
	ID                     uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID               uuid.UUID             `gorm:"column:tenant_id;type:uuid;not null;index"`
	ConversationID         uuid.UUID             `gorm:"column:conversation_id;type:uuid;not null;index"`
	MessageText            string                `gorm:"column:message_text;not null"`
	RawResult              types.JSONMap         `gorm:"column:raw_result;type:jsonb;serializer:json"`
	Confidence             float64               `gorm:"column:confidence;not null"`
	ClarificationRequested bool                  `gorm:"column:clarification_requested;not null;default:false"`
	CandidateItemIDs       []uuid.UUID           `gorm:"column:candidate_item_ids;type:jsonb;serializer:json"`
	Feedback               *enums.IntentFeedback `gorm:"column:feedback;type:text"`
	FeedbackAt             *time.Time            `gorm:"column:feedback_at"`
	CreatedAt              time.Time             `gorm:"column:created_at;autoCreateTime"`
}
