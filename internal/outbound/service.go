package outbound

import (
	"context"

	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service stages replies. Staging always happens on the caller's
// transaction so a reply and the state change that produced it commit or
// roll back together.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

// NewService validates dependencies and builds the service.
func NewService(repo *Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbound: repository is required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Enqueue stages the messages for one conversation in order.
func (s *Service) Enqueue(ctx context.Context, tx *gorm.DB, tenantID, conversationID uuid.UUID, recipient string, messages ...Message) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "outbound: transaction required")
	}
	repo := s.repo.WithTx(tx)
	for _, message := range messages {
		payload, err := message.ToPayload()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "outbound: encode payload")
		}
		row := models.OutboundMessage{
			ID:             uuid.New(),
			TenantID:       tenantID,
			ConversationID: conversationID,
			Recipient:      recipient,
			Payload:        payload,
			Status:         enums.OutboundStatusPending,
		}
		if err := repo.Insert(ctx, &row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "outbound: stage message")
		}
	}
	if s.logg != nil && len(messages) > 0 {
		s.logg.Info(s.logg.WithConversationID(ctx, conversationID.String()), "outbound messages staged")
	}
	return nil
}
