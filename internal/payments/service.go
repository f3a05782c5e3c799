// Package payments is the payment-collection boundary: card links come from
// an external initiator, cash is recorded directly, and completion arrives
// asynchronously through a callback.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/google/uuid"
)

// Link is a created payment-collection link.
type Link struct {
	CheckoutURL string
	CreatedAt   time.Time
}

// Callback is the normalized payment-completion notification.
type Callback struct {
	OrderID uuid.UUID
	Success bool
}

// Initiator creates payment-collection links at the provider.
type Initiator interface {
	InitiateCardPayment(ctx context.Context, order *models.Order) (*Link, error)
}

// Service wraps the initiator with the link-expiry policy.
type Service struct {
	initiator  Initiator
	linkExpiry time.Duration
}

// NewService builds the service. A nil initiator means card payments are
// unavailable and every link creation fails in-band.
func NewService(initiator Initiator, cfg config.PaymentsConfig) *Service {
	expiry := cfg.LinkExpiry
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	return &Service{initiator: initiator, linkExpiry: expiry}
}

// CreateCardLink asks the provider for a fresh checkout link.
func (s *Service) CreateCardLink(ctx context.Context, order *models.Order) (*Link, error) {
	if s.initiator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments: no card provider configured")
	}
	link, err := s.initiator.InitiateCardPayment(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payments: link creation failed")
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	return link, nil
}

// LinkExpired reports whether the order's pending card link is past its
// validity window. An order without a link counts as expired so the flow
// re-routes to method selection instead of waiting forever.
func (s *Service) LinkExpired(order *models.Order, now time.Time) bool {
	if order == nil || order.PaymentLinkCreatedAt == nil {
		return true
	}
	return now.Sub(*order.PaymentLinkCreatedAt) > s.linkExpiry
}

// LinkExpiry exposes the configured validity window.
func (s *Service) LinkExpiry() time.Duration {
	return s.linkExpiry
}

// StaticLinkInitiator issues deterministic hosted-checkout URLs under a
// fixed base. Used for development tenants without a provider contract.
type StaticLinkInitiator struct {
	BaseURL string
}

// InitiateCardPayment builds the hosted URL for the order.
func (s *StaticLinkInitiator) InitiateCardPayment(_ context.Context, order *models.Order) (*Link, error) {
	if s.BaseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments: link base url not configured")
	}
	return &Link{
		CheckoutURL: fmt.Sprintf("%s/pay/%s", s.BaseURL, order.ID),
		CreatedAt:   time.Now().UTC(),
	}, nil
}
