package payments

import (
	"context"
	"testing"
	"time"

	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInitiator struct {
	link *Link
	err  error
}

func (s *stubInitiator) InitiateCardPayment(_ context.Context, _ *models.Order) (*Link, error) {
	return s.link, s.err
}

func TestCreateCardLink(t *testing.T) {
	svc := NewService(&stubInitiator{link: &Link{CheckoutURL: "https://pay.example/x"}}, config.PaymentsConfig{})

	link, err := svc.CreateCardLink(context.Background(), &models.Order{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/x", link.CheckoutURL)
	assert.False(t, link.CreatedAt.IsZero())
}

func TestCreateCardLinkWithoutProvider(t *testing.T) {
	svc := NewService(nil, config.PaymentsConfig{})

	_, err := svc.CreateCardLink(context.Background(), &models.Order{ID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestLinkExpired(t *testing.T) {
	svc := NewService(nil, config.PaymentsConfig{LinkExpiry: 30 * time.Minute})
	now := time.Now().UTC()

	fresh := now.Add(-10 * time.Minute)
	stale := now.Add(-31 * time.Minute)

	assert.False(t, svc.LinkExpired(&models.Order{PaymentLinkCreatedAt: &fresh}, now))
	assert.True(t, svc.LinkExpired(&models.Order{PaymentLinkCreatedAt: &stale}, now))
	assert.True(t, svc.LinkExpired(&models.Order{}, now))
	assert.True(t, svc.LinkExpired(nil, now))
}

func TestStaticLinkInitiator(t *testing.T) {
	orderID := uuid.New()
	initiator := &StaticLinkInitiator{BaseURL: "https://pay.example"}

	link, err := initiator.InitiateCardPayment(context.Background(), &models.Order{ID: orderID})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/pay/"+orderID.String(), link.CheckoutURL)

	_, err = (&StaticLinkInitiator{}).InitiateCardPayment(context.Background(), &models.Order{ID: orderID})
	assert.Error(t, err)
}
