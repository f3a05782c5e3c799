package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/internal/payments"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
)

type stubCallbackHandler struct {
	got *payments.Callback
	err error
}

func (s *stubCallbackHandler) HandlePaymentCallback(_ context.Context, cb payments.Callback) error {
	s.got = &cb
	return s.err
}

func TestPaymentCallbackSuccess(t *testing.T) {
	orderID := uuid.New()
	handler := &stubCallbackHandler{}

	body := `{"order_id":"` + orderID.String() + `","success":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(body))
	resp := httptest.NewRecorder()

	PaymentCallback(handler, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if handler.got == nil {
		t.Fatal("expected callback forwarded")
	}
	if handler.got.OrderID != orderID || !handler.got.Success {
		t.Fatalf("unexpected callback %+v", handler.got)
	}
}

func TestPaymentCallbackForwardsFailure(t *testing.T) {
	orderID := uuid.New()
	handler := &stubCallbackHandler{}

	body := `{"order_id":"` + orderID.String() + `","success":false}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(body))
	resp := httptest.NewRecorder()

	PaymentCallback(handler, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if handler.got == nil || handler.got.Success {
		t.Fatalf("expected failure callback, got %+v", handler.got)
	}
}

func TestPaymentCallbackValidatesBody(t *testing.T) {
	handler := &stubCallbackHandler{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(`{"order_id":"not-a-uuid","success":true}`))
	resp := httptest.NewRecorder()

	PaymentCallback(handler, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if handler.got != nil {
		t.Fatal("handler should not run on invalid payloads")
	}
}

func TestPaymentCallbackUnknownOrder(t *testing.T) {
	handler := &stubCallbackHandler{err: pkgerrors.New(pkgerrors.CodeNotFound, "no conversation for order")}

	body := `{"order_id":"` + uuid.NewString() + `","success":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", strings.NewReader(body))
	resp := httptest.NewRecorder()

	PaymentCallback(handler, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
