package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/aydinemre/menubot-backend/internal/conversation"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
)

type stubTenantResolver struct {
	tenant *models.Tenant
	err    error
	gotID  string
}

func (s *stubTenantResolver) ResolveWhatsAppPhone(_ context.Context, phoneID string) (*models.Tenant, error) {
	s.gotID = phoneID
	if s.err != nil {
		return nil, s.err
	}
	return s.tenant, nil
}

type stubInboundHandler struct {
	got []conversation.Inbound
	err error
}

func (s *stubInboundHandler) HandleInbound(_ context.Context, in conversation.Inbound) error {
	s.got = append(s.got, in)
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func webhookPayload(phoneID, messages string) string {
	return `{"entry":[{"changes":[{"value":{"metadata":{"phone_number_id":"` + phoneID + `"},"messages":[` + messages + `]}}]}]}`
}

func TestWhatsAppVerifyEchoesChallenge(t *testing.T) {
	cfg := config.TransportConfig{VerifyToken: "secret-token"}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	resp := httptest.NewRecorder()

	WhatsAppVerify(cfg)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if resp.Body.String() != "12345" {
		t.Fatalf("unexpected challenge echo %q", resp.Body.String())
	}
}

func TestWhatsAppVerifyRejectsWrongToken(t *testing.T) {
	cfg := config.TransportConfig{VerifyToken: "secret-token"}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp := httptest.NewRecorder()

	WhatsAppVerify(cfg)(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestWhatsAppVerifyRejectsWhenTokenUnset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=&hub.challenge=12345", nil)
	resp := httptest.NewRecorder()

	WhatsAppVerify(config.TransportConfig{})(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestWhatsAppWebhookNormalizesTextMessage(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New()}
	resolver := &stubTenantResolver{tenant: tenant}
	handler := &stubInboundHandler{}

	body := webhookPayload("10001", `{"from":"905551112233","type":"text","text":{"body":"2 kola"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(body))
	resp := httptest.NewRecorder()

	WhatsAppWebhook(resolver, handler, config.TransportConfig{}, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if resolver.gotID != "10001" {
		t.Fatalf("unexpected phone id %q", resolver.gotID)
	}
	if len(handler.got) != 1 {
		t.Fatalf("expected one inbound, got %d", len(handler.got))
	}
	in := handler.got[0]
	if in.TenantID != tenant.ID || in.From != "905551112233" {
		t.Fatalf("unexpected routing %+v", in)
	}
	if in.Kind != enums.MessageKindText || in.Text != "2 kola" {
		t.Fatalf("unexpected normalization %+v", in)
	}
}

func TestWhatsAppWebhookNormalizesLocationAndInteractive(t *testing.T) {
	resolver := &stubTenantResolver{tenant: &models.Tenant{ID: uuid.New()}}
	handler := &stubInboundHandler{}

	messages := `{"from":"905551112233","type":"location","location":{"latitude":40.99,"longitude":29.02}},` +
		`{"from":"905551112233","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"pay_cash","title":"Nakit"}}},` +
		`{"from":"905551112233","type":"audio"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(webhookPayload("10001", messages)))
	resp := httptest.NewRecorder()

	WhatsAppWebhook(resolver, handler, config.TransportConfig{}, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if len(handler.got) != 3 {
		t.Fatalf("expected three inbound, got %d", len(handler.got))
	}
	loc := handler.got[0]
	if loc.Kind != enums.MessageKindLocation || loc.Location == nil || loc.Location.Lat != 40.99 || loc.Location.Lng != 29.02 {
		t.Fatalf("unexpected location normalization %+v", loc)
	}
	tap := handler.got[1]
	if tap.Kind != enums.MessageKindInteractive || tap.SelectionID != "pay_cash" || tap.SelectionTitle != "Nakit" {
		t.Fatalf("unexpected interactive normalization %+v", tap)
	}
	if handler.got[2].Kind != enums.MessageKindVoice {
		t.Fatalf("unexpected audio normalization %+v", handler.got[2])
	}
}

func TestWhatsAppWebhookLockConflictRequestsRetry(t *testing.T) {
	resolver := &stubTenantResolver{tenant: &models.Tenant{ID: uuid.New()}}
	handler := &stubInboundHandler{err: pkgerrors.New(pkgerrors.CodeLockConflict, "busy")}

	body := webhookPayload("10001", `{"from":"905551112233","type":"text","text":{"body":"merhaba"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(body))
	resp := httptest.NewRecorder()

	WhatsAppWebhook(resolver, handler, config.TransportConfig{}, testLogger())(resp, req)

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestWhatsAppWebhookOtherFailuresAreAcknowledged(t *testing.T) {
	resolver := &stubTenantResolver{tenant: &models.Tenant{ID: uuid.New()}}
	handler := &stubInboundHandler{err: pkgerrors.New(pkgerrors.CodeDependency, "model down")}

	body := webhookPayload("10001", `{"from":"905551112233","type":"text","text":{"body":"merhaba"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(body))
	resp := httptest.NewRecorder()

	WhatsAppWebhook(resolver, handler, config.TransportConfig{}, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestWhatsAppWebhookSignatureCheck(t *testing.T) {
	resolver := &stubTenantResolver{tenant: &models.Tenant{ID: uuid.New()}}
	handler := &stubInboundHandler{}
	cfg := config.TransportConfig{AppSecret: "app-secret"}
	body := webhookPayload("10001", `{"from":"905551112233","type":"text","text":{"body":"merhaba"}}`)

	mac := hmac.New(sha256.New, []byte(cfg.AppSecret))
	mac.Write([]byte(body))
	signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signature)
	resp := httptest.NewRecorder()
	WhatsAppWebhook(resolver, handler, cfg, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("valid signature rejected with %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	resp = httptest.NewRecorder()
	WhatsAppWebhook(resolver, handler, cfg, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("forged signature accepted with %d", resp.Code)
	}
}

func TestWhatsAppWebhookRejectsMalformedBody(t *testing.T) {
	resolver := &stubTenantResolver{tenant: &models.Tenant{ID: uuid.New()}}
	handler := &stubInboundHandler{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp", strings.NewReader("{not json"))
	resp := httptest.NewRecorder()

	WhatsAppWebhook(resolver, handler, config.TransportConfig{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if len(handler.got) != 0 {
		t.Fatal("handler should not run on malformed payloads")
	}
}
