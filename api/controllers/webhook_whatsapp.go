package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/aydinemre/menubot-backend/api/responses"
	"github.com/aydinemre/menubot-backend/internal/conversation"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db/models"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/aydinemre/menubot-backend/pkg/types"
)

type tenantResolver interface {
	ResolveWhatsAppPhone(ctx context.Context, phoneID string) (*models.Tenant, error)
}

type inboundHandler interface {
	HandleInbound(ctx context.Context, in conversation.Inbound) error
}

// whatsAppPayload mirrors the Cloud API webhook envelope, limited to the
// fields the bot consumes.
type whatsAppPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []whatsAppMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type whatsAppMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// WhatsAppVerify answers the Cloud API subscription handshake.
func WhatsAppVerify(cfg config.TransportConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("hub.mode") != "subscribe" || query.Get("hub.verify_token") != cfg.VerifyToken || cfg.VerifyToken == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(query.Get("hub.challenge")))
	}
}

// WhatsAppWebhook ingests inbound messages. Per-message failures are
// logged and acknowledged so the Cloud API does not redeliver the whole
// batch; a processing-lock conflict returns 429 to request a retry.
func WhatsAppWebhook(resolver tenantResolver, handler inboundHandler, cfg config.TransportConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}
		if cfg.AppSecret != "" && !validSignature(body, r.Header.Get("X-Hub-Signature-256"), cfg.AppSecret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var payload whatsAppPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook body"))
			return
		}

		retry := false
		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				tenant, err := resolver.ResolveWhatsAppPhone(ctx, change.Value.Metadata.PhoneNumberID)
				if err != nil {
					if logg != nil {
						logg.Error(ctx, "webhook tenant resolution failed", err)
					}
					continue
				}
				for _, message := range change.Value.Messages {
					inbound := normalizeMessage(tenant, message)
					if err := handler.HandleInbound(ctx, inbound); err != nil {
						typed := pkgerrors.As(err)
						if typed != nil && typed.Code() == pkgerrors.CodeLockConflict {
							retry = true
							continue
						}
						if logg != nil {
							logg.Error(ctx, "inbound handling failed", err)
						}
					}
				}
			}
		}

		if retry {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

func normalizeMessage(tenant *models.Tenant, message whatsAppMessage) conversation.Inbound {
	inbound := conversation.Inbound{
		TenantID: tenant.ID,
		From:     message.From,
	}

	switch message.Type {
	case "text":
		inbound.Kind = enums.MessageKindText
		if message.Text != nil {
			inbound.Text = message.Text.Body
		}
	case "location":
		inbound.Kind = enums.MessageKindLocation
		if message.Location != nil {
			inbound.Location = &types.Coordinates{
				Lat: message.Location.Latitude,
				Lng: message.Location.Longitude,
			}
		}
	case "interactive":
		inbound.Kind = enums.MessageKindInteractive
		if message.Interactive != nil {
			if reply := message.Interactive.ButtonReply; reply != nil {
				inbound.SelectionID = reply.ID
				inbound.SelectionTitle = reply.Title
			}
			if reply := message.Interactive.ListReply; reply != nil {
				inbound.SelectionID = reply.ID
				inbound.SelectionTitle = reply.Title
			}
		}
	case "audio", "voice":
		inbound.Kind = enums.MessageKindVoice
	default:
		inbound.Kind = enums.MessageKindImage
	}
	return inbound
}

func validSignature(body []byte, header, secret string) bool {
	signature := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
