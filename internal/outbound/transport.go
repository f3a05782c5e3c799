package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aydinemre/menubot-backend/pkg/config"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
)

// Transport delivers one abstract message to a recipient.
type Transport interface {
	Send(ctx context.Context, recipient string, message Message) error
}

// WhatsAppTransport formats descriptors as WhatsApp Cloud API requests.
type WhatsAppTransport struct {
	cfg    config.TransportConfig
	client *http.Client
}

// NewWhatsAppTransport builds the transport over a dedicated HTTP client.
func NewWhatsAppTransport(cfg config.TransportConfig) *WhatsAppTransport {
	return &WhatsAppTransport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Send posts the message to the Cloud API messages endpoint.
func (t *WhatsAppTransport) Send(ctx context.Context, recipient string, message Message) error {
	if t.cfg.AccessToken == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "transport: access token not configured")
	}

	body, err := json.Marshal(t.render(recipient, message))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transport: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transport: build request")
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transport: send")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("transport: send rejected with status %d: %s", resp.StatusCode, payload))
	}
	return nil
}

// render maps the abstract descriptor onto the Cloud API wire shape.
func (t *WhatsAppTransport) render(recipient string, message Message) map[string]any {
	base := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
	}

	switch message.Kind {
	case KindButtons:
		buttons := make([]map[string]any, 0, len(message.Buttons))
		for _, button := range message.Buttons {
			buttons = append(buttons, map[string]any{
				"type":  "reply",
				"reply": map[string]any{"id": button.ID, "title": button.Title},
			})
		}
		base["type"] = "interactive"
		base["interactive"] = map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": message.Text},
			"action": map[string]any{"buttons": buttons},
		}

	case KindList:
		sections := make([]map[string]any, 0, len(message.Sections))
		for _, section := range message.Sections {
			rows := make([]map[string]any, 0, len(section.Rows))
			for _, row := range section.Rows {
				entry := map[string]any{"id": row.ID, "title": row.Title}
				if row.Description != "" {
					entry["description"] = row.Description
				}
				rows = append(rows, entry)
			}
			sections = append(sections, map[string]any{"title": section.Title, "rows": rows})
		}
		base["type"] = "interactive"
		base["interactive"] = map[string]any{
			"type":   "list",
			"body":   map[string]any{"text": message.Text},
			"action": map[string]any{"button": "Seç", "sections": sections},
		}

	case KindLocationRequest:
		base["type"] = "interactive"
		base["interactive"] = map[string]any{
			"type":   "location_request_message",
			"body":   map[string]any{"text": message.Text},
			"action": map[string]any{"name": "send_location"},
		}

	default:
		base["type"] = "text"
		base["text"] = map[string]any{"body": message.Text}
	}
	return base
}
