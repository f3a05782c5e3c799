// Package outbound stages replies in a transactional outbox and delivers
// them to the messaging transport from a separate worker loop.
package outbound

import (
	"encoding/json"

	"github.com/aydinemre/menubot-backend/pkg/types"
)

// Kind discriminates the abstract message descriptors the core produces.
type Kind string

const (
	KindText            Kind = "text"
	KindButtons         Kind = "buttons"
	KindLocationRequest Kind = "location_request"
	KindList            Kind = "list"
)

// Button is one interactive reply option.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListRow is one selectable row of a list message.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows under a header.
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// Message is one abstract outbound descriptor. Transport formatting and
// rate limits are the transport's concern.
type Message struct {
	Kind     Kind          `json:"kind"`
	Text     string        `json:"text,omitempty"`
	Buttons  []Button      `json:"buttons,omitempty"`
	Sections []ListSection `json:"sections,omitempty"`
}

// Text builds a plain text reply.
func Text(body string) Message {
	return Message{Kind: KindText, Text: body}
}

// Buttons builds an interactive button reply; callers keep to 2-3 buttons.
func Buttons(body string, buttons ...Button) Message {
	return Message{Kind: KindButtons, Text: body, Buttons: buttons}
}

// LocationRequest builds a location-request prompt.
func LocationRequest(body string) Message {
	return Message{Kind: KindLocationRequest, Text: body}
}

// List builds a sectioned list picker.
func List(body string, sections ...ListSection) Message {
	return Message{Kind: KindList, Text: body, Sections: sections}
}

// ToPayload serializes the descriptor for outbox storage.
func (m Message) ToPayload() (types.JSONMap, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var payload types.JSONMap
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// FromPayload restores the descriptor from an outbox row.
func FromPayload(payload types.JSONMap) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		return Message{}, err
	}
	return message, nil
}
