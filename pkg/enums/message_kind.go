package enums

import "fmt"

// MessageKind classifies the inbound webhook message payload.
type MessageKind string

const (
	MessageKindText        MessageKind = "text"
	MessageKindLocation    MessageKind = "location"
	MessageKindImage       MessageKind = "image"
	MessageKindVoice       MessageKind = "voice"
	MessageKindInteractive MessageKind = "interactive"
)

var validMessageKinds = []MessageKind{
	MessageKindText,
	MessageKindLocation,
	MessageKindImage,
	MessageKindVoice,
	MessageKindInteractive,
}

// IsValid reports whether the value matches the canonical message kind enum.
func (m MessageKind) IsValid() bool {
	for _, candidate := range validMessageKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMessageKind converts the raw string to MessageKind.
func ParseMessageKind(value string) (MessageKind, error) {
	for _, candidate := range validMessageKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message kind %q", value)
}
