package enums

import "fmt"

// ConversationStatus tracks whether the automated flow owns the conversation.
type ConversationStatus string

const (
	ConversationStatusOpen         ConversationStatus = "open"
	ConversationStatusPendingAgent ConversationStatus = "pending_agent"
	ConversationStatusClosed       ConversationStatus = "closed"
)

var validConversationStatuses = []ConversationStatus{
	ConversationStatusOpen,
	ConversationStatusPendingAgent,
	ConversationStatusClosed,
}

// IsValid reports whether the value matches the canonical status enum.
func (s ConversationStatus) IsValid() bool {
	for _, candidate := range validConversationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseConversationStatus converts the raw string to ConversationStatus.
func ParseConversationStatus(value string) (ConversationStatus, error) {
	for _, candidate := range validConversationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation status %q", value)
}
