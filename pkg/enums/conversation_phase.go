package enums

import "fmt"

// ConversationPhase is the conversation's position in the ordering workflow.
type ConversationPhase string

const (
	PhaseIdle                   ConversationPhase = "idle"
	PhaseOrderCollecting        ConversationPhase = "order_collecting"
	PhaseOrderReview            ConversationPhase = "order_review"
	PhaseLocationRequest        ConversationPhase = "location_request"
	PhasePaymentMethodSelection ConversationPhase = "payment_method_selection"
	PhasePaymentPending         ConversationPhase = "payment_pending"
	PhaseOrderConfirmed         ConversationPhase = "order_confirmed"
	PhaseAgentHandoff           ConversationPhase = "agent_handoff"
)

var validConversationPhases = []ConversationPhase{
	PhaseIdle,
	PhaseOrderCollecting,
	PhaseOrderReview,
	PhaseLocationRequest,
	PhasePaymentMethodSelection,
	PhasePaymentPending,
	PhaseOrderConfirmed,
	PhaseAgentHandoff,
}

// IsValid reports whether the value matches the canonical phase enum.
func (p ConversationPhase) IsValid() bool {
	for _, candidate := range validConversationPhases {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseConversationPhase converts the raw string to ConversationPhase.
func ParseConversationPhase(value string) (ConversationPhase, error) {
	for _, candidate := range validConversationPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation phase %q", value)
}
