package enums

import "fmt"

// OutboundStatus is the delivery state of an outbound message row.
type OutboundStatus string

const (
	OutboundStatusPending OutboundStatus = "pending"
	OutboundStatusSent    OutboundStatus = "sent"
	OutboundStatusFailed  OutboundStatus = "failed"
)

var validOutboundStatuses = []OutboundStatus{
	OutboundStatusPending,
	OutboundStatusSent,
	OutboundStatusFailed,
}

// IsValid reports whether the value matches the canonical outbound status enum.
func (o OutboundStatus) IsValid() bool {
	for _, candidate := range validOutboundStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboundStatus converts the raw string to OutboundStatus.
func ParseOutboundStatus(value string) (OutboundStatus, error) {
	for _, candidate := range validOutboundStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbound status %q", value)
}
