package enums

import "fmt"

// IntentAction is the per-item action returned by the extraction service.
type IntentAction string

const (
	IntentActionAdd    IntentAction = "add"
	IntentActionRemove IntentAction = "remove"
	IntentActionKeep   IntentAction = "keep"
)

var validIntentActions = []IntentAction{
	IntentActionAdd,
	IntentActionRemove,
	IntentActionKeep,
}

// IsValid reports whether the value matches the canonical intent action enum.
func (i IntentAction) IsValid() bool {
	for _, candidate := range validIntentActions {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIntentAction converts the raw string to IntentAction.
func ParseIntentAction(value string) (IntentAction, error) {
	for _, candidate := range validIntentActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent action %q", value)
}
