package enums

import "fmt"

// IntentFeedback is the agent's post-hoc verdict on an extraction event.
type IntentFeedback string

const (
	IntentFeedbackCorrect   IntentFeedback = "correct"
	IntentFeedbackIncorrect IntentFeedback = "incorrect"
)

var validIntentFeedbacks = []IntentFeedback{
	IntentFeedbackCorrect,
	IntentFeedbackIncorrect,
}

// IsValid reports whether the value matches the canonical feedback enum.
func (i IntentFeedback) IsValid() bool {
	for _, candidate := range validIntentFeedbacks {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIntentFeedback converts the raw string to IntentFeedback.
func ParseIntentFeedback(value string) (IntentFeedback, error) {
	for _, candidate := range validIntentFeedbacks {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent feedback %q", value)
}
