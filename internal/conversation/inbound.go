package conversation

import (
	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
)

// Inbound is one normalized customer message, already stripped of
// webhook framing.
type Inbound struct {
	TenantID uuid.UUID
	From     string
	Kind     enums.MessageKind
	Text     string

	// Location is set when Kind is location.
	Location *types.Coordinates

	// SelectionID and SelectionTitle are set when Kind is interactive:
	// the tapped button or list row.
	SelectionID    string
	SelectionTitle string
}

// effectiveText is what keyword matching and extraction should look at:
// the tapped row title stands in for typed text on interactive messages.
func (in Inbound) effectiveText() string {
	if in.Kind == enums.MessageKindInteractive && in.SelectionTitle != "" {
		return in.SelectionTitle
	}
	return in.Text
}

// body is the turn text persisted to the conversation history.
func (in Inbound) body() string {
	switch in.Kind {
	case enums.MessageKindLocation:
		return "[konum]"
	case enums.MessageKindImage:
		return "[resim]"
	case enums.MessageKindVoice:
		return "[ses]"
	case enums.MessageKindInteractive:
		return in.SelectionTitle
	default:
		return in.Text
	}
}
