// Package extraction defines the structured-completion boundary: the typed
// request/result contract, its validation, and the decision policy that
// gates whether a result may touch the draft order.
package extraction

import (
	"github.com/aydinemre/menubot-backend/internal/candidates"
	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
)

// Turn is one prior exchange included as conversation context.
type Turn struct {
	Inbound bool
	Text    string
}

// Request carries everything the completion service sees for one message.
type Request struct {
	Text         string
	Snapshot     *catalog.Snapshot
	Candidates   []candidates.Candidate
	History      []Turn
	DraftSummary string
	Hints        []string
}

// Item is one extracted order mutation.
type Item struct {
	MenuItemID     uuid.UUID
	Qty            int
	Action         enums.IntentAction
	Options        types.OptionSelections
	Extras         []string
	Notes          string
	ItemConfidence float64
}

// Result is the validated outcome of one extraction call.
type Result struct {
	Items                 []Item
	Confidence            float64
	ClarificationQuestion string
	OrderNotes            string
}

// Sanitize enforces the contract on a raw result: items must reference a
// candidate, quantities default to 1, actions must parse, confidences are
// clamped to [0,1]. Offending items are dropped rather than failing the
// whole result.
func (r *Result) Sanitize(allowed map[uuid.UUID]bool) {
	r.Confidence = clamp01(r.Confidence)

	kept := r.Items[:0]
	for _, item := range r.Items {
		if item.MenuItemID == uuid.Nil || !allowed[item.MenuItemID] {
			continue
		}
		if !item.Action.IsValid() {
			continue
		}
		if item.Qty <= 0 {
			item.Qty = 1
		}
		item.ItemConfidence = clamp01(item.ItemConfidence)
		kept = append(kept, item)
	}
	r.Items = kept
}

// HasMutations reports whether any item would change the draft.
func (r *Result) HasMutations() bool {
	for _, item := range r.Items {
		if item.Action == enums.IntentActionAdd || item.Action == enums.IntentActionRemove {
			return true
		}
	}
	return false
}

// DecisionKind tells the state machine what to do with a result.
type DecisionKind string

const (
	// DecideClarify blocks the merge and asks the overall question.
	DecideClarify DecisionKind = "clarify"
	// DecideClarifyItems blocks the merge and asks about specific items.
	DecideClarifyItems DecisionKind = "clarify_items"
	// DecideMerge hands the result to the merge engine.
	DecideMerge DecisionKind = "merge"
	// DecideNothing means no mutations and nothing to ask.
	DecideNothing DecisionKind = "nothing"
)

// Decision is the gating outcome for one extraction result.
type Decision struct {
	Kind         DecisionKind
	Question     string
	UnclearItems []uuid.UUID
}

// Decide applies the confidence policy: an explicit question or overall
// confidence below minConfidence blocks the merge outright; otherwise any
// add item below minItemConfidence triggers a targeted clarification. The
// draft stays untouched unless the outcome is DecideMerge.
func Decide(result *Result, minConfidence, minItemConfidence float64) Decision {
	if result == nil {
		return Decision{Kind: DecideNothing}
	}
	if result.ClarificationQuestion != "" || result.Confidence < minConfidence {
		return Decision{Kind: DecideClarify, Question: result.ClarificationQuestion}
	}

	var unclear []uuid.UUID
	for _, item := range result.Items {
		if item.Action == enums.IntentActionAdd && item.ItemConfidence < minItemConfidence {
			unclear = append(unclear, item.MenuItemID)
		}
	}
	if len(unclear) > 0 {
		return Decision{Kind: DecideClarifyItems, UnclearItems: unclear}
	}

	if !result.HasMutations() && len(result.Items) == 0 {
		return Decision{Kind: DecideNothing}
	}
	return Decision{Kind: DecideMerge}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
