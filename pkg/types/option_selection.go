package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// OptionSelection is one chosen option within an option group, priced as a
// delta on the item's base price. Selections are validated at the merge
// boundary; untyped blobs never cross it.
type OptionSelection struct {
	GroupName  string `json:"group_name"`
	OptionName string `json:"option_name"`
	PriceDelta int    `json:"price_delta_kurus"`
}

// OptionSelections is persisted as a jsonb column on order items.
type OptionSelections []OptionSelection

// Canonical returns the sorted "group:option" pairs used for line identity.
func (s OptionSelections) Canonical() []string {
	pairs := make([]string, 0, len(s))
	for _, sel := range s {
		pairs = append(pairs, fmt.Sprintf("%s:%s", strings.ToLower(strings.TrimSpace(sel.GroupName)), strings.ToLower(strings.TrimSpace(sel.OptionName))))
	}
	sort.Strings(pairs)
	return pairs
}

// Fingerprint hashes the canonical pair set; empty selections hash to "".
func (s OptionSelections) Fingerprint() string {
	if len(s) == 0 {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.Join(s.Canonical(), "|")))
	return hex.EncodeToString(sum[:])
}

// DeltaSum returns the total price delta across selections.
func (s OptionSelections) DeltaSum() int {
	total := 0
	for _, sel := range s {
		total += sel.PriceDelta
	}
	return total
}
