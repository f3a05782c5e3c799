// Package catalog exposes the published menu of a tenant as an immutable
// per-message snapshot consumed by the candidate retriever and the merge
// engine.
package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Snapshot is the published menu of one tenant at a point in time.
type Snapshot struct {
	TenantID     uuid.UUID
	Categories   []Category
	OptionGroups map[uuid.UUID]OptionGroup
	Synonyms     []Synonym

	itemsByID map[uuid.UUID]*Item
}

// Category groups items for presentation and category-stem matching.
type Category struct {
	ID    uuid.UUID
	Name  string
	Items []Item
}

// Item is one orderable entry with its option group references resolved
// lazily through the snapshot.
type Item struct {
	ID             uuid.UUID
	CategoryID     uuid.UUID
	CategoryName   string
	Name           string
	Description    string
	BasePriceKurus int
	OptionGroupIDs []uuid.UUID
}

// OptionGroup is a set of selectable choices.
type OptionGroup struct {
	ID        uuid.UUID
	Name      string
	Type      string
	Required  bool
	MinSelect int
	MaxSelect int
	Options   []Option
}

// Option is one choice with its price delta.
type Option struct {
	ID              uuid.UUID
	Name            string
	PriceDeltaKurus int
	IsDefault       bool
}

// Synonym maps a colloquial phrase onto an item.
type Synonym struct {
	Phrase   string
	MapsToID uuid.UUID
	Weight   float64
}

// ItemByID returns the item for the given id, or nil.
func (s *Snapshot) ItemByID(id uuid.UUID) *Item {
	if s == nil {
		return nil
	}
	if s.itemsByID == nil {
		s.indexItems()
	}
	return s.itemsByID[id]
}

// Items returns every item across all categories.
func (s *Snapshot) Items() []Item {
	var items []Item
	for _, category := range s.Categories {
		items = append(items, category.Items...)
	}
	return items
}

// GroupsFor resolves the option groups attached to an item.
func (s *Snapshot) GroupsFor(item *Item) []OptionGroup {
	if s == nil || item == nil {
		return nil
	}
	groups := make([]OptionGroup, 0, len(item.OptionGroupIDs))
	for _, id := range item.OptionGroupIDs {
		if group, ok := s.OptionGroups[id]; ok {
			groups = append(groups, group)
		}
	}
	return groups
}

// SynonymsFor returns the synonyms mapping to the given item.
func (s *Snapshot) SynonymsFor(itemID uuid.UUID) []Synonym {
	var matched []Synonym
	for _, synonym := range s.Synonyms {
		if synonym.MapsToID == itemID {
			matched = append(matched, synonym)
		}
	}
	return matched
}

// Summary renders a compact category/item listing for the menu reply.
func (s *Snapshot) Summary() string {
	var b strings.Builder
	for _, category := range s.Categories {
		if len(category.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "*%s*\n", category.Name)
		for _, item := range category.Items {
			fmt.Fprintf(&b, "- %s (%s)\n", item.Name, FormatKurus(item.BasePriceKurus))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatKurus renders a kuruş amount as a lira string, e.g. "95,50 TL".
func FormatKurus(amount int) string {
	lira := amount / 100
	kurus := amount % 100
	if kurus == 0 {
		return fmt.Sprintf("%d TL", lira)
	}
	return fmt.Sprintf("%d,%02d TL", lira, kurus)
}

func (s *Snapshot) indexItems() {
	s.itemsByID = make(map[uuid.UUID]*Item)
	for ci := range s.Categories {
		for ii := range s.Categories[ci].Items {
			item := &s.Categories[ci].Items[ii]
			s.itemsByID[item.ID] = item
		}
	}
}
