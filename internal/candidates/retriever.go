// Package candidates scores the tenant catalog against an inbound message
// and returns the ranked item set handed to the extraction stage.
package candidates

import (
	"context"
	"sort"
	"strings"

	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/internal/textnorm"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/google/uuid"
)

const (
	// MaxCandidates bounds the ranked list handed to extraction.
	MaxCandidates = 10
	// ScoreCutoff drops candidates that barely matched anything.
	ScoreCutoff = 0.15

	containmentScore   = 0.8
	wordOverlapWeight  = 0.5
	fuzzyWordWeight    = 0.3
	wholeTextWeight    = 0.2
	descriptionWeight  = 0.1
	categoryFloor      = 0.3
	carryInScore       = 0.2
	fuzzyWordThreshold = 0.7

	synonymContainWeight = 0.5
	synonymOverlapWeight = 0.4
	synonymFuzzyWeight   = 0.3
	synonymFuzzyMin      = 0.5

	vectorBlendWeight = 0.3
	vectorBlendMin    = 0.3
	vectorAdmitMin    = 0.5
	vectorAdmitScale  = 0.4
)

// Candidate is one scored catalog item. Ephemeral, recomputed per message.
type Candidate struct {
	Item            catalog.Item
	Score           float64
	MatchedSynonyms []string
	FromVector      bool
	CarriedIn       bool
}

// VectorProvider supplies an optional embedding-similarity signal. A nil
// provider disables the blend entirely.
type VectorProvider interface {
	Similarities(ctx context.Context, text string, items []catalog.Item) (map[uuid.UUID]float64, error)
}

// Retriever ranks catalog items against user text.
type Retriever struct {
	vector VectorProvider
	log    *logger.Logger
}

// NewRetriever builds a retriever. vector may be nil.
func NewRetriever(vector VectorProvider, log *logger.Logger) *Retriever {
	return &Retriever{vector: vector, log: log}
}

// Retrieve scores every item of the snapshot against the user text plus the
// carry-in IDs from the previous turn and the existing draft, then returns
// the top MaxCandidates above ScoreCutoff, best first.
func (r *Retriever) Retrieve(ctx context.Context, snapshot *catalog.Snapshot, text string, carryIn []uuid.UUID) []Candidate {
	if snapshot == nil {
		return nil
	}

	normalized := textnorm.Normalize(text)
	variants := textnorm.ExpandSlang(text)
	textWords := textnorm.Words(text)
	textStems := textnorm.StemWords(text)

	carried := make(map[uuid.UUID]bool, len(carryIn))
	for _, id := range carryIn {
		carried[id] = true
	}

	categoryHit := make(map[uuid.UUID]bool)
	for _, category := range snapshot.Categories {
		if matchesCategory(category.Name, textWords, textStems) {
			categoryHit[category.ID] = true
		}
	}

	byID := make(map[uuid.UUID]*Candidate)
	items := snapshot.Items()
	for i := range items {
		item := items[i]
		score, synonyms := r.scoreItem(snapshot, &item, normalized, variants, textWords, textStems)

		if categoryHit[item.CategoryID] && score < categoryFloor {
			score = categoryFloor
		}
		if score > 1 {
			score = 1
		}

		candidate := Candidate{Item: item, Score: score, MatchedSynonyms: synonyms}
		if carried[item.ID] {
			candidate.CarriedIn = true
			if candidate.Score < carryInScore {
				candidate.Score = carryInScore
			}
		}
		if candidate.Score > 0 {
			byID[item.ID] = &candidate
		}
	}

	r.blendVector(ctx, snapshot, normalized, items, byID)

	ranked := make([]Candidate, 0, len(byID))
	for _, candidate := range byID {
		if candidate.Score >= ScoreCutoff {
			ranked = append(ranked, *candidate)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Item.Name < ranked[j].Item.Name
	})
	if len(ranked) > MaxCandidates {
		ranked = ranked[:MaxCandidates]
	}
	return ranked
}

func (r *Retriever) scoreItem(snapshot *catalog.Snapshot, item *catalog.Item, normalized string, variants, textWords, textStems []string) (float64, []string) {
	itemName := textnorm.Normalize(item.Name)
	if itemName == "" {
		return 0, nil
	}

	score := 0.0
	if containedInAny(itemName, variants) {
		score += containmentScore
	} else {
		itemWords := strings.Fields(itemName)
		itemStems := textnorm.StemWords(itemName)
		exact, fuzzy := overlapFractions(itemWords, itemStems, textWords, textStems)
		score += wordOverlapWeight * exact
		score += fuzzyWordWeight * fuzzy
	}

	score += wholeTextWeight * Similarity(normalized, itemName)

	var matched []string
	for _, synonym := range snapshot.SynonymsFor(item.ID) {
		credit := synonymCredit(synonym, variants, textWords, textStems)
		if credit > 0 {
			score += credit
			matched = append(matched, synonym.Phrase)
		}
	}

	if item.Description != "" {
		descWords := textnorm.Words(item.Description)
		descStems := textnorm.StemWords(item.Description)
		exact, _ := overlapFractions(textWords, textStems, descWords, descStems)
		score += descriptionWeight * exact
	}

	return score, matched
}

// synonymCredit grants the strongest applicable signal for one synonym:
// phrase containment, else word overlap, else fuzzy phrase similarity.
func synonymCredit(synonym catalog.Synonym, variants, textWords, textStems []string) float64 {
	phrase := textnorm.Normalize(synonym.Phrase)
	if phrase == "" {
		return 0
	}
	if containedInAny(phrase, variants) {
		return synonymContainWeight * synonym.Weight
	}

	phraseWords := strings.Fields(phrase)
	phraseStems := textnorm.StemWords(phrase)
	exact, _ := overlapFractions(phraseWords, phraseStems, textWords, textStems)
	if exact > 0 {
		return synonymOverlapWeight * synonym.Weight * exact
	}

	best := 0.0
	for _, variant := range variants {
		if sim := Similarity(variant, phrase); sim > best {
			best = sim
		}
	}
	if best > synonymFuzzyMin {
		return best * synonymFuzzyWeight * synonym.Weight
	}
	return 0
}

func (r *Retriever) blendVector(ctx context.Context, snapshot *catalog.Snapshot, normalized string, items []catalog.Item, byID map[uuid.UUID]*Candidate) {
	if r.vector == nil || normalized == "" {
		return
	}
	sims, err := r.vector.Similarities(ctx, normalized, items)
	if err != nil {
		if r.log != nil {
			r.log.Warn(ctx, "candidate vector signal unavailable: "+err.Error())
		}
		return
	}

	for i := range items {
		item := items[i]
		sim, ok := sims[item.ID]
		if !ok {
			continue
		}
		candidate, exists := byID[item.ID]
		if exists && candidate.Score >= ScoreCutoff {
			if sim > vectorBlendMin {
				candidate.Score += sim * vectorBlendWeight
				if candidate.Score > 1 {
					candidate.Score = 1
				}
			}
			continue
		}
		if sim <= vectorAdmitMin {
			continue
		}
		admitted := sim * vectorAdmitScale
		if exists {
			if admitted > candidate.Score {
				candidate.Score = admitted
				candidate.FromVector = true
			}
			continue
		}
		byID[item.ID] = &Candidate{
			Item:       item,
			Score:      admitted,
			FromVector: true,
		}
	}
}

// overlapFractions returns the fraction of target words matched exactly (or
// by stem) in the query, and the fraction of the remainder matched fuzzily.
func overlapFractions(targetWords, targetStems, queryWords, queryStems []string) (exact, fuzzy float64) {
	if len(targetWords) == 0 {
		return 0, 0
	}

	querySet := make(map[string]bool, len(queryWords)+len(queryStems))
	for _, w := range queryWords {
		querySet[w] = true
	}
	for _, s := range queryStems {
		querySet[s] = true
	}

	exactCount, fuzzyCount := 0, 0
	for i, word := range targetWords {
		stem := word
		if i < len(targetStems) {
			stem = targetStems[i]
		}
		if querySet[word] || querySet[stem] {
			exactCount++
			continue
		}
		for _, qw := range queryWords {
			if Similarity(word, qw) > fuzzyWordThreshold {
				fuzzyCount++
				break
			}
		}
	}

	total := float64(len(targetWords))
	return float64(exactCount) / total, float64(fuzzyCount) / total
}

func matchesCategory(name string, textWords, textStems []string) bool {
	for _, word := range textnorm.Words(name) {
		stem := textnorm.Stem(word)
		for _, tw := range textWords {
			if tw == word || tw == stem {
				return true
			}
		}
		for _, ts := range textStems {
			if ts == word || ts == stem {
				return true
			}
		}
	}
	return false
}

func containedInAny(needle string, variants []string) bool {
	for _, variant := range variants {
		if strings.Contains(variant, needle) {
			return true
		}
	}
	return false
}
