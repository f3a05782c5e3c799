package conversation

import (
	"github.com/aydinemre/menubot-backend/internal/textnorm"
)

// Keyword sets are matched on normalized text, so diacritics and case never
// matter. Reset is checked before any phase logic.
var (
	resetKeywords = map[string]bool{
		"iptal et":     true,
		"bastan basla": true,
		"sifirla":      true,
		"vazgectim":    true,
		"cancel":       true,
		"reset":        true,
	}
	cancelKeywords = map[string]bool{
		"iptal":     true,
		"vazgec":    true,
		"istemem":   true,
		"birakalim": true,
	}
	confirmKeywords = map[string]bool{
		"evet":      true,
		"tamam":     true,
		"onayla":    true,
		"onaylandi": true,
		"olur":      true,
		"tamamdir":  true,
		"ok":        true,
	}
	menuKeywords = map[string]bool{
		"menu":          true,
		"menuyu gor":    true,
		"neler var":     true,
		"fiyat listesi": true,
	}
	editKeywords = map[string]bool{
		"degistir": true,
		"duzelt":   true,
		"ekle":     true,
		"cikar":    true,
	}
	cashKeywords = map[string]bool{
		"nakit":        true,
		"kapida nakit": true,
		"elden":        true,
	}
	cardKeywords = map[string]bool{
		"kart":         true,
		"kredi karti":  true,
		"kartla":       true,
		"online odeme": true,
	}
	greetingKeywords = map[string]bool{
		"merhaba":    true,
		"selam":      true,
		"iyi gunler": true,
		"hello":      true,
		"naber":      true,
	}
	thanksKeywords = map[string]bool{
		"tesekkurler":     true,
		"tesekkur ederim": true,
		"sagol":           true,
		"eyvallah":        true,
	}
	helpKeywords = map[string]bool{
		"yardim":        true,
		"nasil siparis": true,
		"help":          true,
	}
)

func matchesKeyword(set map[string]bool, text string) bool {
	normalized := textnorm.Normalize(text)
	if set[normalized] {
		return true
	}
	for _, variant := range textnorm.ExpandSlang(text) {
		if set[variant] {
			return true
		}
	}
	return false
}

func isReset(text string) bool   { return matchesKeyword(resetKeywords, text) }
func isCancel(text string) bool  { return matchesKeyword(cancelKeywords, text) }
func isConfirm(text string) bool { return matchesKeyword(confirmKeywords, text) }
func isMenu(text string) bool    { return matchesKeyword(menuKeywords, text) }
func isEdit(text string) bool    { return matchesKeyword(editKeywords, text) }
func isCash(text string) bool    { return matchesKeyword(cashKeywords, text) }
func isCard(text string) bool    { return matchesKeyword(cardKeywords, text) }

// utteranceClass buckets a message that produced no actionable extraction.
type utteranceClass string

const (
	utteranceGreeting utteranceClass = "greeting"
	utteranceThanks   utteranceClass = "thanks"
	utteranceHelp     utteranceClass = "help"
	utteranceUnknown  utteranceClass = "unknown"
)

func classifyUtterance(text string) utteranceClass {
	switch {
	case matchesKeyword(greetingKeywords, text):
		return utteranceGreeting
	case matchesKeyword(thanksKeywords, text):
		return utteranceThanks
	case matchesKeyword(helpKeywords, text):
		return utteranceHelp
	default:
		return utteranceUnknown
	}
}
