package textnorm

import "strings"

// minStemLen guards against over-stripping: a stem shorter than this is
// rejected and the word is returned unchanged.
const minStemLen = 2

// knownSuffixes holds common Turkish noun suffixes in normalized
// (diacritic-stripped) form, longest first so the longest match wins.
var knownSuffixes = []string{
	"lerinden", "larindan",
	"lerimiz", "larimiz",
	"lerden", "lardan",
	"lerini", "larini",
	"sinden", "sundan",
	"lerin", "larin",
	"lere", "lara",
	"leri", "lari",
	"imiz", "umuz", "iniz", "unuz",
	"den", "dan", "ten", "tan",
	"nin", "nun", "min", "mun",
	"ler", "lar",
	"yi", "yu", "ye", "ya",
	"si", "su", "sa", "se",
	"in", "un", "im", "um",
	"de", "da", "te", "ta",
	"i", "u", "e", "a",
}

// Stem strips the longest matching known suffix exactly once. It never
// produces a stem shorter than two characters.
func Stem(word string) string {
	word = Normalize(word)
	if word == "" {
		return word
	}

	for _, suffix := range knownSuffixes {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		stem := word[:len(word)-len(suffix)]
		if len(stem) < minStemLen {
			continue
		}
		return stem
	}
	return word
}

// StemWords stems every word of the input text.
func StemWords(text string) []string {
	words := Words(text)
	stems := make([]string, 0, len(words))
	for _, word := range words {
		stems = append(stems, Stem(word))
	}
	return stems
}
