package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsDiacriticsAndPunctuation(t *testing.T) {
	cases := map[string]string{
		"Tavuk Döner":           "tavuk doner",
		"  ÇOK   güzel!!! ":     "cok guzel",
		"şiş-köfte, acılı":      "sis kofte acili",
		"2 KOLA":                "2 kola",
		"İskender":              "iskender",
		"IŞIL ızgara":           "isil izgara",
		"":                      "",
		"...":                   "",
	}

	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "input %q", input)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"Tavuk Döner istiyorum!",
		"bir tavuk doner istiyorum",
		"ÇILGIN   burger & patates",
		"şşş---   123",
	}
	for _, input := range inputs {
		once := Normalize(input)
		require.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestStemStripsLongestSuffixOnce(t *testing.T) {
	cases := map[string]string{
		"doner":       "doner",
		"donerler":    "doner",
		"donerlerden": "doner",
		"kolalar":     "kola",
		"pizzalari":   "pizza",
		"ayran":       "ayran",
	}

	for input, want := range cases {
		assert.Equal(t, want, Stem(input), "input %q", input)
	}
}

func TestStemNeverProducesShortStem(t *testing.T) {
	// "su" ends with the "u" suffix but stripping would leave one rune.
	assert.Equal(t, "su", Stem("su"))
	assert.Equal(t, "cay", Stem("cay"))
}

func TestExpandSlangKeepsOriginalFirst(t *testing.T) {
	variants := ExpandSlang("bi kola")
	require.NotEmpty(t, variants)
	assert.Equal(t, "bi kola", variants[0])
	assert.Contains(t, variants, "bir kola")
}

func TestExpandSlangCapsCombinations(t *testing.T) {
	variants := ExpandSlang("slm mrb tmm evt dnr")
	assert.LessOrEqual(t, len(variants), MaxExpansions)
}

func TestExpandSlangEmptyInput(t *testing.T) {
	assert.Nil(t, ExpandSlang("   !!! "))
}

func TestWords(t *testing.T) {
	words := Words("Bir Tavuk Döner, lütfen")
	assert.Equal(t, []string{"bir", "tavuk", "doner", "lutfen"}, words)
	if strings.Join(words, " ") != Normalize("Bir Tavuk Döner, lütfen") {
		t.Fatalf("words should round-trip to normalized text")
	}
}
