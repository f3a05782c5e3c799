package textnorm

import "strings"

// MaxExpansions caps the cartesian product of per-word slang expansions so
// a message full of abbreviations cannot blow up the variant set.
const MaxExpansions = 8

// slangExpansions maps normalized abbreviations to their full forms. A word
// may expand to more than one candidate; the original word always stays in
// the variant set alongside its expansions.
var slangExpansions = map[string][]string{
	"slm":    {"selam"},
	"mrb":    {"merhaba"},
	"nbr":    {"naber"},
	"tmm":    {"tamam"},
	"tsk":    {"tesekkurler"},
	"tskler": {"tesekkurler"},
	"evt":    {"evet"},
	"hyr":    {"hayir"},
	"bi":     {"bir"},
	"dnr":    {"doner"},
	"hmbgr":  {"hamburger"},
	"patso":  {"patates sosis"},
	"ayrn":   {"ayran"},
	"cig":    {"cig kofte"},
	"mnu":    {"menu"},
	"adrs":   {"adres"},
	"sprs":   {"siparis"},
	"tlfn":   {"telefon"},
}

// ExpandSlang returns every variant of the normalized input obtained by
// substituting known abbreviations with their full forms. The first entry
// is always the plain normalized text. The result is capped at
// MaxExpansions combinations.
func ExpandSlang(text string) []string {
	words := Words(text)
	if len(words) == 0 {
		return nil
	}

	variants := []string{""}
	for _, word := range words {
		choices := []string{word}
		choices = append(choices, slangExpansions[word]...)

		var next []string
		for _, prefix := range variants {
			for _, choice := range choices {
				if len(next) >= MaxExpansions {
					break
				}
				if prefix == "" {
					next = append(next, choice)
					continue
				}
				next = append(next, prefix+" "+choice)
			}
		}
		variants = next
	}

	return dedupeStrings(variants)
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
