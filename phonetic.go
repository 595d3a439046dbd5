package pcodes

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/antzucaro/matchr"
	"github.com/xrash/smetrics"
)

// DefaultSimilarityThreshold is the minimum secondary similarity a phonetic
// candidate must reach to count as a fuzzy match.
const DefaultSimilarityThreshold = 0.6

// PhoneticKeyFunc maps a normalized name to a comparable phonetic key.
// Equal keys are required, but not sufficient, for a fuzzy match.
type PhoneticKeyFunc func(name string) string

// SimilarityFunc scores two normalized names in [0, 1], 1 meaning identical.
type SimilarityFunc func(a, b string) float64

// DoubleMetaphoneKey is the default phonetic key: the primary Double Metaphone
// code of the name with its spaces removed.
func DoubleMetaphoneKey(name string) string {
	word := lettersOnly(name)
	if word == "" {
		return ""
	}
	primary, _ := matchr.DoubleMetaphone(word)
	return primary
}

// NYSIISKey encodes the name with the NYSIIS algorithm.
func NYSIISKey(name string) string {
	word := lettersOnly(name)
	if word == "" {
		return ""
	}
	return matchr.NYSIIS(word)
}

// SoundexKey encodes the name with American Soundex.
func SoundexKey(name string) string {
	word := lettersOnly(name)
	if word == "" {
		return ""
	}
	return matchr.Soundex(word)
}

// LevenshteinSimilarity compares the token-sorted forms of a and b and turns
// their edit distance into a ratio of the longer length.
func LevenshteinSimilarity(a, b string) float64 {
	a, b = tokenSort(a), tokenSort(b)
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// JaroWinklerSimilarity compares the token-sorted forms of a and b with the
// Jaro-Winkler metric.
func JaroWinklerSimilarity(a, b string) float64 {
	return smetrics.JaroWinkler(tokenSort(a), tokenSort(b), 0.7, 4)
}

func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// lettersOnly keeps the ASCII letters of a normalized name.
func lettersOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isASCIILetter(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// arabicArticles are leading articles that transliterated names carry
// inconsistently ("Al Dali", "Ad Dali", "Dali").
var arabicArticles = []string{"al", "ad", "an", "ar", "as", "ash", "at", "az", "el"}

// nameVariants returns the forms of a normalized name that take part in
// phonetic comparison: the name itself, the name without spaces and the name
// without a leading article.
func nameVariants(name string) []string {
	variants := []string{name}
	if joined := strings.ReplaceAll(name, " ", ""); joined != name && joined != "" {
		variants = append(variants, joined)
	}
	for _, article := range arabicArticles {
		if rest, ok := strings.CutPrefix(name, article+" "); ok && rest != "" {
			variants = append(variants, rest)
			break
		}
		if rest, ok := strings.CutPrefix(name, article+"-"); ok && rest != "" {
			variants = append(variants, rest)
			break
		}
	}
	return variants
}

// phoneticForm is a name variant with its precomputed key.
type phoneticForm struct {
	text string
	key  string
}

func phoneticForms(name string, key PhoneticKeyFunc) []phoneticForm {
	variants := nameVariants(name)
	forms := make([]phoneticForm, 0, len(variants))
	for _, v := range variants {
		if k := key(v); k != "" {
			forms = append(forms, phoneticForm{text: v, key: k})
		}
	}
	return forms
}

// phoneticScore returns the best similarity over variant pairs that share a
// phonetic key, and false when no pair does.
func phoneticScore(input, candidate []phoneticForm, similarity SimilarityFunc) (float64, bool) {
	best, matched := 0.0, false
	for _, in := range input {
		for _, cand := range candidate {
			if in.key != cand.key {
				continue
			}
			matched = true
			if s := similarity(in.text, cand.text); s > best {
				best = s
			}
		}
	}
	return best, matched
}
