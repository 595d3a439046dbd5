package pcodes

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks returns a fresh transformer each call: transform chains keep
// internal state and must not be shared between goroutines.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize canonicalizes a raw admin name for fuzzy comparison.
//
// Accents are stripped, other Latin letters are transliterated to ASCII
// ("ø" -> "o", "ß" -> "ss") and characters from non-Latin scripts are
// dropped, so "Al Dhale'e / الضالع" becomes "al dhale'e /". Underscores are
// treated as spaces and abbreviation periods ("St. Louis") are removed.
// Apostrophes, slashes and hyphens are kept: they are left to the scoped
// replacement tables.
//
// Normalize is total and idempotent; whitespace-only input yields "".
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if stripped, _, err := transform.String(stripMarks(), s); err == nil {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '_':
			b.WriteByte(' ')
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		case unicode.Is(unicode.Latin, r):
			b.WriteString(unidecode.Unidecode(string(r)))
		default:
			b.WriteByte(' ')
		}
	}
	s = cases.Fold().String(b.String())
	return collapseSpaces(dropAbbreviationPeriods(s))
}

// nameKey is the form exact names and curated mappings are keyed on: every
// script is transliterated to ASCII first, then the result is normalized
// like any Latin name. It is empty only for blank names.
func nameKey(raw string) string {
	return Normalize(unidecode.Unidecode(strings.TrimSpace(raw)))
}

// normalizeFragment normalizes a replacement substring the way names are
// normalized, keeping one leading and one trailing space when the fragment
// has them, since those mark word boundaries (" City" -> " city").
func normalizeFragment(s string) string {
	if s == "" {
		return ""
	}
	core := Normalize(s)
	if core == "" {
		if strings.TrimSpace(s) == "" {
			return " "
		}
		return ""
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsSpace(first) {
		core = " " + core
	}
	if unicode.IsSpace(last) {
		core += " "
	}
	return core
}

// dropAbbreviationPeriods removes a period that directly follows a letter and
// ends a word ("st. louis" -> "st louis", "prov." -> "prov").
func dropAbbreviationPeriods(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' && i > 0 && isASCIILetter(s[i-1]) && (i == len(s)-1 || s[i+1] == ' ') {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
