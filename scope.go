package pcodes

import (
	"sort"
	"strings"
)

// ScopeKind orders override scopes from least to most specific.
type ScopeKind uint8

const (
	ScopeGlobal ScopeKind = iota
	ScopeCountry
	ScopeParent
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeCountry:
		return "country"
	case ScopeParent:
		return "parent"
	default:
		return "global"
	}
}

// ScopeKey identifies the context an override rule applies to.
type ScopeKey struct {
	Kind ScopeKind
	Code string // ISO3 for ScopeCountry, parent pcode for ScopeParent
}

// Global is the scope that applies to every lookup.
var Global = ScopeKey{Kind: ScopeGlobal}

// Country returns the scope for all lookups in a country.
func Country(iso3 string) ScopeKey {
	return ScopeKey{Kind: ScopeCountry, Code: strings.ToUpper(strings.TrimSpace(iso3))}
}

// Parent returns the scope for lookups restricted to the children of a pcode.
func Parent(pcode string) ScopeKey {
	return ScopeKey{Kind: ScopeParent, Code: strings.ToUpper(strings.TrimSpace(pcode))}
}

// String renders the key in the prefix form used by configuration files.
func (k ScopeKey) String() string {
	if k.Kind == ScopeGlobal {
		return ""
	}
	return k.Code
}

// ParseScopedName splits a configuration key such as "AFG|Kabul" or
// "AF05|Pul-e-Alam" into its scope and name. A key without "|" is global;
// a three-letter prefix is a country, anything else a parent pcode.
func ParseScopedName(key string) (ScopeKey, string) {
	prefix, name, found := strings.Cut(key, "|")
	if !found {
		return Global, key
	}
	prefix = strings.TrimSpace(prefix)
	if len(prefix) == 3 && isLetters(prefix) {
		return Country(prefix), name
	}
	return Parent(prefix), name
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isASCIILetter(s[i]) {
			return false
		}
	}
	return s != ""
}

// scopeChain lists the scopes of a lookup, most specific first.
func scopeChain(countryISO3, parent string) []ScopeKey {
	if parent != "" && parent != countryISO3 {
		return []ScopeKey{Parent(parent), Country(countryISO3), Global}
	}
	return []ScopeKey{Country(countryISO3), Global}
}

// scopedMappings resolves name overrides: the first scope holding the name wins.
type scopedMappings map[ScopeKey]map[string]string

func (m scopedMappings) lookup(chain []ScopeKey, name string) (string, ScopeKey, bool) {
	for _, key := range chain {
		if pcode, ok := m[key][name]; ok {
			return pcode, key, true
		}
	}
	return "", ScopeKey{}, false
}

// scopedSets resolves fuzzy exclusions: the first scope holding the name wins.
type scopedSets map[ScopeKey]map[string]struct{}

func (s scopedSets) contains(chain []ScopeKey, name string) (ScopeKey, bool) {
	for _, key := range chain {
		if _, ok := s[key][name]; ok {
			return key, true
		}
	}
	return ScopeKey{}, false
}

// scopedReplacements merges replacement tables across every scope of a chain.
type scopedReplacements map[ScopeKey]map[string]string

// merged returns the union of all applicable replacements. When scopes
// disagree on a substring the most specific scope's replacement is kept.
func (r scopedReplacements) merged(chain []ScopeKey) map[string]string {
	out := map[string]string{}
	for _, key := range chain {
		for from, to := range r[key] {
			if _, seen := out[from]; !seen {
				out[from] = to
			}
		}
	}
	return out
}

// replacer builds a simultaneous replacer for a chain, or nil when no
// replacements apply. Longer substrings are tried first.
func (r scopedReplacements) replacer(chain []ScopeKey) *strings.Replacer {
	merged := r.merged(chain)
	if len(merged) == 0 {
		return nil
	}
	froms := make([]string, 0, len(merged))
	for from := range merged {
		froms = append(froms, from)
	}
	sort.Slice(froms, func(i, j int) bool {
		if len(froms[i]) != len(froms[j]) {
			return len(froms[i]) > len(froms[j])
		}
		return froms[i] < froms[j]
	})
	pairs := make([]string, 0, 2*len(froms))
	for _, from := range froms {
		pairs = append(pairs, from, merged[from])
	}
	return strings.NewReplacer(pairs...)
}

// applyReplacer rewrites a normalized name and collapses the resulting whitespace.
func applyReplacer(rep *strings.Replacer, name string) string {
	if rep == nil {
		return name
	}
	return collapseSpaces(rep.Replace(name))
}
