package pcodes

import (
	"strings"

	"go.uber.org/zap"
)

// minSubstringLen is the shortest replaced input tried as a substring of
// candidate names.
const minSubstringLen = 3

// LookupOptions configures a single GetPcode call.
type LookupOptions struct {
	// Parent restricts name matching to the children of this pcode. The
	// country's ISO3 code selects top-level units. Direct pcode hits ignore it.
	Parent string
	// NoFuzzy disables replacement, substring and phonetic matching.
	NoFuzzy bool
	// LogName labels the decision in the engine's MatchLog, if one is attached.
	LogName string
}

// How a pcode was found, as reported in the match log.
const (
	matchedByConversion  = "pcode length conversion"
	matchedByMapping     = "mapping"
	matchedByReplacement = "replacement"
	matchedBySubstring   = "substring"
	matchedByPhonetics   = "fuzzy"
)

// GetPcode resolves input, a pcode or a name, within a country.
//
// Stages run in order and stop at the first hit: direct pcode, pcode format
// conversion, exact name, curated name mapping and finally fuzzy matching.
// Exact names and mappings compare transliterated names (see nameKey), so
// names in any script resolve; fuzzy matching compares Normalize forms.
// exact is false only for fuzzy hits. A miss returns ("", true, nil): the
// absence of a match is certain and never reported as a low-confidence hit.
func (e *Engine) GetPcode(countryISO3, input string, opts ...LookupOptions) (pcode string, exact bool, err error) {
	if e == nil || e.units == nil {
		return "", false, ErrNotInitialized
	}
	iso3 := strings.ToUpper(strings.TrimSpace(countryISO3))
	ct, ok := e.countries[iso3]
	if !ok {
		return "", false, &UnknownScopeError{Country: iso3}
	}
	options := LookupOptions{}
	if len(opts) > 0 {
		options = opts[0]
	}
	parent := canonicalPcode(options.Parent)
	logName := options.LogName

	code := canonicalPcode(input)
	if u, ok := e.units[code]; ok && u.country == ct.idx {
		return u.pcode, true, nil
	}
	codeShaped := e.formats[iso3].looksLikePcode(code)
	if codeShaped {
		var hints []string
		if parent != "" {
			hints = []string{parent}
		}
		if pcode := e.convertPcode(ct, code, hints); pcode != "" {
			e.recordMatch(logName, iso3, pcode, pcode, matchedByConversion)
			return pcode, true, nil
		}
	}

	key := nameKey(input)
	if key == "" {
		return "", true, nil
	}
	if u := pickUnit(ct.byName[key], func(u *adminUnit) bool { return ct.inScope(u, parent) }); u != nil {
		return u.pcode, true, nil
	}

	chain := scopeChain(iso3, parent)
	if pcode, scope, ok := e.rules.mappings.lookup(chain, key); ok {
		if u := e.units[pcode]; u.country == ct.idx && ct.inScope(u, parent) {
			e.recordMatch(logName, iso3, input, pcode, matchedByMapping)
			return pcode, true, nil
		}
		e.logger.Debug("name mapping outside lookup scope",
			zap.String("country", iso3),
			zap.String("name", key),
			zap.String("scope", scope.Kind.String()),
			zap.String("pcode", pcode))
	}

	if options.NoFuzzy || codeShaped {
		return "", true, nil
	}
	if !e.rules.fuzzyAllowed(iso3) {
		e.recordIgnored(logName, iso3, "")
		return "", true, nil
	}
	// Fuzzy matching works on Latin text only; names written wholly in
	// another script have nothing left to compare.
	name := Normalize(input)
	if name == "" {
		e.recordError(logName, iso3, input)
		return "", true, nil
	}
	if scope, excluded := e.rules.fuzzyDont.contains(chain, name); excluded {
		e.logger.Debug("fuzzy matching excluded",
			zap.String("country", iso3),
			zap.String("name", name),
			zap.String("scope", scope.Kind.String()))
		e.recordIgnored(logName, iso3, input)
		return "", true, nil
	}

	pcode, how := e.fuzzyMatch(ct.scopeUnits(parent), chain, name)
	if pcode == "" {
		e.recordError(logName, iso3, input)
		return "", true, nil
	}
	e.recordMatch(logName, iso3, input, pcode, how)
	return pcode, false, nil
}

// scopeUnits returns the units names are matched against.
func (ct *countryTable) scopeUnits(parent string) []*adminUnit {
	switch parent {
	case "":
		return ct.units
	case ct.iso3:
		return ct.children[""]
	default:
		return ct.children[parent]
	}
}

func (ct *countryTable) inScope(u *adminUnit, parent string) bool {
	switch parent {
	case "":
		return true
	case ct.iso3:
		return u.parent == ""
	default:
		return u.parent == parent
	}
}

// pickUnit returns the single unit among units that passes keep. Several
// distinct hits resolve to the shallowest one if it is unique.
func pickUnit(units []*adminUnit, keep func(*adminUnit) bool) *adminUnit {
	var best *adminUnit
	tied := false
	for _, u := range units {
		if keep != nil && !keep(u) {
			continue
		}
		switch {
		case best == nil || u.depth < best.depth:
			best, tied = u, false
		case u.depth == best.depth && u.pcode != best.pcode:
			tied = true
		}
	}
	if tied {
		return nil
	}
	return best
}

// fuzzyMatch runs the fuzzy sub-stages over the scope: equality after
// replacements, unique substring, then phonetic key plus similarity.
func (e *Engine) fuzzyMatch(scope []*adminUnit, chain []ScopeKey, name string) (string, string) {
	rep := e.rules.replacements.replacer(chain)
	replaced := applyReplacer(rep, name)
	candidates := make([]string, len(scope))
	for i, u := range scope {
		candidates[i] = applyReplacer(rep, u.normName)
	}

	if replaced != "" {
		var hits []*adminUnit
		for i, u := range scope {
			if candidates[i] == replaced {
				hits = append(hits, u)
			}
		}
		if u := pickUnit(hits, nil); u != nil {
			return u.pcode, matchedByReplacement
		}
	}

	if len(replaced) >= minSubstringLen {
		var hits []*adminUnit
		for i, u := range scope {
			if strings.Contains(candidates[i], replaced) {
				hits = append(hits, u)
			}
		}
		if u := pickUnit(hits, nil); u != nil {
			return u.pcode, matchedBySubstring
		}
	}

	input := phoneticForms(name, e.rules.phoneticKey)
	if replaced != name {
		input = append(input, phoneticForms(replaced, e.rules.phoneticKey)...)
	}
	if len(input) == 0 {
		return "", ""
	}
	var best *adminUnit
	bestScore, tied := 0.0, false
	for i, u := range scope {
		forms := u.forms
		if candidates[i] != u.normName {
			forms = append(append([]phoneticForm(nil), forms...), phoneticForms(candidates[i], e.rules.phoneticKey)...)
		}
		score, ok := phoneticScore(input, forms, e.rules.similarity)
		if !ok || score < e.rules.threshold {
			continue
		}
		switch {
		case best == nil || score > bestScore:
			best, bestScore, tied = u, score, false
		case score == bestScore && u.pcode != best.pcode:
			tied = true
		}
	}
	if best == nil || tied {
		return "", ""
	}
	return best.pcode, matchedByPhonetics
}

func (e *Engine) recordMatch(logName, iso3, input, pcode, how string) {
	if logName == "" || e.matchLog == nil {
		return
	}
	e.matchLog.addMatch(logName, iso3, input, e.units[pcode].name, how)
}

func (e *Engine) recordIgnored(logName, iso3, input string) {
	if logName == "" || e.matchLog == nil {
		return
	}
	e.matchLog.addIgnored(logName, iso3, input)
}

func (e *Engine) recordError(logName, iso3, input string) {
	if logName == "" || e.matchLog == nil {
		return
	}
	e.matchLog.addError(logName, iso3, input)
}
