package pcodes

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// maxPcodeDigits bounds the numeric part of a code-shaped input.
const maxPcodeDigits = 12

// FormatRecord gives the digit width of each admin level of a country's
// pcodes, level 1 first. For example Yemen's "YE3001" is {"YEM", []int{2, 2}}.
type FormatRecord struct {
	ISO3   string
	Widths []int
}

// countryFormat is the derived format table of one country.
type countryFormat struct {
	prefixes []string        // canonical alphabetic prefixes seen in the data
	accepted map[string]bool // prefixes recognised on input
	vectors  [][]int         // known digit widths along a path from level 1
	lengths  map[int]bool    // pcode lengths for which pcodes are known
}

// LooksLikePcode reports whether candidate is shaped like a pcode of the
// country: the ISO3 code or its first two letters followed only by digits.
// It does not consult any loaded table.
func LooksLikePcode(candidate, countryISO3 string) bool {
	iso3 := strings.ToUpper(strings.TrimSpace(countryISO3))
	if len(iso3) != 3 {
		return false
	}
	prefix, _, ok := splitPcode(canonicalPcode(candidate))
	if !ok {
		return false
	}
	return prefix == iso3 || prefix == iso3[:2]
}

// splitPcode separates the alphabetic prefix from the digits of a code.
func splitPcode(code string) (prefix, digits string, ok bool) {
	i := 0
	for i < len(code) && isASCIILetter(code[i]) {
		i++
	}
	prefix, digits = code[:i], code[i:]
	if prefix == "" || digits == "" || len(digits) > maxPcodeDigits {
		return "", "", false
	}
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return "", "", false
		}
	}
	return prefix, digits, true
}

// buildFormats derives the format table of every country from the loaded
// units, the loaded parent admin sets and any explicit format records.
func (e *Engine) buildFormats() {
	e.formats = make(map[string]*countryFormat, len(e.countries))
	for iso3, ct := range e.countries {
		e.formats[iso3] = e.deriveFormat(ct)
	}
	for _, rec := range e.formatRecs {
		iso3 := strings.ToUpper(strings.TrimSpace(rec.ISO3))
		cf, ok := e.formats[iso3]
		if !ok {
			e.logger.Debug("format record for unloaded country", zap.String("country", iso3))
			continue
		}
		for n := 1; n <= len(rec.Widths); n++ {
			cf.addVector(rec.Widths[:n])
		}
	}
}

func (e *Engine) deriveFormat(ct *countryTable) *countryFormat {
	cf := &countryFormat{
		accepted: map[string]bool{ct.iso3: true},
		lengths:  map[int]bool{},
	}
	seenPrefix := map[string]bool{}
	widths := map[string][]int{}
	for _, u := range ct.units {
		cf.lengths[len(u.pcode)] = true
		if prefix, _, ok := splitPcode(u.pcode); ok && !seenPrefix[prefix] {
			seenPrefix[prefix] = true
			cf.prefixes = append(cf.prefixes, prefix)
		}
		if vec := e.widthsOf(u, widths); vec != nil {
			cf.addVector(vec)
		}
	}
	sort.Strings(cf.prefixes)

	iso2 := e.rules.iso2[ct.iso3]
	for _, p := range cf.prefixes {
		cf.accepted[p] = true
		if iso2 == "" && len(p) == 2 {
			iso2 = p
		}
	}
	if iso2 == "" {
		iso2 = ct.iso3[:2]
	}
	cf.accepted[iso2] = true

	for pcode := range e.parentAdmins {
		if prefix, _, ok := splitPcode(pcode); ok && seenPrefix[prefix] {
			cf.lengths[len(pcode)] = true
		}
	}
	return cf
}

// widthsOf returns the digit widths along the parent chain of u, or nil when
// the chain is not a clean nesting of codes.
func (e *Engine) widthsOf(u *adminUnit, memo map[string][]int) []int {
	if vec, ok := memo[u.pcode]; ok {
		return vec
	}
	var vec []int
	if u.parent == "" {
		if prefix, digits, ok := splitPcode(u.pcode); ok && prefix != "" {
			vec = []int{len(digits)}
		}
	} else if parent, ok := e.units[u.parent]; ok && strings.HasPrefix(u.pcode, parent.pcode) && len(u.pcode) > len(parent.pcode) {
		if pvec := e.widthsOf(parent, memo); pvec != nil {
			vec = append(append([]int(nil), pvec...), len(u.pcode)-len(parent.pcode))
		}
	}
	memo[u.pcode] = vec
	return vec
}

func (cf *countryFormat) addVector(vec []int) {
	for _, w := range vec {
		if w < 1 {
			return
		}
	}
	for _, existing := range cf.vectors {
		if equalInts(existing, vec) {
			return
		}
	}
	cf.vectors = append(cf.vectors, append([]int(nil), vec...))
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// looksLikePcode is LooksLikePcode extended with the prefixes seen in the data.
func (cf *countryFormat) looksLikePcode(code string) bool {
	prefix, _, ok := splitPcode(code)
	return ok && cf.accepted[prefix]
}

// ConvertPcode reinterprets a pcode written with a different prefix or digit
// widths (for example "YEM030" for "YE30") as a loaded pcode of the country.
// Parent hints break ties between several valid readings. It returns "" when
// no reading, or more than one, is valid.
func (e *Engine) ConvertPcode(inputCode, countryISO3 string, parentHints ...string) string {
	if e == nil || e.countries == nil {
		return ""
	}
	ct, ok := e.countries[strings.ToUpper(strings.TrimSpace(countryISO3))]
	if !ok {
		return ""
	}
	return e.convertPcode(ct, canonicalPcode(inputCode), parentHints)
}

// conversion is one valid reading of a code.
type conversion struct {
	pcode     string
	ancestors []string
}

func (e *Engine) convertPcode(ct *countryTable, code string, hints []string) string {
	cf := e.formats[ct.iso3]
	if cf == nil || !cf.looksLikePcode(code) {
		return ""
	}
	_, digits, _ := splitPcode(code)

	var found []conversion
	seen := map[string]bool{}
	for _, canon := range cf.prefixes {
		for _, vec := range cf.vectors {
			for _, segs := range splitDigits(digits, vec) {
				pcode := canon + strings.Join(segs, "")
				if seen[pcode] {
					continue
				}
				u, ok := e.units[pcode]
				if !ok || u.country != ct.idx {
					continue
				}
				ancestors, ok := e.knownAncestors(cf, canon, segs)
				if !ok {
					continue
				}
				seen[pcode] = true
				if u.parent != "" {
					ancestors = append(ancestors, u.parent)
				}
				found = append(found, conversion{pcode: pcode, ancestors: ancestors})
			}
		}
	}

	switch len(found) {
	case 0:
		return ""
	case 1:
		return found[0].pcode
	}
	var hinted []string
	for _, c := range found {
		if matchesHint(c, hints, ct.iso3) {
			hinted = append(hinted, c.pcode)
		}
	}
	if len(hinted) == 1 {
		return hinted[0]
	}
	e.logger.Debug("ambiguous pcode conversion",
		zap.String("country", ct.iso3),
		zap.String("code", code),
		zap.Int("readings", len(found)))
	return ""
}

// knownAncestors checks every intermediate prefix of a reading. Prefixes at a
// length with no known pcodes cannot be checked and are accepted.
func (e *Engine) knownAncestors(cf *countryFormat, canon string, segs []string) ([]string, bool) {
	var ancestors []string
	prefix := canon
	for _, seg := range segs[:len(segs)-1] {
		prefix += seg
		ancestors = append(ancestors, prefix)
		if !cf.lengths[len(prefix)] {
			continue
		}
		if _, ok := e.units[prefix]; ok {
			continue
		}
		if _, ok := e.parentAdmins[prefix]; ok {
			continue
		}
		return nil, false
	}
	return ancestors, true
}

func matchesHint(c conversion, hints []string, iso3 string) bool {
	for _, h := range hints {
		h = canonicalPcode(h)
		if h == "" {
			continue
		}
		if h == iso3 && len(c.ancestors) == 0 {
			return true
		}
		for _, a := range c.ancestors {
			if a == h {
				return true
			}
		}
	}
	return false
}

// splitDigits enumerates the ways digits can be cut into one segment per
// width, each rewritten to its width: a segment one digit short gets a
// leading zero, a segment one digit long loses its leading zero.
func splitDigits(digits string, widths []int) [][]string {
	if len(widths) == 0 {
		if digits == "" {
			return [][]string{nil}
		}
		return nil
	}
	w := widths[0]
	var out [][]string
	for _, n := range []int{w - 1, w, w + 1} {
		if n < 1 || n > len(digits) {
			continue
		}
		seg := digits[:n]
		switch n {
		case w - 1:
			seg = "0" + seg
		case w + 1:
			if seg[0] != '0' {
				continue
			}
			seg = seg[1:]
		}
		for _, rest := range splitDigits(digits[n:], widths[1:]) {
			out = append(out, append([]string{seg}, rest...))
		}
	}
	return out
}

// LoadPcodeFormats returns a new Engine whose format table also knows the
// given records. The receiver is not modified.
func (e *Engine) LoadPcodeFormats(records ...FormatRecord) (*Engine, error) {
	if e == nil || e.units == nil {
		return nil, ErrNotInitialized
	}
	c := e.clone()
	c.formatRecs = append(append([]FormatRecord(nil), e.formatRecs...), records...)
	c.buildFormats()
	return c, nil
}

// SetParentAdmins returns a new Engine that validates format conversions
// against the given parent-level pcode sets as well as its own units.
func (e *Engine) SetParentAdmins(sets ...[]string) (*Engine, error) {
	if e == nil || e.units == nil {
		return nil, ErrNotInitialized
	}
	c := e.clone()
	c.parentAdmins = make(map[string]struct{}, len(e.parentAdmins))
	for pcode := range e.parentAdmins {
		c.parentAdmins[pcode] = struct{}{}
	}
	c.addParentAdmins(sets)
	c.buildFormats()
	return c, nil
}

// PcodeFormats lists the digit-width sequences known for a country, such as
// "2" and "2,2" for Yemen.
func (e *Engine) PcodeFormats(countryISO3 string) []string {
	if e == nil || e.formats == nil {
		return nil
	}
	cf, ok := e.formats[strings.ToUpper(strings.TrimSpace(countryISO3))]
	if !ok {
		return nil
	}
	return cf.formatWidths()
}

// formatWidths renders the known width vectors of a country, e.g. "2,2".
func (cf *countryFormat) formatWidths() []string {
	out := make([]string, 0, len(cf.vectors))
	for _, vec := range cf.vectors {
		parts := make([]string, len(vec))
		for i, w := range vec {
			parts[i] = strconv.Itoa(w)
		}
		out = append(out, strings.Join(parts, ","))
	}
	sort.Strings(out)
	return out
}
