package pcodes

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds the curated matching rules for an Engine. The zero value is
// usable: fuzzy matching is tried for every country and no overrides apply.
type Config struct {
	// CountriesFuzzyTry limits fuzzy matching to these ISO3 codes. Nil means all countries.
	CountriesFuzzyTry []string
	// NameMappings maps a name to a pcode per scope; these hits are authoritative.
	NameMappings map[ScopeKey]map[string]string
	// NameReplacements are textual substitutions tried during fuzzy matching.
	// Both sides are normalized like names, so "St." and "st" are the same key.
	NameReplacements map[ScopeKey]map[string]string
	// FuzzyDont lists names that must never be fuzzy matched, per scope.
	FuzzyDont map[ScopeKey][]string
	// CountryISO2 maps ISO3 to ISO2 codes for pcode prefix conversion.
	CountryISO2 map[string]string
	// SimilarityThreshold defaults to DefaultSimilarityThreshold when zero.
	SimilarityThreshold float64
	// PhoneticKey defaults to DoubleMetaphoneKey.
	PhoneticKey PhoneticKeyFunc
	// Similarity defaults to LevenshteinSimilarity.
	Similarity SimilarityFunc
}

// fileConfig is the YAML layout of a Config. Mapping, replacement and
// exclusion keys carry their scope as a prefix: "name", "AFG|name", "AF05|name".
type fileConfig struct {
	CountriesFuzzyTry   []string          `yaml:"countries_fuzzy_try"`
	NameMappings        map[string]string `yaml:"admin_name_mappings"`
	NameReplacements    map[string]string `yaml:"admin_name_replacements"`
	FuzzyDont           []string          `yaml:"admin_fuzzy_dont"`
	CountryISO2         map[string]string `yaml:"country_iso2"`
	SimilarityThreshold float64           `yaml:"similarity_threshold"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes the YAML form of a Config.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, err
	}
	cfg := Config{
		CountriesFuzzyTry:   fc.CountriesFuzzyTry,
		CountryISO2:         fc.CountryISO2,
		SimilarityThreshold: fc.SimilarityThreshold,
	}
	for key, pcode := range fc.NameMappings {
		scope, name := ParseScopedName(key)
		if cfg.NameMappings == nil {
			cfg.NameMappings = map[ScopeKey]map[string]string{}
		}
		if cfg.NameMappings[scope] == nil {
			cfg.NameMappings[scope] = map[string]string{}
		}
		cfg.NameMappings[scope][name] = pcode
	}
	for key, to := range fc.NameReplacements {
		scope, from := ParseScopedName(key)
		if cfg.NameReplacements == nil {
			cfg.NameReplacements = map[ScopeKey]map[string]string{}
		}
		if cfg.NameReplacements[scope] == nil {
			cfg.NameReplacements[scope] = map[string]string{}
		}
		cfg.NameReplacements[scope][from] = to
	}
	for _, key := range fc.FuzzyDont {
		scope, name := ParseScopedName(key)
		if cfg.FuzzyDont == nil {
			cfg.FuzzyDont = map[ScopeKey][]string{}
		}
		cfg.FuzzyDont[scope] = append(cfg.FuzzyDont[scope], name)
	}
	return cfg, nil
}

// engineConfig carries the functional options of New.
type engineConfig struct {
	logger       *zap.Logger
	matchLog     *MatchLog
	formats      []FormatRecord
	parentAdmins [][]string
}

// Option is a functional option for configuring an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger used for stage decisions (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMatchLog attaches a recorder for lookups made with a LogName.
func WithMatchLog(m *MatchLog) Option {
	return func(c *engineConfig) {
		c.matchLog = m
	}
}

// WithPcodeFormats seeds the format table with explicit per-level widths.
func WithPcodeFormats(records ...FormatRecord) Option {
	return func(c *engineConfig) {
		c.formats = append(c.formats, records...)
	}
}

// WithParentAdmins adds pcode sets of parent levels (for example an admin 1
// list when the engine holds admin 2 units) used to validate format conversions.
func WithParentAdmins(sets ...[]string) Option {
	return func(c *engineConfig) {
		c.parentAdmins = append(c.parentAdmins, sets...)
	}
}

func defaultEngineConfig() *engineConfig {
	return &engineConfig{logger: zap.NewNop()}
}

// rules is the validated, normalized form of a Config.
type rules struct {
	fuzzyTry     map[string]struct{} // nil means every country
	mappings     scopedMappings
	replacements scopedReplacements
	fuzzyDont    scopedSets
	iso2         map[string]string
	threshold    float64
	phoneticKey  PhoneticKeyFunc
	similarity   SimilarityFunc

	mappingLines     []string
	replacementLines []string
}

// ruleLine is one configured rule rendered for display.
type ruleLine struct {
	scope ScopeKey
	key   string
	text  string
}

// sortRuleLines orders lines global first, then countries, then parents,
// and by configured key within a scope.
func sortRuleLines(lines []ruleLine) []string {
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.scope.Kind != b.scope.Kind {
			return a.scope.Kind < b.scope.Kind
		}
		if a.scope.Code != b.scope.Code {
			return a.scope.Code < b.scope.Code
		}
		return a.key < b.key
	})
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

func scopePrefix(scope ScopeKey) string {
	if scope.Kind == ScopeGlobal {
		return ""
	}
	return scope.Code + "|"
}

// compile validates cfg against the loaded pcodes and normalizes its names.
func (cfg Config) compile(units map[string]*adminUnit) (*rules, error) {
	r := &rules{
		mappings:     scopedMappings{},
		replacements: scopedReplacements{},
		fuzzyDont:    scopedSets{},
		iso2:         map[string]string{},
		threshold:    cfg.SimilarityThreshold,
		phoneticKey:  cfg.PhoneticKey,
		similarity:   cfg.Similarity,
	}
	if r.threshold == 0 {
		r.threshold = DefaultSimilarityThreshold
	}
	if r.threshold < 0 || r.threshold > 1 {
		return nil, &ConfigError{Field: "SimilarityThreshold", Reason: fmt.Sprintf("%v is outside [0, 1]", r.threshold)}
	}
	if r.phoneticKey == nil {
		r.phoneticKey = DoubleMetaphoneKey
	}
	if r.similarity == nil {
		r.similarity = LevenshteinSimilarity
	}
	if cfg.CountriesFuzzyTry != nil {
		r.fuzzyTry = make(map[string]struct{}, len(cfg.CountriesFuzzyTry))
		for _, iso3 := range cfg.CountriesFuzzyTry {
			r.fuzzyTry[strings.ToUpper(strings.TrimSpace(iso3))] = struct{}{}
		}
	}
	for iso3, iso2 := range cfg.CountryISO2 {
		r.iso2[strings.ToUpper(iso3)] = strings.ToUpper(iso2)
	}

	var mappingLines, replacementLines []ruleLine
	for scope, names := range cfg.NameMappings {
		scope = canonicalScope(scope)
		for name, pcode := range names {
			pcode = canonicalPcode(pcode)
			u, ok := units[pcode]
			if !ok {
				return nil, &ConfigError{
					Field:  "NameMappings",
					Reason: fmt.Sprintf("%q maps to unknown pcode %q", name, pcode),
				}
			}
			if r.mappings[scope] == nil {
				r.mappings[scope] = map[string]string{}
			}
			r.mappings[scope][nameKey(name)] = pcode
			mappingLines = append(mappingLines, ruleLine{
				scope: scope,
				key:   name,
				text:  fmt.Sprintf("%s%s: %s (%s)", scopePrefix(scope), name, u.name, pcode),
			})
		}
	}
	for scope, table := range cfg.NameReplacements {
		scope = canonicalScope(scope)
		for from, to := range table {
			key := normalizeFragment(from)
			if key == "" {
				return nil, &ConfigError{Field: "NameReplacements", Reason: fmt.Sprintf("%q has an empty substring", from)}
			}
			if r.replacements[scope] == nil {
				r.replacements[scope] = map[string]string{}
			}
			r.replacements[scope][key] = normalizeFragment(to)
			replacementLines = append(replacementLines, ruleLine{
				scope: scope,
				key:   from,
				text:  fmt.Sprintf("%s%s: %s", scopePrefix(scope), from, to),
			})
		}
	}
	r.mappingLines = sortRuleLines(mappingLines)
	r.replacementLines = sortRuleLines(replacementLines)
	for scope, names := range cfg.FuzzyDont {
		scope = canonicalScope(scope)
		for _, name := range names {
			if r.fuzzyDont[scope] == nil {
				r.fuzzyDont[scope] = map[string]struct{}{}
			}
			r.fuzzyDont[scope][Normalize(name)] = struct{}{}
		}
	}
	return r, nil
}

func canonicalScope(k ScopeKey) ScopeKey {
	switch k.Kind {
	case ScopeCountry:
		return Country(k.Code)
	case ScopeParent:
		return Parent(k.Code)
	default:
		return Global
	}
}

func canonicalPcode(pcode string) string {
	return strings.ToUpper(strings.TrimSpace(pcode))
}

func (r *rules) fuzzyAllowed(iso3 string) bool {
	if r.fuzzyTry == nil {
		return true
	}
	_, ok := r.fuzzyTry[iso3]
	return ok
}

// NameMappings lists the configured name mappings as
// "<scope prefix><name>: <unit name> (<pcode>)", for example
// "AFG|Maydan: Maydan Shahr (AF0401)".
func (e *Engine) NameMappings() []string {
	if e == nil || e.rules == nil {
		return nil
	}
	return append([]string(nil), e.rules.mappingLines...)
}

// NameReplacements lists the configured replacements as
// "<scope prefix><from>: <to>", for example "COD| city: ".
func (e *Engine) NameReplacements() []string {
	if e == nil || e.rules == nil {
		return nil
	}
	return append([]string(nil), e.rules.replacementLines...)
}
