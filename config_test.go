package pcodes

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const testConfigYAML = `
countries_fuzzy_try: [AFG, YEM]
admin_name_mappings:
  "Kabul City": AF0101
  "AFG|Kabol": AF01
  "AF02|Kabol": AF0201
admin_name_replacements:
  "'": ""
  "YEM|/": " "
admin_fuzzy_dont:
  - "AFG|Kabull"
  - "Lahij"
country_iso2:
  YEM: YE
similarity_threshold: 0.7
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.CountriesFuzzyTry, []string{"AFG", "YEM"}) {
		t.Errorf("CountriesFuzzyTry = %v", cfg.CountriesFuzzyTry)
	}
	wantMappings := map[ScopeKey]map[string]string{
		Global:         {"Kabul City": "AF0101"},
		Country("AFG"): {"Kabol": "AF01"},
		Parent("AF02"): {"Kabol": "AF0201"},
	}
	if !reflect.DeepEqual(cfg.NameMappings, wantMappings) {
		t.Errorf("NameMappings = %v, want %v", cfg.NameMappings, wantMappings)
	}
	wantReplacements := map[ScopeKey]map[string]string{
		Global:         {"'": ""},
		Country("YEM"): {"/": " "},
	}
	if !reflect.DeepEqual(cfg.NameReplacements, wantReplacements) {
		t.Errorf("NameReplacements = %v, want %v", cfg.NameReplacements, wantReplacements)
	}
	wantDont := map[ScopeKey][]string{
		Country("AFG"): {"Kabull"},
		Global:         {"Lahij"},
	}
	if !reflect.DeepEqual(cfg.FuzzyDont, wantDont) {
		t.Errorf("FuzzyDont = %v, want %v", cfg.FuzzyDont, wantDont)
	}
	if cfg.CountryISO2["YEM"] != "YE" || cfg.SimilarityThreshold != 0.7 {
		t.Errorf("CountryISO2 = %v, SimilarityThreshold = %v", cfg.CountryISO2, cfg.SimilarityThreshold)
	}

	e, err := New(testRecords, cfg)
	if err != nil {
		t.Fatalf("New() with parsed config error: %v", err)
	}
	runLookups(t, e, []lookupCase{
		{"parsed parent mapping", "AFG", "Kabol", LookupOptions{Parent: "AF02"}, "AF0201", true},
		{"parsed exclusion", "AFG", "Kabull", LookupOptions{Parent: "AF01"}, "", true},
		{"parsed threshold", "AFG", "Paghmann", LookupOptions{}, "AF0102", false},
	})
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig(nil) error: %v", err)
	}
	if cfg.CountriesFuzzyTry != nil || cfg.NameMappings != nil {
		t.Errorf("empty config = %+v", cfg)
	}
	if _, err := ParseConfig([]byte("admin_fuzzy_dont: {a: b")); err == nil {
		t.Error("ParseConfig should reject malformed YAML")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if len(cfg.NameMappings) != 3 {
		t.Errorf("loaded %d mapping scopes, want 3", len(cfg.NameMappings))
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig of a missing file should fail")
	}
}

func TestRuleListings(t *testing.T) {
	e := newTestEngine(t, Config{
		NameMappings: map[ScopeKey]map[string]string{
			Global:         {"MyMapping": "AF0102"},
			Country("afg"): {"MyMapping2": "af02"},
			Parent("AF01"): {"MyMapping3": "AF0101"},
		},
		NameReplacements: map[ScopeKey]map[string]string{
			Global:         {"sud": "south", " city": ""},
			Country("YEM"): {" city": ""},
			Parent("YE30"): {" city": ""},
		},
	})

	wantMappings := []string{
		"MyMapping: Paghman (AF0102)",
		"AFG|MyMapping2: Kapisa (AF02)",
		"AF01|MyMapping3: Kabul (AF0101)",
	}
	if got := e.NameMappings(); !reflect.DeepEqual(got, wantMappings) {
		t.Errorf("NameMappings() = %q, want %q", got, wantMappings)
	}
	wantReplacements := []string{
		" city: ",
		"sud: south",
		"YEM| city: ",
		"YE30| city: ",
	}
	if got := e.NameReplacements(); !reflect.DeepEqual(got, wantReplacements) {
		t.Errorf("NameReplacements() = %q, want %q", got, wantReplacements)
	}

	// callers get their own copy
	e.NameMappings()[0] = "changed"
	if got := e.NameMappings()[0]; got != wantMappings[0] {
		t.Errorf("NameMappings() shares its slice: %q", got)
	}

	if got := newTestEngine(t, Config{}).NameMappings(); len(got) != 0 {
		t.Errorf("NameMappings() without mappings = %q", got)
	}
	var nilEngine *Engine
	if nilEngine.NameReplacements() != nil {
		t.Error("NameReplacements() on a nil engine should be nil")
	}
}

func TestRuleListingsFromYAML(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}
	e := newTestEngine(t, cfg)
	want := []string{
		"Kabul City: Kabul (AF0101)",
		"AFG|Kabol: Kabul (AF01)",
		"AF02|Kabol: Kohistan (AF0201)",
	}
	if got := e.NameMappings(); !reflect.DeepEqual(got, want) {
		t.Errorf("NameMappings() = %q, want %q", got, want)
	}
}
