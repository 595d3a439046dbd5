package pcodes

import (
	"reflect"
	"testing"
)

func TestParseScopedName(t *testing.T) {
	tests := []struct {
		key   string
		scope ScopeKey
		name  string
	}{
		{"Kabul", Global, "Kabul"},
		{"AFG|Kabul", Country("AFG"), "Kabul"},
		{"afg|Kabul", Country("AFG"), "Kabul"},
		{"AF05|Pul-e-Alam", Parent("AF05"), "Pul-e-Alam"},
		{"NG015|Ajingi", Parent("NG015"), "Ajingi"},
		{"A1B|x", Parent("A1B"), "x"},
		{"AFG|a|b", Country("AFG"), "a|b"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			scope, name := ParseScopedName(tt.key)
			if scope != tt.scope || name != tt.name {
				t.Errorf("ParseScopedName(%q) = (%v, %q), want (%v, %q)", tt.key, scope, name, tt.scope, tt.name)
			}
		})
	}
}

func TestScopeStrings(t *testing.T) {
	if ScopeGlobal.String() != "global" || ScopeCountry.String() != "country" || ScopeParent.String() != "parent" {
		t.Error("unexpected ScopeKind names")
	}
	if Global.String() != "" || Country("yem").String() != "YEM" || Parent(" ye30 ").String() != "YE30" {
		t.Error("unexpected ScopeKey rendering")
	}
}

func TestScopeChain(t *testing.T) {
	tests := []struct {
		country, parent string
		want            []ScopeKey
	}{
		{"AFG", "", []ScopeKey{Country("AFG"), Global}},
		{"AFG", "AFG", []ScopeKey{Country("AFG"), Global}},
		{"AFG", "AF01", []ScopeKey{Parent("AF01"), Country("AFG"), Global}},
	}
	for _, tt := range tests {
		if got := scopeChain(tt.country, tt.parent); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("scopeChain(%q, %q) = %v, want %v", tt.country, tt.parent, got, tt.want)
		}
	}
}

func TestScopedMappingsPriority(t *testing.T) {
	m := scopedMappings{
		Global:         {"kabol": "AF0102"},
		Country("AFG"): {"kabol": "AF01"},
		Parent("AF02"): {"kabol": "AF0201"},
	}
	tests := []struct {
		parent string
		want   string
		kind   ScopeKind
	}{
		{"", "AF01", ScopeCountry},
		{"AF01", "AF01", ScopeCountry},
		{"AF02", "AF0201", ScopeParent},
	}
	for _, tt := range tests {
		pcode, key, ok := m.lookup(scopeChain("AFG", tt.parent), "kabol")
		if !ok || pcode != tt.want || key.Kind != tt.kind {
			t.Errorf("lookup with parent %q = (%q, %v, %v), want %q from %v", tt.parent, pcode, key, ok, tt.want, tt.kind)
		}
	}
	if pcode, _, ok := m.lookup(scopeChain("YEM", ""), "kabol"); !ok || pcode != "AF0102" {
		t.Errorf("global mapping not applied in YEM: (%q, %v)", pcode, ok)
	}
	if _, _, ok := m.lookup(scopeChain("YEM", ""), "missing"); ok {
		t.Error("missing name should not resolve")
	}
}

func TestScopedReplacementsMerge(t *testing.T) {
	r := scopedReplacements{
		Global:         {"'": "", "/": " "},
		Country("YEM"): {"'": "e"},
	}
	merged := r.merged(scopeChain("YEM", ""))
	want := map[string]string{"'": "e", "/": " "}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("merged = %v, want %v", merged, want)
	}
	if got := applyReplacer(r.replacer(scopeChain("YEM", "")), "al dhale'e / x"); got != "al dhalee x" {
		t.Errorf("YEM replacement = %q", got)
	}
	if got := applyReplacer(r.replacer(scopeChain("AFG", "")), "al dhale'e / x"); got != "al dhalee x" {
		t.Errorf("AFG replacement = %q", got)
	}
}

func TestReplacerLongestFirst(t *testing.T) {
	r := scopedReplacements{Global: {"a": "b", "ab": "z"}}
	if got := applyReplacer(r.replacer([]ScopeKey{Global}), "abc"); got != "zc" {
		t.Errorf("replacement = %q, want %q", got, "zc")
	}
	if r := (scopedReplacements{}).replacer([]ScopeKey{Global}); r != nil {
		t.Error("empty tables should yield a nil replacer")
	}
	if got := applyReplacer(nil, "kabul"); got != "kabul" {
		t.Errorf("nil replacer changed the name: %q", got)
	}
}

func TestScopedSetsContains(t *testing.T) {
	s := scopedSets{Country("AFG"): {"kabull": {}}}
	if key, ok := s.contains(scopeChain("AFG", "AF01"), "kabull"); !ok || key != Country("AFG") {
		t.Errorf("contains = (%v, %v)", key, ok)
	}
	if _, ok := s.contains(scopeChain("YEM", ""), "kabull"); ok {
		t.Error("AFG exclusion applied to YEM")
	}
}
