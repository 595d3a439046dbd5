package pcodes

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trim and fold", "  Kabul  ", "kabul"},
		{"accents", "São Tomé", "sao tome"},
		{"tilde", "Ñuñoa", "nunoa"},
		{"sharp s", "Straße", "strasse"},
		{"stroke", "Øst", "ost"},
		{"abbreviation period", "St. Louis", "st louis"},
		{"trailing abbreviation", "Prov.", "prov"},
		{"underscore", "Hello_World", "hello world"},
		{"inner spaces", "Pul   e  Alam", "pul e alam"},
		{"non-latin script dropped", "Al Dhale'e / الضالع", "al dhale'e /"},
		{"punctuation kept", "Al-Dhale'e", "al-dhale'e"},
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"script only", "الضالع", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"São Tomé", "St. Louis", "Al Dhale'e / الضالع", "U.S.A.", "Hello_World",
		"Ñuñoa", "Straße", "  mixed   CASE  ", "a. b. c.", "Pul-e-Alam",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestDropAbbreviationPeriods(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"st. louis", "st louis"},
		{"u.s.a.", "u.s.a"},
		{"no periods", "no periods"},
		{"1. street", "1. street"},
	}
	for _, tt := range tests {
		if got := dropAbbreviationPeriods(tt.in); got != tt.want {
			t.Errorf("dropAbbreviationPeriods(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
