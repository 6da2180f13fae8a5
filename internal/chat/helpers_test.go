package chat

import (
	"strings"
	"testing"
)

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"507F1F77BCF86CD799439011", true},
		{"", false},
		{"507f1f77bcf86cd79943901", false},   // 23 chars
		{"507f1f77bcf86cd7994390111", false}, // 25 chars
		{"507f1f77bcf86cd79943901g", false},  // non-hex
		{strings.Repeat("a", 24), true},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestNotEmptyString(t *testing.T) {
	if notEmptyString("   ", 1) {
		t.Error("whitespace-only should not count")
	}
	if !notEmptyString(" x ", 1) {
		t.Error("trimmed content should count")
	}
	if notEmptyString("ab", 3) {
		t.Error("below min length should fail")
	}
}

func TestSmartCastInt(t *testing.T) {
	tests := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{" 42 ", 0, 42},
		{"-7", 0, -7},
		{"", 9, 9},
		{"4.2", 9, 9},
		{"nope", 9, 9},
	}
	for _, tt := range tests {
		if got := smartCastInt(tt.in, tt.def); got != tt.want {
			t.Errorf("smartCastInt(%q, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}

func TestTruncatePreview(t *testing.T) {
	if got := truncatePreview("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	// Multi-byte runes must not be split.
	if got := truncatePreview("héllo wörld", 5); got != "héllo" {
		t.Errorf("got %q", got)
	}
}

func TestRenderKeyDefinitionsIsACopy(t *testing.T) {
	defs := RenderKeyDefinitions()
	if len(defs) == 0 {
		t.Fatal("no key definitions")
	}
	defs[0].Definition = "scribbled"
	if RenderKeyDefinitions()[0].Definition == "scribbled" {
		t.Error("caller mutation leaked into the shared table")
	}
	seen := make(map[string]bool)
	for _, d := range defs {
		if seen[d.Key] {
			t.Errorf("duplicate key %q", d.Key)
		}
		seen[d.Key] = true
	}
}
