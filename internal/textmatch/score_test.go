package textmatch

import (
	"strings"
	"testing"
)

func TestRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 100},
		{"abc", "abc", 100},
		{"abc", "abd", 67},
		{"abc", "xyz", 0},
	}
	for _, tc := range cases {
		if got := Ratio(tc.a, tc.b); got != tc.want {
			t.Errorf("Ratio(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPartialRatioExactSubstring(t *testing.T) {
	hay := "it was the best of times it was the worst of times"
	needle := "the worst of times"
	al, ok := PartialRatio(needle, hay, 75)
	if !ok {
		t.Fatal("expected a match")
	}
	if al.Score != 100 {
		t.Errorf("score = %d, want 100", al.Score)
	}
	want := strings.Index(hay, needle)
	if al.Start != want {
		t.Errorf("start = %d, want %d", al.Start, want)
	}
}

func TestPartialRatioToleratesSubstitution(t *testing.T) {
	hay := "chapter one. the lighthouse keeper lit the lamp at dusk. chapter two."
	needle := "the lighthouse keeper lit the lemp at dusk"
	al, ok := PartialRatio(needle, hay, 75)
	if !ok {
		t.Fatal("expected a match despite one substitution")
	}
	if al.Score < 90 {
		t.Errorf("score = %d, want >= 90", al.Score)
	}
	anchor := strings.Index(hay, "the lighthouse")
	if delta := al.Start - anchor; delta < -5 || delta > 5 {
		t.Errorf("start = %d, want near %d", al.Start, anchor)
	}
}

func TestPartialRatioRejectsUnrelatedText(t *testing.T) {
	hay := "the quick brown fox jumps over the lazy dog near the river bank today"
	needle := "seventeen purple submarines descended rapidly"
	if _, ok := PartialRatio(needle, hay, 75); ok {
		t.Fatal("expected no match for unrelated text")
	}
}

func TestPartialRatioNeedleLongerThanHay(t *testing.T) {
	al, ok := PartialRatio("a much longer needle than the haystack", "longer needle", 0)
	if !ok {
		t.Fatal("expected fallback comparison")
	}
	if al.Start != 0 {
		t.Errorf("start = %d, want 0", al.Start)
	}
}

func TestPartialRatioEmptyInputs(t *testing.T) {
	if _, ok := PartialRatio("", "hay", 0); ok {
		t.Error("empty needle should not match")
	}
	if _, ok := PartialRatio("needle", "", 0); ok {
		t.Error("empty haystack should not match")
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"Hello, World!", "helloworld"},
		{"Café—Noir 12", "cafenoir12"},
		{"ｆｕｌｌｗｉｄｔｈ", "fullwidth"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
