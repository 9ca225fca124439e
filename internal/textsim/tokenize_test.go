package textsim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a bb", nil},
		{"hola a todos que tal el dia", []string{"hola", "todos", "que", "tal", "dia"}},
		{"aaa bbb aaa cc bbb", []string{"aaa", "bbb"}},
		// rune length, not byte length
		{"日本語 東京 ab", []string{"日本語"}},
	}
	for _, tc := range cases {
		got := Tokenize(tc.in)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("Tokenize(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	in := "uno dos tres cuatro cinco seis uno dos"
	first := Tokenize(in)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Tokenize(in)); diff != "" {
			t.Fatalf("tokenize changed between calls:\n%s", diff)
		}
	}
}

func TestTokenizeMin(t *testing.T) {
	got := TokenizeMin("ab abc abcd", 4)
	if diff := cmp.Diff([]string{"abcd"}, got); diff != "" {
		t.Fatalf("TokenizeMin mismatch:\n%s", diff)
	}
	if got := TokenizeMin("ab abc", 0); len(got) != 2 {
		t.Fatalf("min 0 should keep all tokens, got %v", got)
	}
}
