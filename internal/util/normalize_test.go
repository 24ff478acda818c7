package util

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase and punctuation", "Hello, World!  ", "hello world"},
		{"collapses whitespace", "a   b\t\nc", "a b c"},
		{"apostrophe removed", "don't", "dont"},
		{"symbols removed", "c++ == great", "c great"},
		{"empty input", "", ""},
		{"only punctuation", "?!...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{"Hello, World!", "  multiple   spaces  ", "already normal"}
	for _, in := range inputs {
		once := NormalizeText(in)
		twice := NormalizeText(once)
		if once != twice {
			t.Errorf("NormalizeText not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestContainsPhrase(t *testing.T) {
	if !ContainsPhrase("The answer is the EXTENDS keyword.", "extends") {
		t.Error("expected phrase to be found after normalization")
	}
	if ContainsPhrase("something else entirely", "extends") {
		t.Error("did not expect phrase to be found")
	}
}
