package cues

import "testing"

func TestStripDirectives(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain text", want: "plain text"},
		{in: `{\i1}italic{\i0}`, want: "italic"},
		{in: `{\an8}Top line`, want: "Top line"},
		{in: `a {b} c`, want: "a  c"},
		{in: `{\pos(10,20)}{\c&H00FF00&}green`, want: "green"},
		{in: `trailing {\i1}`, want: "trailing "},
		{in: `keep {} empty`, want: "keep {} empty"},
		{in: `unmatched { brace`, want: "unmatched { brace"},
		{in: `{a{b}c}`, want: "c}"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := StripDirectives(tt.in); got != tt.want {
			t.Errorf("StripDirectives(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripDirectivesIsIdempotent(t *testing.T) {
	inputs := []string{
		`{\i1}x{\i0}`,
		`{{a}}`,
		`{a{b}c}`,
		`{}{x}`,
		`{\}`,
		`x { {y} z}`,
		`no directives here`,
	}
	for _, in := range inputs {
		once := StripDirectives(in)
		twice := StripDirectives(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}
