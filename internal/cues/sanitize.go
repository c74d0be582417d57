package cues

import "regexp"

// directivePattern matches one brace tag: `{`, an optional backslash, at least
// one non-`}` character, then the first closing `}`.
var directivePattern = regexp.MustCompile(`\{\\?[^}]+\}`)

// StripDirectives removes every `{...}` and `{\...}` formatting directive
// from text. Surrounding text and whitespace are left untouched; an empty
// `{}` or an unmatched `{` stays literal.
func StripDirectives(text string) string {
	if text == "" {
		return text
	}
	return directivePattern.ReplaceAllString(text, "")
}
