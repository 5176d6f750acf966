// Package command normalizes tool requests before policy evaluation:
// tokenizing wrapped command strings, stripping leading KEY=value
// assignments, and decomposing bash/sh wrapper invocations.
package command

import "strings"

// Tokenize splits a command string on unquoted whitespace. Single quotes
// take the content literally until the closing quote. Double quotes do the
// same, except a backslash still consumes the following character. Outside
// quotes a backslash emits the next character verbatim.
//
// Unbalanced quotes are tolerated: the current token is emitted at
// end-of-input. Empty or whitespace-only input yields an empty slice;
// callers that expect a command must treat that as an error.
func Tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	i := 0
	for i < len(s) {
		ch := s[i]
		switch ch {
		case ' ', '\t', '\n', '\r':
			flush()
			i++
		case '\'':
			inToken = true
			i++
			for i < len(s) && s[i] != '\'' {
				cur.WriteByte(s[i])
				i++
			}
			if i < len(s) {
				i++ // closing quote
			}
		case '"':
			inToken = true
			i++
			for i < len(s) && s[i] != '"' {
				if s[i] == '\\' && i+1 < len(s) {
					cur.WriteByte(s[i+1])
					i += 2
					continue
				}
				cur.WriteByte(s[i])
				i++
			}
			if i < len(s) {
				i++
			}
		case '\\':
			inToken = true
			if i+1 < len(s) {
				cur.WriteByte(s[i+1])
				i += 2
			} else {
				i++
			}
		default:
			inToken = true
			cur.WriteByte(ch)
			i++
		}
	}
	flush()

	if tokens == nil {
		return []string{}
	}
	return tokens
}

// Reconstruct joins tokens with single spaces and no added quoting. Policy
// regexes match against this exact form, so the join must stay stable.
func Reconstruct(tokens []string) string {
	return strings.Join(tokens, " ")
}
