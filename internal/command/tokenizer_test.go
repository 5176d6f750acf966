package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "git status", []string{"git", "status"}},
		{"collapses whitespace", "  ls   -la  ", []string{"ls", "-la"}},
		{"empty", "", []string{}},
		{"whitespace only", "   \t ", []string{}},
		{"single quotes", "echo 'hello world'", []string{"echo", "hello world"}},
		{"double quotes", `echo "hello world"`, []string{"echo", "hello world"}},
		{"escape in double quotes", `echo "a\"b"`, []string{"echo", `a"b`}},
		{"backslash outside quotes", `echo a\ b`, []string{"echo", "a b"}},
		{"adjacent quoted parts", `echo 'a'"b"c`, []string{"echo", "abc"}},
		{"single quotes keep backslash", `echo 'a\nb'`, []string{"echo", `a\nb`}},
		{"empty quoted token", "echo ''", []string{"echo", ""}},
		{"unbalanced single quote", "echo 'abc", []string{"echo", "abc"}},
		{"unbalanced double quote", `echo "abc`, []string{"echo", "abc"}},
		{"trailing backslash", `echo abc\`, []string{"echo", "abc"}},
		{"tabs and newlines split", "a\tb\nc", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestReconstruct(t *testing.T) {
	assert.Equal(t, "git push origin main", Reconstruct([]string{"git", "push", "origin", "main"}))
	assert.Equal(t, "", Reconstruct(nil))
}
