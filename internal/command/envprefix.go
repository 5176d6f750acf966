package command

import (
	"errors"
	"strings"
)

// ErrNoCommand is returned when an invocation consists solely of KEY=value
// assignments with no command following them.
var ErrNoCommand = errors.New("no command found after environment variable assignments")

// Invocation is a normalized command invocation: leading KEY=value pairs
// separated from the program and its arguments.
type Invocation struct {
	// EnvVars holds the leading KEY=value assignments in original order.
	EnvVars []string
	// Cmd is the first real positional token.
	Cmd string
	// Args are the remaining tokens after Cmd.
	Args []string
}

// StripEnvPrefix extracts leading KEY=value assignments from cmd and args.
// A token is an assignment iff it contains '=' and does not start with '-',
// which keeps --flag=value arguments intact. The first token that is not an
// assignment becomes the command.
func StripEnvPrefix(cmd string, args []string) (*Invocation, error) {
	tokens := append([]string{cmd}, args...)

	var envVars []string
	for i, tok := range tokens {
		if strings.Contains(tok, "=") && !strings.HasPrefix(tok, "-") {
			envVars = append(envVars, tok)
			continue
		}
		return &Invocation{
			EnvVars: envVars,
			Cmd:     tok,
			Args:    tokens[i+1:],
		}, nil
	}
	return nil, ErrNoCommand
}

// Tokens returns the invocation re-concatenated to the original token list:
// env assignments, then the command, then its arguments.
func (inv *Invocation) Tokens() []string {
	out := make([]string, 0, len(inv.EnvVars)+1+len(inv.Args))
	out = append(out, inv.EnvVars...)
	out = append(out, inv.Cmd)
	out = append(out, inv.Args...)
	return out
}
