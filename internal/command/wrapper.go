package command

import (
	"errors"
	"path/filepath"
	"strings"
)

// Shell identifies which shell a wrapper invocation targets.
type Shell string

const (
	ShellBash Shell = "bash"
	ShellSh   Shell = "sh"
)

// Errors surfaced by ParseWrapper. The two "missing" variants distinguish
// whether parsing never saw -c or saw -c with nothing after it.
var (
	ErrMissingDashC        = errors.New("missing -c command string")
	ErrMissingCommandAfter = errors.New("missing command string after -c")
	ErrEmptyCommandString  = errors.New("empty command string")
)

// WrapperResult describes a bash/sh -c invocation decomposed for policy
// evaluation and re-assembly at spawn time.
type WrapperResult struct {
	// IsWrapper is false when the invocation is not a shell wrapper; only
	// ExecutableToCheck is meaningful in that case.
	IsWrapper bool
	// Shell is the wrapper shell (bash or sh) when IsWrapper.
	Shell Shell
	// ShouldUseLogin is set by the 'l' letter in a short flag cluster.
	ShouldUseLogin bool
	// CommandString is the argument to -c.
	CommandString string
	// FlagsBeforeCommand are user flags to preserve ahead of -c at spawn.
	FlagsBeforeCommand []string
	// ArgsAfterCommand is the index into the invocation args immediately
	// following the command string (trailing positional parameters), or -1
	// when there are none.
	ArgsAfterCommand int
	// ExecutableToCheck is the program the policy should judge: the first
	// token of the command string for wrappers, the command itself otherwise.
	ExecutableToCheck string
}

// shortFlagsTakingValue lists short flags whose value is the next token
// (e.g. "-o posix"). Such values are preserved alongside the flag.
var shortFlagsTakingValue = map[byte]bool{'o': true}

// ParseWrapper recognizes bash and sh used as shell wrappers. Anything else,
// or a shell invoked without a leading flag, passes through unchanged with
// ExecutableToCheck set to the command itself.
func ParseWrapper(cmd string, args []string) (*WrapperResult, error) {
	shell, ok := wrapperShell(cmd)
	if !ok || len(args) == 0 || !strings.HasPrefix(args[0], "-") {
		return &WrapperResult{
			IsWrapper:         false,
			ExecutableToCheck: cmd,
			ArgsAfterCommand:  -1,
		}, nil
	}

	res := &WrapperResult{
		IsWrapper:        true,
		Shell:            shell,
		ArgsAfterCommand: -1,
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		if strings.HasPrefix(arg, "--") {
			res.FlagsBeforeCommand = append(res.FlagsBeforeCommand, arg)
			i++
			continue
		}

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			// Positional token before any -c: the wrapper has no command
			// string to evaluate.
			return nil, ErrMissingDashC
		}

		// Short flag cluster: scan letters. 'l' sets login mode, 'c' demands
		// the command string in the next argument, anything else is
		// re-emitted as its own short flag.
		wantsCommand := false
		pendingValue := false
		for j := 1; j < len(arg); j++ {
			switch arg[j] {
			case 'l':
				res.ShouldUseLogin = true
			case 'c':
				wantsCommand = true
			default:
				res.FlagsBeforeCommand = append(res.FlagsBeforeCommand, "-"+string(arg[j]))
				pendingValue = shortFlagsTakingValue[arg[j]]
			}
		}
		i++

		if wantsCommand {
			if i >= len(args) {
				return nil, ErrMissingCommandAfter
			}
			res.CommandString = args[i]
			if i+1 < len(args) {
				res.ArgsAfterCommand = i + 1
			}
			tokens := Tokenize(res.CommandString)
			if len(tokens) == 0 {
				return nil, ErrEmptyCommandString
			}
			res.ExecutableToCheck = tokens[0]
			return res, nil
		}

		if pendingValue && i < len(args) && !strings.HasPrefix(args[i], "-") {
			res.FlagsBeforeCommand = append(res.FlagsBeforeCommand, args[i])
			i++
		}
	}

	return nil, ErrMissingDashC
}

func wrapperShell(cmd string) (Shell, bool) {
	switch filepath.Base(cmd) {
	case "bash":
		return ShellBash, true
	case "sh":
		return ShellSh, true
	default:
		return "", false
	}
}
