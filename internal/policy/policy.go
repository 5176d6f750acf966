// Package policy classifies reconstructed command lines against ordered
// allow and deny regex rules. Deny wins over allow; a command matching
// neither set is denied.
package policy

import (
	"fmt"
	"regexp"
)

// RuleType identifies which rule list produced a match.
type RuleType string

const (
	RuleAllow RuleType = "allow"
	RuleDeny  RuleType = "deny"
)

// CheckResult is the structured outcome of a policy check. Reason is always
// non-empty; MatchedRule and RuleType are set together when a rule matched.
type CheckResult struct {
	Allowed     bool
	Reason      string
	MatchedRule string
	RuleType    RuleType
}

// Policy holds the process-wide execution policy. It is immutable after
// construction; the regexes are compiled once, case-insensitively.
type Policy struct {
	SandboxRoot       string
	WorktreeDetection bool
	TimeoutMs         int64
	MaxOutputBytes    int64
	EnvAllowlist      []string

	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

// Config carries the raw policy inputs prior to compilation.
type Config struct {
	SandboxRoot       string
	WorktreeDetection bool
	TimeoutMs         int64
	MaxOutputBytes    int64
	EnvAllowlist      []string
	Allow             []string
	Deny              []string
}

// New compiles the configured patterns into a Policy. The first pattern
// that fails to compile aborts construction; a broken policy must never
// serve requests.
func New(cfg Config) (*Policy, error) {
	p := &Policy{
		SandboxRoot:       cfg.SandboxRoot,
		WorktreeDetection: cfg.WorktreeDetection,
		TimeoutMs:         cfg.TimeoutMs,
		MaxOutputBytes:    cfg.MaxOutputBytes,
		EnvAllowlist:      append([]string(nil), cfg.EnvAllowlist...),
	}
	var err error
	if p.allow, err = compileAll(cfg.Allow); err != nil {
		return nil, fmt.Errorf("allow rule: %w", err)
	}
	if p.deny, err = compileAll(cfg.Deny); err != nil {
		return nil, fmt.Errorf("deny rule: %w", err)
	}
	return p, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pat, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// CheckCommand evaluates a reconstructed command line. Deny rules are
// consulted first; then allow rules in configured order; a command matching
// neither is denied with no matched rule.
func (p *Policy) CheckCommand(cmdline string) CheckResult {
	for _, re := range p.deny {
		if re.MatchString(cmdline) {
			return CheckResult{
				Allowed:     false,
				Reason:      "Command matches deny rule",
				MatchedRule: stripCaseFold(re.String()),
				RuleType:    RuleDeny,
			}
		}
	}
	for _, re := range p.allow {
		if re.MatchString(cmdline) {
			return CheckResult{
				Allowed:     true,
				Reason:      "Command matches allow rule",
				MatchedRule: stripCaseFold(re.String()),
				RuleType:    RuleAllow,
			}
		}
	}
	return CheckResult{
		Allowed: false,
		Reason:  "Command does not match any allow rule",
	}
}

// AllowSources returns the configured allow pattern sources in order.
func (p *Policy) AllowSources() []string { return sources(p.allow) }

// DenySources returns the configured deny pattern sources in order.
func (p *Policy) DenySources() []string { return sources(p.deny) }

func sources(res []*regexp.Regexp) []string {
	out := make([]string, len(res))
	for i, re := range res {
		out[i] = stripCaseFold(re.String())
	}
	return out
}

// stripCaseFold removes the (?i) prefix added at compile time so diagnostics
// show the pattern as the operator configured it.
func stripCaseFold(s string) string {
	if len(s) >= 4 && s[:4] == "(?i)" {
		return s[4:]
	}
	return s
}
