package pagestore

import (
	"encoding/json"
	"regexp"
	"strings"
)

var yamlKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+:(\s|$)`)

// SniffMIME classifies a returned chunk, best effort. The heuristics are
// part of the response contract: JSON, HTML, XML, CSV, YAML, then
// text/plain.
func SniffMIME(chunk string) string {
	trimmed := strings.TrimSpace(chunk)
	if trimmed == "" {
		return "text/plain"
	}

	if (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid([]byte(trimmed)) {
		return "application/json"
	}

	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
		return "text/html"
	}
	if trimmed[0] == '<' && strings.Contains(trimmed, "</") {
		return "application/xml"
	}

	firstLine := trimmed
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	if strings.Count(firstLine, ",") >= 2 {
		return "text/csv"
	}

	if !strings.Contains(trimmed, ";") &&
		(strings.HasPrefix(firstLine, "- ") || yamlKeyPattern.MatchString(firstLine)) {
		return "application/x-yaml"
	}

	return "text/plain"
}

// CountLines counts LF-delimited segments in a chunk. A trailing segment
// counts even without its terminator; an empty chunk has zero lines.
func CountLines(chunk string) int {
	if chunk == "" {
		return 0
	}
	n := strings.Count(chunk, "\n")
	if !strings.HasSuffix(chunk, "\n") {
		n++
	}
	return n
}
