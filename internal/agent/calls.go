package agent

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Some models ignore structured tool calling and emit calls inline in
// the content text instead, as
//
//	<function=NAME={"arg": "value"}</function>
//
// Note the asymmetric closing tag: the opener is never closed with '>'.
// These patterns match that format exactly; a model that gets the tag
// shape wrong produces no calls, and the text falls through as a plain
// response.
var (
	inlineCallPattern = regexp.MustCompile(`<function=([^=]+)=(\{[^}]+\})</function>`)
	inlineTagPattern  = regexp.MustCompile(`<function=[^>]+</function>`)
)

// Call is a tool invocation normalized from either wire format.
type Call struct {
	Name      string
	Arguments map[string]any
}

// HasInlineCalls reports whether content contains the inline call marker.
func HasInlineCalls(content string) bool {
	return strings.Contains(content, "<function=")
}

// ParseInlineCalls extracts inline tool calls from content in document
// order. A call whose argument payload is not valid JSON is logged and
// skipped without affecting its siblings.
func ParseInlineCalls(logger *slog.Logger, content string) []Call {
	if content == "" {
		return nil
	}

	matches := inlineCallPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var calls []Call
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		var args map[string]any
		if err := json.Unmarshal([]byte(m[2]), &args); err != nil {
			if logger != nil {
				logger.Error("failed to parse inline call arguments",
					"function", name, "arguments", m[2], "error", err)
			}
			continue
		}
		calls = append(calls, Call{Name: name, Arguments: args})
		if logger != nil {
			logger.Info("parsed inline function call", "function", name)
		}
	}

	return calls
}

// StripInlineCalls removes all inline call spans from content and
// trims the remainder.
func StripInlineCalls(content string) string {
	if content == "" {
		return ""
	}
	return strings.TrimSpace(inlineTagPattern.ReplaceAllString(content, ""))
}
