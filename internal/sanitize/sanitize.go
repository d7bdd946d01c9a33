// Package sanitize cleans user-provided text before it reaches storage
// or the model. It strips script and HTML tags, escapes what remains,
// and enforces per-field length caps.
package sanitize

import (
	"html"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length caps per field.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 1000
	MaxChatMessageLen = 5000
)

var (
	scriptPattern  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
)

// Text sanitizes general text input: trims whitespace, removes script
// blocks and HTML tags, escapes HTML entities, and truncates to maxLen
// characters (0 means no cap). Truncation never splits a multi-byte
// rune, so the result is always valid UTF-8.
func Text(logger *slog.Logger, text string, maxLen int) string {
	if text == "" {
		return ""
	}

	s := strings.TrimSpace(text)
	s = scriptPattern.ReplaceAllString(s, "")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.EscapeString(s)

	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		if logger != nil {
			logger.Warn("input truncated", "original_len", len(text), "max_len", maxLen)
		}
		s = string([]rune(s)[:maxLen])
	}

	if logger != nil && s != strings.TrimSpace(text) {
		logger.Warn("suspicious content sanitized",
			"original_len", len(text), "sanitized_len", len(s))
	}

	return s
}

// ChatMessage sanitizes a chat message (cap 5000).
func ChatMessage(logger *slog.Logger, message string) string {
	return Text(logger, message, MaxChatMessageLen)
}

// TaskTitle sanitizes a task title (cap 200).
func TaskTitle(logger *slog.Logger, title string) string {
	return Text(logger, title, MaxTitleLen)
}

// TaskDescription sanitizes a task description (cap 1000).
// Empty input stays empty.
func TaskDescription(logger *slog.Logger, description string) string {
	if description == "" {
		return ""
	}
	return Text(logger, description, MaxDescriptionLen)
}
