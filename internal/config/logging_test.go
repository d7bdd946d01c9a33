package config

import (
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  ERROR  ", slog.LevelError},
	}
	for _, c := range cases {
		got, err := ParseLogLevel(c.in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseLogLevel_Unknown(t *testing.T) {
	got, err := ParseLogLevel("verbose")
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
	if got != slog.LevelInfo {
		t.Errorf("fallback level = %v, want info", got)
	}
}

func TestReplaceLogLevelNames(t *testing.T) {
	attr := slog.Any(slog.LevelKey, LevelTrace)
	got := ReplaceLogLevelNames(nil, attr)
	if got.Value.String() != "TRACE" {
		t.Errorf("trace label = %q, want TRACE", got.Value.String())
	}

	attr = slog.Any(slog.LevelKey, slog.LevelWarn)
	got = ReplaceLogLevelNames(nil, attr)
	if got.Value.Any().(slog.Level) != slog.LevelWarn {
		t.Errorf("warn attr changed: %v", got.Value)
	}

	other := slog.String("msg", "hello")
	if got := ReplaceLogLevelNames(nil, other); got.Value.String() != "hello" {
		t.Errorf("non-level attr changed: %v", got.Value)
	}
}
