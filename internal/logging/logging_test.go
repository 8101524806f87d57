package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{" DEV ", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"prod", slog.LevelError, true},
		{"loud", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNew_DefaultsToErrors(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "")
	log.Info("hidden")
	log.Error("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRelay(t *testing.T) {
	var buf bytes.Buffer
	log := Relay(&buf, "warn")
	log.Info().Msg("hidden")
	log.Warn().Str("room", "r1").Msg("full")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("relay log is not JSON: %v", err)
	}
	if entry["service"] != "relay" || entry["room"] != "r1" || entry["message"] != "full" {
		t.Errorf("entry = %v", entry)
	}
}
