package log

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
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "info", true)

	Debug("hidden")
	Info("ultrasonic opened", "port", "/dev/ttyTHS1")

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Error("debug message should be filtered at info level")
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", line, err)
	}
	if rec["msg"] != "ultrasonic opened" || rec["port"] != "/dev/ttyTHS1" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "debug", false)

	With("component", "announce").Warn("render failed")

	out := buf.String()
	if !strings.Contains(out, "component=announce") || !strings.Contains(out, "render failed") {
		t.Errorf("unexpected output: %q", out)
	}
}
