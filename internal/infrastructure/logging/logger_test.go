package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/config"
)

func TestNewWithWriter_JSONDefaultAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	logger.Info("mqtt connected", "broker", "tcp://localhost:1883")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["service"] != "safehouse" {
		t.Errorf("service = %v, want safehouse", entry["service"])
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", entry["version"])
	}
	if entry["broker"] != "tcp://localhost:1883" {
		t.Errorf("broker = %v", entry["broker"])
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "TEXT"}, "dev", &buf)

	logger.Debug("routing", "topic", "7/rfid/frontdoor/1/scan")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Fatalf("expected text output, got %q", out)
	}
	if !strings.Contains(out, "topic=7/rfid/frontdoor/1/scan") {
		t.Errorf("output %q missing topic attribute", out)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn"}, "dev", &buf)

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn record missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWith_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{}, "dev", &buf).With("component", "router")

	logger.Warn("no handler for topic")

	if !strings.Contains(buf.String(), `"component":"router"`) {
		t.Errorf("output %q missing component attribute", buf.String())
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
