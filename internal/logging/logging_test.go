package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		fallback slog.Level
		want     slog.Level
	}{
		{"debug", slog.LevelInfo, slog.LevelDebug},
		{"INFO", slog.LevelWarn, slog.LevelInfo},
		{"warning", slog.LevelInfo, slog.LevelWarn},
		{"error", slog.LevelInfo, slog.LevelError},
		{"", slog.LevelWarn, slog.LevelWarn},
		{"verbose", slog.LevelInfo, slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, tt.fallback); got != tt.want {
			t.Errorf("parseLevel(%q, %v) = %v, want %v", tt.in, tt.fallback, got, tt.want)
		}
	}
}

func TestNewWithDefaults_JSONFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	log := NewWithDefaults(&buf, slog.LevelInfo)
	log.Debug("hidden")
	log.Info("ingestion complete", "chunks", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["msg"] != "ingestion complete" || rec["chunks"] != float64(3) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewWithDefaults_FallbackLevel(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	log := NewWithDefaults(&buf, slog.LevelWarn)
	log.Info("routine")
	if buf.Len() != 0 {
		t.Errorf("info should be suppressed at warn fallback, got %q", buf.String())
	}
	log.Warn("attention")
	if !strings.Contains(buf.String(), "msg=attention") {
		t.Errorf("expected text-format warn line, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected slog.Default for empty context")
	}
	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if FromContext(WithLogger(context.Background(), l)) != l {
		t.Error("expected stored logger")
	}
}
