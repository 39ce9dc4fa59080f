package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("info", "json", &buf)

	Get().Info("cache hit", "file_hash", "abc")
	Get().Debug("hidden")

	line := strings.TrimSpace(buf.String())
	if strings.Count(line, "\n") != 0 {
		t.Fatalf("expected exactly one record, got %q", line)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", line, err)
	}
	if rec["msg"] != "cache hit" || rec["file_hash"] != "abc" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestInit_TextFormatWithoutColour(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", "text", &buf)

	Get().Warn("generation failed", "error", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "generation failed") || !strings.Contains(out, "boom") {
		t.Errorf("expected message and error in output, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no ANSI colour codes when writing to a buffer, got %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Init("error", "json", &buf)

	Get().Info("dropped")
	SetLevel(slog.LevelInfo)
	Get().Info("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("unexpected output after level change: %q", out)
	}
}
