package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerCarriesServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "api", "info", "json")
	logger.Debug("hidden")
	logger.Info("files.upload.ok", "filename", "a.txt")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above debug level, got %d: %s", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if record["service"] != "api" || record["msg"] != "files.upload.ok" || record["filename"] != "a.txt" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestTextLoggerIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "backfill", "debug", "text")
	logger.Info("files.backfill.tagged", "filename", "a.txt")

	out := buf.String()
	if !strings.Contains(out, "files.backfill.tagged") || !strings.Contains(out, "a.txt") {
		t.Fatalf("unexpected text output: %q", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Fatalf("text format must not emit JSON: %q", out)
	}
}
