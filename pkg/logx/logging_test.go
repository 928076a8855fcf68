package logx

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want Level
	}{
		{"debug", LevelDebug},
		{" WARN ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.raw); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("expected zero logger")
	}
	// must not panic
	l.Error("nothing", String("k", "v"))
	if l.With(String("a", "b")).IsZero() {
		t.Fatal("derived logger with fields should not report zero")
	}
}

func TestWriterLoggerFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("comp", "test"))
	l.Warn("fetch failed", Int64("from_date", 42), Err(os.ErrDeadlineExceeded))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if m["message"] != "fetch failed" {
		t.Fatalf("message = %v", m["message"])
	}
	if m["comp"] != "test" {
		t.Fatalf("comp = %v", m["comp"])
	}
	if m["level"] != zerolog.WarnLevel.String() {
		t.Fatalf("level = %v", m["level"])
	}
	if v, ok := m["from_date"].(float64); !ok || v != 42 {
		t.Fatalf("from_date = %v", m["from_date"])
	}
	caller, _ := m[zerolog.CallerFieldName].(string)
	if !strings.HasPrefix(caller, "logging_test.go:") {
		t.Fatalf("caller = %q", caller)
	}
}

func TestServiceAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_errors.log")
	if err := os.WriteFile(path, []byte("previous line\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	log.Info("first")
	log.Debug("filtered out")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("second")
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.HasPrefix(s, "previous line\n") {
		t.Fatalf("file was truncated: %q", s)
	}
	if !strings.Contains(s, `"first"`) || !strings.Contains(s, `"second"`) {
		t.Fatalf("missing entries: %q", s)
	}
	if strings.Contains(s, "filtered out") {
		t.Fatalf("debug entry written at info level: %q", s)
	}
}
