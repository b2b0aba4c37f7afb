package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("download complete",
		String(FieldComponent, "fetch"),
		Int64(FieldRecordingID, 42),
	)

	out := buf.String()
	if !strings.Contains(out, "INFO") {
		t.Errorf("expected level marker in output, got %q", out)
	}
	if !strings.Contains(out, "fetch: download complete") {
		t.Errorf("expected component-prefixed message, got %q", out)
	}
	if !strings.Contains(out, "recording_id=42") {
		t.Errorf("expected recording id attr, got %q", out)
	}
}

func TestConsoleHandlerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Debug("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("debug output not suppressed: %q", buf.String())
	}
}

func TestErrorAttr(t *testing.T) {
	attr := Error(errors.New("boom"))
	if attr.Key != "error" {
		t.Fatalf("unexpected key %q", attr.Key)
	}
	if attr.Value.Any().(error).Error() != "boom" {
		t.Fatalf("unexpected value %v", attr.Value)
	}
	nilAttr := Error(nil)
	if nilAttr.Value.String() != "<nil>" {
		t.Fatalf("nil error should render <nil>, got %v", nilAttr.Value)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewComponentLogger(t *testing.T) {
	logger := NewComponentLogger(nil, "pipeline")
	if logger == nil {
		t.Fatal("expected logger")
	}
}
