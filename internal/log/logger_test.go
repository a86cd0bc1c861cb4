package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/venturelab/compass/internal/errors"
)

func newBufferLogger(format Format, level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := New(Config{
		Level:  level,
		Format: format,
		Output: NewOutput(buf),
	})
	return logger, buf
}

func TestJSONOutput(t *testing.T) {
	logger, buf := newBufferLogger(FormatJSON, LevelInfo)

	logger.Info("plan saved", "plan_id", "p-123", "stages", 4)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "plan saved" {
		t.Errorf("expected msg 'plan saved', got %v", entry["msg"])
	}
	if entry["plan_id"] != "p-123" {
		t.Errorf("expected plan_id p-123, got %v", entry["plan_id"])
	}
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(FormatText, LevelWarn)

	logger.Debug("should be filtered")
	logger.Info("should be filtered")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("messages below WARN should be filtered, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("WARN message missing from output: %s", out)
	}
}

func TestWithErrorCompassError(t *testing.T) {
	logger, buf := newBufferLogger(FormatJSON, LevelInfo)

	err := errors.New(errors.ErrCodeSynthAPI, "generation failed").
		WithSuggestion("retry later")
	logger.WithError(err).Error("reconcile failed")

	out := buf.String()
	if !strings.Contains(out, "SYNTH-004") {
		t.Errorf("expected error code in output: %s", out)
	}
	if !strings.Contains(out, "retry later") {
		t.Errorf("expected suggestion in output: %s", out)
	}
}

func TestWithErrorNil(t *testing.T) {
	logger, _ := newBufferLogger(FormatText, LevelInfo)
	if got := logger.WithError(nil); got != logger {
		t.Error("WithError(nil) should return the same logger")
	}
}

func TestEnabled(t *testing.T) {
	logger, _ := newBufferLogger(FormatText, LevelWarn)

	ctx := context.Background()
	if logger.Enabled(ctx, LevelDebug) {
		t.Error("DEBUG should be disabled at WARN level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("ERROR should be enabled at WARN level")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
