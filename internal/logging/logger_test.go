package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "debug level", config: &Config{Level: LevelDebug, Output: &bytes.Buffer{}}},
		{name: "production encoding", config: &Config{Level: LevelInfo, Output: &bytes.Buffer{}, Development: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Error("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	recordLogger := logger.With("record_id", "abc123")
	recordLogger.Info("tracked")

	output := buf.String()
	if !strings.Contains(output, "record_id") || !strings.Contains(output, "abc123") {
		t.Errorf("expected record_id=abc123 in output, got: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	if buf.Len() != 0 {
		t.Errorf("expected no output below configured level, got: %s", buf.String())
	}

	logger.Warn("warning message")
	if !strings.Contains(buf.String(), "warning message") {
		t.Errorf("expected warning message, got: %s", buf.String())
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message", "key", "value")
	if out := buf.String(); !strings.Contains(out, "debug message") || !strings.Contains(out, "key") {
		t.Errorf("expected debug message with key, got: %s", out)
	}

	buf.Reset()
	Error("error message")
	if out := buf.String(); !strings.Contains(out, "error message") {
		t.Errorf("expected error message, got: %s", out)
	}
}
