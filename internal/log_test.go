package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	level, ok := ParseLogLevel("debug")
	if !ok || level != LogLevelDebug {
		t.Errorf("Expected DEBUG, got %v (ok=%v)", level, ok)
	}
	level, ok = ParseLogLevel("loud")
	if ok || level != LogLevelInfo {
		t.Errorf("Expected INFO fallback, got %v (ok=%v)", level, ok)
	}
}

func TestLoggerLevelsAndPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogLevelWarn).WithOutput(log.New(&buf, "", 0)).With("summary")

	logger.Info("hidden %d", 1)
	logger.Warn("received pValue = %g", 0.0)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info line should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "[WARN] [summary] received pValue = 0") {
		t.Errorf("Unexpected warning line: %q", out)
	}

	nested := logger.With("push")
	nested.Error("boom")
	if !strings.Contains(buf.String(), "[ERROR] [summary] [push] boom") {
		t.Errorf("Expected nested prefixes, got %q", buf.String())
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	var logger *Logger
	logger.Warn("nothing happens")
}
