package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	origLogger, origLevel := logger, logLevel
	logger = log.New(&buf, "", 0)
	t.Cleanup(func() {
		logger, logLevel = origLogger, origLevel
	})
	return &buf
}

func TestLogLevelGating(t *testing.T) {
	buf := captureLog(t)
	SetLogLevel(LogLevelWarn)

	LogError("broke: %d", 1)
	LogWarn("odd: %d", 2)
	LogInfo("progress: %d", 3)
	LogDebug("detail: %d", 4)

	out := buf.String()
	if !strings.Contains(out, "[ERROR] broke: 1") {
		t.Errorf("error line missing: %q", out)
	}
	if !strings.Contains(out, "[WARN] odd: 2") {
		t.Errorf("warn line missing: %q", out)
	}
	if strings.Contains(out, "progress") || strings.Contains(out, "detail") {
		t.Errorf("messages above the active level leaked: %q", out)
	}
}

func TestSetVerbose(t *testing.T) {
	buf := captureLog(t)

	SetVerbose(true)
	LogDebug("visible")
	SetVerbose(false)
	LogDebug("hidden")

	out := buf.String()
	if !strings.Contains(out, "[DEBUG] visible") {
		t.Errorf("verbose mode should emit debug: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug leaked after verbose off: %q", out)
	}
}
