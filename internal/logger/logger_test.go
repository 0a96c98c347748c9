package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)

	log.Debug("hidden")
	log.Info("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged without verbose")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("info message missing or unstructured: %q", out)
	}
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)

	log.Debug("traced")
	if !strings.Contains(buf.String(), "traced") {
		t.Error("debug message dropped in verbose mode")
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic or write anywhere.
	Discard().Info("nothing")
}
