package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewDefaultCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewDefault("feed")
	log.SetOutput(&buf)

	log.Info("hello")
	if !strings.Contains(buf.String(), "component=feed") {
		t.Fatalf("component field missing from output: %q", buf.String())
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "debug", Format: "json"})
	log.SetOutput(&buf)

	log.WithField("pool", "trending").Debug("generated")
	out := buf.String()
	if !strings.Contains(out, `"pool":"trending"`) {
		t.Fatalf("expected json field in output: %q", out)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "nonsense"})
	log.SetOutput(&buf)

	log.Debug("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("debug line emitted at info level: %q", buf.String())
	}
	log.Info("visible")
	if buf.Len() == 0 {
		t.Fatal("info line not emitted")
	}
}
