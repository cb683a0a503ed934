package telemetry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line should have been filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn line missing from output")
	}
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: "verbose", Output: &buf})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", log.GetLevel())
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	log := ComponentLogger(NewLogger(Config{Level: "info", Output: &buf}), "engine")

	log.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"engine"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}
