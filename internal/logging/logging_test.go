package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter("production", "debug", &buf)

	logger.Info().Str("room", "lobby").Msg("room started")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["room"] != "lobby" || line["message"] != "room started" {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestNew_LevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter("production", "nonsense", &buf)

	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %v", logger.GetLevel())
	}
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line should be filtered, got %q", buf.String())
	}
}
