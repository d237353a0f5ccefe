package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/logging"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(config.LogConfig{Level: "info", Format: "json"}, &buf)

	log.Debug().Msg("hidden")
	log.Info().Str("module", "greeter").Msg("booted")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["module"] != "greeter" || entry["message"] != "booted" || entry["level"] != "info" {
		t.Errorf("entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry should carry a timestamp")
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(config.LogConfig{Level: "debug", Format: "console"}, &buf)
	log.Debug().Str("module", "cache").Msg("registered")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("console output should not be JSON: %q", out)
	}
	if !strings.Contains(out, "registered") || !strings.Contains(out, "module=cache") {
		t.Errorf("got %q", out)
	}
}

func TestLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":  zerolog.DebugLevel,
		"WARN":   zerolog.WarnLevel,
		" error": zerolog.ErrorLevel,
		"":       zerolog.InfoLevel,
		"loud":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := logging.Level(in); got != want {
			t.Errorf("Level(%q): got %s want %s", in, got, want)
		}
	}
}
