// Package logging builds the application's zerolog logger from config.
//
//	log := logging.New(cfg.Log, os.Stdout).With().Str("app", cfg.App.Name).Logger()
//	log.Info().Str("module", "greeter").Msg("module booted")
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/km-arc/go-kernel/framework/config"
)

// New returns a leveled logger writing to w (stdout when nil). Format "json"
// writes one JSON object per line; anything else uses zerolog's console
// writer. Unknown levels fall back to info.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if !strings.EqualFold(cfg.Format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
	}
	return zerolog.New(w).Level(Level(cfg.Level)).With().Timestamp().Logger()
}

// Level parses a level name. Empty or unknown names mean info.
func Level(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
