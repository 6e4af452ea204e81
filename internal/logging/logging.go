// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultLevel
	}
	switch name {
	case "debug", "info", "warn", "error":
		return zerolog.ParseLevel(name)
	case "warning":
		return zerolog.WarnLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", name)
	}
}

// SetupConsole routes logs to stderr in human-readable form.
func SetupConsole(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	noColor := !term.IsTerminal(int(os.Stderr.Fd()))
	setup(consoleWriter(colorable.NewColorable(os.Stderr), noColor), lvl)
	return nil
}

// SetupFile routes JSON logs to path, creating its directory. The returned
// closer must be called on exit.
func SetupFile(path, level string) (io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	setup(f, lvl)
	return f, nil
}

// SetupWriter routes JSON logs to w. Used by tests.
func SetupWriter(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	setup(w, lvl)
	return nil
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: time.TimeOnly,
	}
}

func setup(w io.Writer, lvl zerolog.Level) {
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
