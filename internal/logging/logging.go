// Package logging builds the process logger: console output on stderr,
// optionally mirrored to a timestamped file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configure New.
type Options struct {
	Verbose bool
	// Dir, when set, receives <Name>_<YYYYmmdd_HHMMSS>.log.
	Dir  string
	Name string
	// Console replaces stderr as the console sink.
	Console io.Writer
	NoColor bool
	Now     func() time.Time
}

// New returns the logger and a closer for the log file, if one was opened.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level := Level(opts.Verbose)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor,
	}}

	closer := func() error { return nil }
	var path string
	if strings.TrimSpace(opts.Dir) != "" {
		file, p, err := openLogFile(opts)
		if err != nil {
			return zerolog.Nop(), closer, err
		}
		path = p
		writers = append(writers, file)
		closer = file.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	if path != "" {
		logger.Debug().Str("path", path).Msg("logging to file")
	}
	return logger, closer, nil
}

// Level resolves the log level: debug when verbose, otherwise LOG_LEVEL,
// otherwise info.
func Level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if level, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			return level
		}
	}
	return zerolog.InfoLevel
}

func openLogFile(opts Options) (*os.File, string, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create log dir: %w", err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	name := opts.Name
	if name == "" {
		name = "faw"
	}
	path := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", name, now().Format("20060102_150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("open log file: %w", err)
	}
	return file, path, nil
}
