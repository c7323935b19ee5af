// Package logx sets up structured logging for CLI runs: a JSON log file per
// session inside the project's logs directory, optionally teed to a console
// writer.
package logx

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"emwy/internal/paths"
)

// Options configure New.
type Options struct {
	Level   string
	Console io.Writer
	NoColor bool
}

// Session is an open log: the logger, its session id and the file backing
// it. Close the session when logging is no longer needed.
type Session struct {
	Logger zerolog.Logger
	ID     string
	Path   string
	file   *os.File
}

// New creates a logger that writes to a timestamped file inside the
// project's logs directory. Every line carries the session id.
func New(p paths.ProjectPaths, opts Options) (*Session, error) {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "ensure logs directory")
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(p.LogsDir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}

	var out io.Writer = file
	if opts.Console != nil {
		console := zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: "15:04:05", NoColor: opts.NoColor}
		out = zerolog.MultiLevelWriter(file, console)
	}

	id := uuid.NewString()
	logger := zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Str("session", id).
		Str("project", p.ProjectFile).
		Logger()
	return &Session{Logger: logger, ID: id, Path: filePath, file: file}, nil
}

// Nop returns a session that discards everything, for commands that run
// before a project is known.
func Nop() *Session {
	return &Session{Logger: zerolog.Nop(), ID: uuid.NewString()}
}

// Component returns the session logger tagged with a component field.
func (s *Session) Component(name string) zerolog.Logger {
	return s.Logger.With().Str("component", name).Logger()
}

// Close flushes and closes the log file.
func (s *Session) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

// ParseLevel maps a settings level name to a zerolog level, defaulting to
// info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}
