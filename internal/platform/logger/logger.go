// Package logger provides structured logging functionality for the application.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelCritical is the severity above ERROR. slog has no built-in name for it.
const LevelCritical = slog.Level(12)

// Standard severity names as they appear in rendered records.
const (
	LevelNameDebug    = "DEBUG"
	LevelNameInfo     = "INFO"
	LevelNameWarning  = "WARNING"
	LevelNameError    = "ERROR"
	LevelNameCritical = "CRITICAL"
)

// Format selects the line rendering used by the sink.
type Format string

const (
	// FormatJSON renders each record as one JSON object.
	FormatJSON Format = "json"
	// FormatLogfmt renders each record as space separated key=value pairs.
	FormatLogfmt Format = "logfmt"
)

var (
	// ErrInvalidLevel indicates an unrecognized severity name.
	ErrInvalidLevel = errors.New("invalid log level")
	// ErrInvalidFormat indicates an unrecognized output format.
	ErrInvalidFormat = errors.New("invalid log format")
)

// ConfigurationError is returned by Setup when a setting cannot be resolved.
// It unwraps to ErrInvalidLevel or ErrInvalidFormat.
type ConfigurationError struct {
	Field string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("logger configuration: %s %q: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

var levelsByName = map[string]slog.Level{
	"debug":    slog.LevelDebug,
	"info":     slog.LevelInfo,
	"warning":  slog.LevelWarn,
	"warn":     slog.LevelWarn,
	"error":    slog.LevelError,
	"critical": LevelCritical,
	"fatal":    LevelCritical,
}

// ParseLevel maps a case-insensitive severity name to its slog.Level.
// WARN and FATAL are accepted as aliases of WARNING and CRITICAL.
func ParseLevel(name string) (slog.Level, error) {
	level, ok := levelsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, &ConfigurationError{Field: "level", Value: name, Err: ErrInvalidLevel}
	}
	return level, nil
}

// LevelName returns the canonical name for a level. Levels between the
// standard values take the name of the nearest standard level below them.
func LevelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return LevelNameDebug
	case level < slog.LevelWarn:
		return LevelNameInfo
	case level < slog.LevelError:
		return LevelNameWarning
	case level < LevelCritical:
		return LevelNameError
	default:
		return LevelNameCritical
	}
}

// ParseFormat resolves an output format name. An empty name selects JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatLogfmt:
		return FormatLogfmt, nil
	}
	return "", &ConfigurationError{Field: "format", Value: name, Err: ErrInvalidFormat}
}

// LoggerConfig holds the settings needed to install the process sink.
type LoggerConfig struct {
	// Level is the minimum severity name, e.g. "info" or "WARNING".
	Level string
	// Format is "json" (default) or "logfmt".
	Format string
	// Output receives rendered lines. Defaults to os.Stdout.
	Output io.Writer
}

// Sink is the handle to the installed logging configuration.
type Sink struct {
	logger  *slog.Logger
	handler *Handler
	level   slog.Level
	format  Format
}

// Logger returns the logger bound to this sink.
func (s *Sink) Logger() *slog.Logger {
	return s.logger
}

// Handler returns the sink's handler.
func (s *Sink) Handler() *Handler {
	return s.handler
}

// Level returns the minimum severity that reaches the output.
func (s *Sink) Level() slog.Level {
	return s.level
}

// Format returns the line format used by the sink.
func (s *Sink) Format() Format {
	return s.format
}

// Setup initializes the application's logging system. It resolves the level
// and format, builds a single handler writing to the configured output and
// installs it as the slog default, replacing whatever was installed before.
//
// On error nothing is installed and the previous default stays in place.
func Setup(cfg LoggerConfig) (*Sink, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	handler := NewHandler(out, &HandlerOptions{
		Level:    level,
		Renderer: RendererFor(format),
	})
	logger := slog.New(handler)

	// Package level slog calls (slog.Info, slog.Error, ...) go to this sink too.
	slog.SetDefault(logger)

	return &Sink{
		logger:  logger,
		handler: handler,
		level:   level,
		format:  format,
	}, nil
}

// Configure installs a JSON sink on stdout at the given severity.
func Configure(level string) (*Sink, error) {
	return Setup(LoggerConfig{Level: level})
}
