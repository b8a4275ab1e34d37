package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"mercator-hq/verdict/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in logfmt key=value format.
	FormatText LogFormat = "text"
	// FormatConsole outputs logs for humans: text without the timestamp.
	FormatConsole LogFormat = "console"
)

// Config contains configuration for New.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string

	// Format is the output format ("json", "text", "console")
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// RedactSecrets masks credentials in log attributes
	RedactSecrets bool

	// RedactPatterns contains custom redaction patterns
	RedactPatterns []config.RedactPattern

	// Writer is the output writer (defaults to os.Stderr)
	Writer io.Writer
}

// FromConfig converts the logging section of the configuration file. Output
// goes to w, or os.Stderr when w is nil.
func FromConfig(cfg config.LoggingConfig, w io.Writer) Config {
	return Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		RedactSecrets:  cfg.RedactSecrets,
		RedactPatterns: cfg.RedactPatterns,
		Writer:         w,
	}
}

// New creates a logger with the given configuration.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	var redactor *Redactor
	if cfg.RedactSecrets {
		redactor, err = NewRedactor(cfg.RedactPatterns)
		if err != nil {
			return nil, err
		}
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var inner slog.Handler
	switch format {
	case FormatText:
		inner = slog.NewTextHandler(writer, opts)
	case FormatConsole:
		opts.ReplaceAttr = dropTime
		inner = slog.NewTextHandler(writer, opts)
	default:
		inner = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(NewHandler(inner, redactor)), nil
}

// dropTime removes the top-level timestamp from console output.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// parseLevel parses a log level string into slog.Level.
func parseLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// parseFormat parses a log format string into LogFormat.
func parseFormat(formatStr string) (LogFormat, error) {
	switch formatStr {
	case "json", "JSON", "":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	case "console", "CONSOLE":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
