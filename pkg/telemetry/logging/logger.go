package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Format is the log output format.
type Format string

const (
	// FormatJSON outputs one JSON object per line.
	FormatJSON Format = "json"
	// FormatText outputs key=value text.
	FormatText Format = "text"
)

// Config configures the logger.
type Config struct {
	// Level is the minimum level ("debug", "info", "warn", "error")
	Level string

	// Format is "json" or "text"
	Format string

	// AddSource includes file:line in each record
	AddSource bool

	// RedactSensitive scrubs secrets and PII from attribute values
	RedactSensitive bool

	// Writer is the output destination (defaults to os.Stdout)
	Writer io.Writer
}

// New builds a structured logger. With RedactSensitive set, every
// string attribute value passes through the redactor before it reaches
// the output, so secrets and PII that sneak into log fields never land
// on disk.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	if cfg.RedactSensitive {
		redactor := NewRedactor()
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindString {
				a.Value = slog.StringValue(redactor.Redact(a.Value.String()))
			}
			return a
		}
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

func parseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", s)
	}
}
