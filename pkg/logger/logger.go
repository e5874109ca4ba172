// Package logger builds the slog logger used across the CLI and redacts
// card numbers, SSNs and e-mail addresses from every record.
package logger

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

type Config struct {
	Level  string
	Format string
	Output io.Writer
}

var (
	panPattern   = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4,7}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}[\s-]?\d{2}[\s-]?\d{4}\b`)
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// New returns a JSON (default) or text logger writing to cfg.Output, stderr when nil.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Level),
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Redact masks PII in s. PANs are replaced before SSNs so a card number is never split.
func Redact(s string) string {
	s = panPattern.ReplaceAllString(s, "[PAN]")
	s = ssnPattern.ReplaceAllString(s, "[SSN]")
	return emailPattern.ReplaceAllString(s, "[EMAIL]")
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, Redact(err.Error()))
		}
	}
	return a
}
