// Package logger provides subsystem-scoped slog loggers that write JSON to
// stdout and, when OpenTelemetry is enabled, mirror records to the OTel log
// pipeline so they carry trace correlation.
package logger

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
)

// Subsystem names used as the "subsystem" attribute and in LOG_LEVEL_<NAME>.
const (
	SubsystemAPI        = "API"
	SubsystemOCR        = "OCR"
	SubsystemClassifier = "CLASSIFIER"
	SubsystemStorage    = "STORAGE"
	SubsystemDocuments  = "DOCUMENTS"
)

type contextKey struct{}

// Config holds log levels for the default logger and per subsystem overrides.
type Config struct {
	DefaultLevel    slog.Level
	SubsystemLevels map[string]slog.Level
}

// NewConfig reads LOG_LEVEL and LOG_LEVEL_<SUBSYSTEM> from the environment.
func NewConfig() Config {
	cfg := Config{
		DefaultLevel:    parseLevel(os.Getenv("LOG_LEVEL"), slog.LevelInfo),
		SubsystemLevels: make(map[string]slog.Level),
	}
	for _, subsystem := range []string{SubsystemAPI, SubsystemOCR, SubsystemClassifier, SubsystemStorage, SubsystemDocuments} {
		if value := os.Getenv("LOG_LEVEL_" + subsystem); value != "" {
			cfg.SubsystemLevels[subsystem] = parseLevel(value, cfg.DefaultLevel)
		}
	}
	return cfg
}

// LevelFor returns the effective level for a subsystem.
func (c Config) LevelFor(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

// NewSubsystemLogger creates a logger tagged with the subsystem name.
// otelHandler may be nil.
func NewSubsystemLogger(subsystem string, cfg Config, otelHandler slog.Handler) *slog.Logger {
	level := cfg.LevelFor(subsystem)
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if otelHandler != nil {
		handler = &fanoutHandler{level: level, handlers: []slog.Handler{handler, otelHandler}}
	}
	return slog.New(handler).With("subsystem", subsystem)
}

// AddToContext returns a context carrying the logger.
func AddToContext(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

func parseLevel(value string, fallback slog.Level) slog.Level {
	if value == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(value))); err != nil {
		return fallback
	}
	return level
}

// fanoutHandler sends each record to every handler. The level gate applies
// to all of them so the OTel pipeline sees the same records as stdout.
type fanoutHandler struct {
	level    slog.Level
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{level: h.level, handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{level: h.level, handlers: next}
}
