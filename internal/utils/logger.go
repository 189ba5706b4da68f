package utils

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is the logging interface shared by the backend client, the
// controllers and the development backend.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger

	LogHTTP(ctx context.Context, exchange HTTPExchange, args ...any)
	LogError(err error, msg string, args ...any)
}

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// HTTPExchange describes one request/response pair, either served by the
// development backend or sent to the real one.
type HTTPExchange struct {
	Direction Direction
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
}

// Level picks the log level for the exchange. Successful outbound calls are
// debug noise; client errors warn and server errors are errors.
func (e HTTPExchange) Level() slog.Level {
	switch {
	case e.Status >= 500:
		return slog.LevelError
	case e.Status >= 400:
		return slog.LevelWarn
	case e.Direction == Outbound:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// SlogLogger implements Logger on top of slog.
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) Logger {
	return &SlogLogger{logger: logger}
}

// NewDefaultLogger writes JSON at info level to stdout.
func NewDefaultLogger() Logger {
	return newStdoutLogger(false, slog.LevelInfo)
}

// NewDevelopmentLogger writes human-readable text at debug level.
func NewDevelopmentLogger() Logger {
	return newStdoutLogger(true, slog.LevelDebug)
}

// NewLogger uses text output for development environments and JSON
// everywhere else. A non-empty level ("debug", "info", "warn", "error")
// overrides the environment's default.
func NewLogger(environment, level string) Logger {
	text := false
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "development", "dev", "local":
		text, lvl = true, slog.LevelDebug
	}
	if level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(level)); err == nil {
			lvl = parsed
		}
	}
	return newStdoutLogger(text, lvl)
}

// NewDiscardLogger drops everything. Used by tests.
func NewDiscardLogger() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newStdoutLogger(text bool, level slog.Level) Logger {
	opts := &slog.HandlerOptions{Level: level}
	if text {
		return NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, opts)))
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, opts)))
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *SlogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

func (l *SlogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

func (l *SlogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *SlogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

func (l *SlogLogger) WithGroup(name string) Logger {
	return &SlogLogger{logger: l.logger.WithGroup(name)}
}

func (l *SlogLogger) LogHTTP(ctx context.Context, e HTTPExchange, args ...any) {
	fields := append([]any{
		"direction", e.Direction,
		"method", e.Method,
		"path", e.Path,
		"status_code", e.Status,
		"duration", e.Duration.String(),
	}, args...)
	l.logger.Log(ctx, e.Level(), "HTTP "+string(e.Direction), fields...)
}

func (l *SlogLogger) LogError(err error, msg string, args ...any) {
	l.logger.Error(msg, append([]any{"error", err}, args...)...)
}

// LoggerMiddleware logs every request the gin engine serves through logger
// instead of gin's default writer.
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logger.LogHTTP(param.Request.Context(), HTTPExchange{
			Direction: Inbound,
			Method:    param.Method,
			Path:      param.Path,
			Status:    param.StatusCode,
			Duration:  param.Latency,
		}, "client_ip", param.ClientIP)
		return ""
	})
}

// ToSlogLogger unwraps a Logger for libraries that take *slog.Logger.
func ToSlogLogger(logger Logger) *slog.Logger {
	if sl, ok := logger.(*SlogLogger); ok {
		return sl.logger
	}
	return slog.Default()
}
