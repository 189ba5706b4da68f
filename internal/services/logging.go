package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/client"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
)

// ServiceLogger provides structured logging for controller operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger utils.Logger, config LogConfig) *ServiceLogger {
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &ServiceLogger{
		logger: utils.ToSlogLogger(logger).With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, resourceID, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	switch {
	case err == nil:
	case IsCancelled(err):
		level = slog.LevelDebug
		status = "cancelled"
	case IsValidation(err):
		level = slog.LevelWarn
		status = "validation_error"
	case IsSessionExpired(err):
		level = slog.LevelWarn
		status = "unauthorized"
	case IsBusiness(err):
		level = slog.LevelWarn
		status = "rejected"
	case IsTransport(err):
		level = slog.LevelError
		status = "transport_error"
	default:
		level = slog.LevelError
		status = "error"
	}

	if level == slog.LevelDebug && !l.config.EnableDebug {
		return
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		if apiErr, ok := client.AsAPIError(err); ok {
			attrs = append(attrs, slog.Int("http_status", apiErr.Status))
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i == 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

// ===== OPERATION SCOPES =====

// ContextualLogger times one operation and logs its outcome.
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, resourceID, resourceType, time.Since(cl.startTime), err)

	var ve ValidationErrors
	if errors.As(err, &ve) {
		cl.logger.LogValidationError(cl.ctx, cl.operation, ve)
	}
}
