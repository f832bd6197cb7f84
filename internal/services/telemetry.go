package services

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// withDefaults substitutes no-op telemetry for nil arguments.
func withDefaults(logger *zap.Logger, tracer trace.Tracer) (*zap.Logger, trace.Tracer) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("gabarito")
	}
	return logger, tracer
}
