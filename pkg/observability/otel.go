// Package observability builds the process logger and the optional
// OpenTelemetry trace and log pipelines.
package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	ServiceName    = "gabarito"
	ServiceVersion = "1.0.0"

	tracesPath    = "/v1/traces"
	logsPath      = "/v1/logs"
	exportTimeout = 10 * time.Second
	maxQueueSize  = 2048
)

type Conf struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables export.
	Endpoint   string
	AuthHeader string
	Level      string
}

// Telemetry owns the logger, the tracer and the exporters behind them.
type Telemetry struct {
	Logger *zap.Logger
	Tracer trace.Tracer

	shutdownFuncs []func(context.Context) error
}

// Setup builds a JSON zap logger on stdout. With an endpoint configured it
// also installs OTLP trace and log providers and tees the logger into the
// otelzap bridge. Exporter errors are joined and returned alongside a usable
// Telemetry.
func Setup(ctx context.Context, conf Conf) (*Telemetry, error) {
	level, err := zapcore.ParseLevel(conf.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		level,
	)

	t := &Telemetry{}
	if conf.Endpoint == "" {
		t.Logger = newLogger(consoleCore)
		t.Tracer = otel.Tracer(ServiceName)
		return t, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		t.Logger = newLogger(consoleCore)
		t.Tracer = otel.Tracer(ServiceName)
		return t, fmt.Errorf("failed to create resource: %w", err)
	}

	var setupErr error
	headers := map[string]string{}
	if conf.AuthHeader != "" {
		headers["Authorization"] = conf.AuthHeader
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(conf.Endpoint),
		otlptracehttp.WithURLPath(tracesPath),
		otlptracehttp.WithHeaders(headers),
	)
	if err != nil {
		setupErr = errors.Join(setupErr, fmt.Errorf("OTLP trace exporter: %w", err))
	} else {
		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithResource(res),
			sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(traceExporter,
				sdktrace.WithExportTimeout(exportTimeout),
				sdktrace.WithMaxQueueSize(maxQueueSize),
			)),
		)
		otel.SetTracerProvider(tracerProvider)
		t.shutdownFuncs = append(t.shutdownFuncs, tracerProvider.Shutdown)
	}

	cores := []zapcore.Core{consoleCore}
	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpoint(conf.Endpoint),
		otlploghttp.WithURLPath(logsPath),
		otlploghttp.WithHeaders(headers),
	)
	if err != nil {
		setupErr = errors.Join(setupErr, fmt.Errorf("OTLP log exporter: %w", err))
	} else {
		loggerProvider := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter,
				sdklog.WithExportTimeout(exportTimeout),
				sdklog.WithMaxQueueSize(maxQueueSize),
			)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(loggerProvider)
		t.shutdownFuncs = append(t.shutdownFuncs, loggerProvider.Shutdown)
		cores = append(cores, otelzap.NewCore(ServiceName, otelzap.WithLoggerProvider(loggerProvider)))
	}

	t.Logger = newLogger(zapcore.NewTee(cores...))
	t.Tracer = otel.Tracer(ServiceName)
	return t, setupErr
}

func newLogger(core zapcore.Core) *zap.Logger {
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", ServiceName)),
	)
}

// Shutdown flushes the logger and the exporters.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	if t.Logger != nil {
		_ = t.Logger.Sync()
	}
	for _, fn := range t.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	t.shutdownFuncs = nil
	return err
}
