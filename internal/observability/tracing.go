// Package observability wires OTLP trace export into Genkit's tracer
// provider. Every generation and tool call Genkit runs is exported as
// a span; tracing stays off unless an endpoint is configured.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for trace export.
type Config struct {
	// Endpoint is the OTLP HTTP collector address (host:port). Empty
	// disables tracing.
	Endpoint string
	// ServiceName tags exported spans; shows up as the service in the
	// tracing backend.
	ServiceName string
	// Environment is the deployment environment tag (dev, staging,
	// prod).
	Environment string

	Logger *slog.Logger
}

// Setup registers an OTLP exporter with Genkit's TracerProvider and
// returns a shutdown function that flushes pending spans. With an
// empty endpoint it is a no-op.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	// Genkit's TracerProvider reads the service identity from the
	// standard OTEL environment variables.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		// Tracing is never worth failing startup over.
		logger.Warn("creating OTLP exporter failed, tracing disabled", "error", err)
		return noop, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)
	return tracing.TracerProvider().Shutdown, nil
}
