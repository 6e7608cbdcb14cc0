// Package telemetry wires OpenTelemetry tracing into find_successor's
// routing hops. Unlike a gRPC-based DHT, this ring speaks plain HTTP,
// so trace context travels in request headers (W3C traceparent)
// rather than in interceptor-injected metadata.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/retorded/chordring/internal/config"
)

// Init configures the global tracer provider and propagator according
// to cfg. It returns a shutdown func that flushes and stops the
// provider; callers should defer it. When tracing is disabled, the
// returned shutdown is a no-op and the provider is left unset, so
// Hop-based tracing becomes a no-op too.
func Init(ctx context.Context, cfg config.TracingConfig, nodeID int, selfAddr string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("chordring"),
			attribute.Int("chord.node.id", nodeID),
			attribute.String("chord.node.address", selfAddr),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: building resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	switch cfg.Exporter {
	case "", "stdout":
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("telemetry: unsupported exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: building exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
