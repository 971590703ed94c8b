// Package tracing wires the OpenTelemetry SDK for every hedera-pulse binary.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultServiceName = "hedera-pulse"
	defaultEndpoint    = "localhost:4317"
	serviceVersion     = "0.3.0"
)

var newTraceExporter = func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
}

type settings struct {
	enabled     bool
	endpoint    string
	sampleRatio float64
	environment string
}

// TRACING_SAMPLE_RATIO outside [0,1] is rejected rather than clamped.
func settingsFromEnv() (settings, error) {
	s := settings{
		enabled:     os.Getenv("TRACING_ENABLED") != "false",
		endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		sampleRatio: 1,
		environment: os.Getenv("APP_ENV"),
	}
	if s.endpoint == "" {
		s.endpoint = defaultEndpoint
	}
	if raw := os.Getenv("TRACING_SAMPLE_RATIO"); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			return s, fmt.Errorf("tracing: invalid TRACING_SAMPLE_RATIO %q", raw)
		}
		s.sampleRatio = ratio
	}
	return s, nil
}

// InitTracer installs the global tracer provider. Every binary reports under
// its own service name; an empty name falls back to the module name.
func InitTracer(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, trace.Tracer, error) {
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	cfg, err := settingsFromEnv()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, tp.Tracer(serviceName), nil
	}

	exporter, err := newTraceExporter(ctx, cfg.endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: exporter: %w", err)
	}

	attrs := []resource.Option{resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)}
	if cfg.environment != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.DeploymentEnvironment(cfg.environment)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.sampleRatio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, tp.Tracer(serviceName), nil
}
