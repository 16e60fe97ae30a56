package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/cpi-insights/internal/config"
)

const (
	// Service information
	ServiceName    = "github.com/irfndi/cpi-insights"
	ServiceVersion = "1.0.0"

	tracesPath = "/v1/traces"
)

// Provider holds the installed tracer provider.
type Provider struct {
	Shutdown func(context.Context) error
	logger   *slog.Logger
}

// InitTracing installs a global tracer provider. Disabled telemetry yields a
// no-op provider; an empty endpoint exports spans to stdout (or the optional
// writer) instead of an OTLP collector.
func InitTracing(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger, w ...io.Writer) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := &Provider{
		Shutdown: func(context.Context) error { return nil },
		logger:   logger,
	}
	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return noop, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = ServiceName
	}

	var exporter sdktrace.SpanExporter
	if cfg.Endpoint == "" {
		opts := []stdouttrace.Option{}
		if len(w) > 0 && w[0] != nil {
			opts = append(opts, stdouttrace.WithWriter(w[0]))
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	} else {
		hostport, path, insecure, resolved, err := normalizeOTLPEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid OTLPEndpoint: %w", err)
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(hostport),
			otlptracehttp.WithURLPath(path),
		}
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = exp
		logger.Info("OTLP trace exporter configured", "endpoint", resolved)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing initialized", "service", serviceName)
	return &Provider{Shutdown: tp.Shutdown, logger: logger}, nil
}

// normalizeOTLPEndpoint splits a collector base URL into the host:port and
// traces path expected by otlptracehttp.
func normalizeOTLPEndpoint(raw string) (hostport, urlPath string, insecure bool, resolved string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false, "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", false, "", fmt.Errorf("endpoint %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", "", false, "", fmt.Errorf("endpoint %q has no host", raw)
	}

	urlPath = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(urlPath, tracesPath) {
		urlPath += tracesPath
	}
	insecure = u.Scheme == "http"
	resolved = fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, urlPath)
	return u.Host, urlPath, insecure, resolved, nil
}

// GetTracer returns a named tracer from the global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// GetEngineTracer returns the tracer used by the analytics engines.
func GetEngineTracer() trace.Tracer {
	return GetTracer(ServiceName + "/engine")
}

// StartSpan starts a span with the given attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks the span as failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
