package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/irfndi/cpi-insights/internal/config"
)

func TestNormalizeOTLPEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		hostport string
		urlPath  string
		insecure bool
		resolved string
		wantErr  bool
	}{
		{"default localhost", "http://localhost:4318", "localhost:4318", "/v1/traces", true, "http://localhost:4318/v1/traces", false},
		{"trailing slash base", "http://collector:4318/", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"already traces path", "http://collector:4318/v1/traces", "collector:4318", "/v1/traces", true, "http://collector:4318/v1/traces", false},
		{"custom base path", "https://otlp.example.com:4318/otlp", "otlp.example.com:4318", "/otlp/v1/traces", false, "https://otlp.example.com:4318/otlp/v1/traces", false},
		{"invalid no scheme", "collector:4318", "", "", true, "", true},
		{"missing host", "http://", "", "", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp, path, insecure, resolved, err := normalizeOTLPEndpoint(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hostport, hp)
			assert.Equal(t, tt.urlPath, path)
			assert.Equal(t, tt.insecure, insecure)
			assert.Equal(t, tt.resolved, resolved)
		})
	}
}

func TestInitTracing_Disabled(t *testing.T) {
	provider, err := InitTracing(context.Background(), config.TelemetryConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestInitTracing_Stdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "cpi-test"}
	provider, err := InitTracing(context.Background(), cfg, nil, &buf)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), GetEngineTracer(), "forecast.batch",
		attribute.Int("states", 3))
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "forecast.batch")
	assert.Contains(t, buf.String(), "cpi-test")
}

func TestInitTracing_InvalidEndpoint(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: true, Endpoint: "collector:4318"}
	provider, err := InitTracing(context.Background(), cfg, nil)
	assert.Error(t, err)
	assert.Nil(t, provider)
	assert.Contains(t, err.Error(), "invalid OTLPEndpoint")
}

func TestSpanHelpers(t *testing.T) {
	ctx, span := StartSpan(context.Background(), GetTracer("test"), "test-span",
		attribute.String("test-key", "test-value"))
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)

	assert.NotPanics(t, func() {
		RecordError(span, errors.New("boom"))
		RecordError(span, nil)
	})
	span.End()
}
