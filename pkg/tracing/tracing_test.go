package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "backoffice", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
}

func TestInitTracer_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTracer(context.Background(), Config{
		ServiceName:    "backoffice",
		ServiceVersion: "test",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4318",
		SampleRate:     0.5,
		Enabled:        true,
	})
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "op")
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestConfig_Sampler(t *testing.T) {
	assert.Contains(t, Config{SampleRate: 1}.Sampler().Description(), "AlwaysOnSampler")
	assert.Contains(t, Config{SampleRate: 0}.Sampler().Description(), "AlwaysOffSampler")
	assert.Contains(t, Config{SampleRate: 0.25}.Sampler().Description(), "TraceIDRatioBased")
}
