package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/clover/pkg/logging"
)

func TestStartSpan(t *testing.T) {
	t.Run("should be a no-op without a tracer", func(t *testing.T) {
		SetTracer(nil)
		ctx, span := StartSpan(context.Background(), "noop")
		defer span.End()

		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetTraceParent(ctx))
	})

	t.Run("should expose ids of a recording span", func(t *testing.T) {
		provider := sdktrace.NewTracerProvider()
		defer func() { _ = provider.Shutdown(context.Background()) }()
		SetTracer(provider.Tracer("test"))
		defer SetTracer(nil)

		ctx, span := StartSpan(context.Background(), "run")
		defer span.End()

		assert.Len(t, GetTraceID(ctx), 32)
		assert.Len(t, GetSpanID(ctx), 16)
		assert.Contains(t, GetTraceParent(ctx), GetTraceID(ctx))
	})

	t.Run("should continue a propagated trace", func(t *testing.T) {
		parent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
		provider := sdktrace.NewTracerProvider()
		defer func() { _ = provider.Shutdown(context.Background()) }()
		SetTracer(provider.Tracer("test"))
		defer SetTracer(nil)

		ctx, span := StartSpan(ExtractTraceParent(context.Background(), parent), "consume")
		defer span.End()

		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
	})
}

func TestSetup(t *testing.T) {
	t.Run("should reject an unknown exporter", func(t *testing.T) {
		_, err := Setup(context.Background(), Options{ServiceName: "clover", Exporter: "zipkin"}, logging.Discard())

		assert.Error(t, err)
	})

	t.Run("should install the console exporter", func(t *testing.T) {
		shutdown, err := Setup(context.Background(), Options{ServiceName: "clover", SamplingRatio: 1}, logging.Discard())
		require.NoError(t, err)
		defer SetTracer(nil)

		assert.NoError(t, shutdown(context.Background()))
	})
}
