package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracerProviderWithoutExporter(t *testing.T) {
	shutdown, err := InitTracerProvider(context.Background(), Config{
		ServiceName: "Web Scraper API",
		Version:     "test",
		SampleRatio: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, shutdown(context.Background())) })

	require.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "probe")
	require.True(t, span.SpanContext().IsSampled())
	span.End()

	carrier := propagation.MapCarrier{}
	ctx, span := otel.Tracer("test").Start(context.Background(), "propagate")
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	span.End()
	require.NotEmpty(t, carrier.Get("traceparent"))
}
