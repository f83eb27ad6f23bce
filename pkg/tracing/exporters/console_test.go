package exporters

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConsoleExporterDrainsSpans(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	exporter := NewConsoleExporter(logger)

	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	_, span := tracer.Start(context.Background(), "event.Repository.List")
	span.End()

	require.NoError(t, exporter.ExportSpans(context.Background(), nil))
	require.NoError(t, provider.Shutdown(context.Background()))
}
