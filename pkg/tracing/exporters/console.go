package exporters

import (
	"context"

	"github.com/Gobusters/ectologger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter writes finished spans to the application logger. It backs
// tracing when no OTLP collector endpoint is configured, so local runs still
// surface span timings.
type ConsoleExporter struct {
	logger ectologger.Logger
}

func NewConsoleExporter(logger ectologger.Logger) *ConsoleExporter {
	return &ConsoleExporter{logger: logger}
}

func (c *ConsoleExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		c.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
			"duration": span.EndTime().Sub(span.StartTime()).String(),
		}).Debugf("span %s", span.Name())
	}
	return nil
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}
