package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ResourceFor exposes buildResource for testing.
func ResourceFor(cfg Config) (*resource.Resource, error) {
	return buildResource(cfg)
}

// RunSampled starts one pyimports.find span under the sampler chosen for cfg
// and reports whether it was exported.
func RunSampled(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sampler(cfg)),
	)

	_, span := tp.Tracer(instrumentationName).Start(context.Background(), "pyimports.find")
	span.End()

	// Shutdown clears the exporter.
	spans := exporter.GetSpans()

	err := tp.Shutdown(context.Background())
	if err != nil {
		return false
	}

	return len(spans) > 0
}
