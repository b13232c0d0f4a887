package oteltrace

import (
	"context"

	"github.com/ecommerce-mvp/shop/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New starts spans on the global tracer provider. Without an SDK provider installed the
// spans are non-recording but context propagation still works.
func New(name string) observability.Tracer {
	if name == "" {
		name = "shop"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
