package workerpresentation_test

import (
	"context"
	"testing"

	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/ecommerce-mvp/shop/internal/observability/logctx"
	workerpresentation "github.com/ecommerce-mvp/shop/internal/presentation/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type fieldLogger struct {
	observability.Logger
	fields map[string]any
}

func (l fieldLogger) With(fields ...observability.Field) observability.Logger {
	next := fieldLogger{Logger: l.Logger, fields: map[string]any{}}
	for k, v := range l.fields {
		next.fields[k] = v
	}
	for _, f := range fields {
		next.fields[f.Key] = f.Value
	}
	return next
}

func TestWithEventContext(t *testing.T) {
	base := fieldLogger{Logger: observability.NopLogger(), fields: map[string]any{}}
	traceID := trace.TraceID{1}
	spanID := trace.SpanID{2}

	ctx := workerpresentation.WithEventContext(context.Background(), base, traceID, spanID, map[string]string{
		"event":    "order.placed",
		"order_id": "order-1",
		"empty":    "",
	})

	got, ok := logctx.From(ctx).(fieldLogger)
	require.True(t, ok)
	assert.Equal(t, "order.placed", got.fields["event"])
	assert.Equal(t, "order-1", got.fields["order_id"])
	assert.Equal(t, traceID.String(), got.fields["trace_id"])
	assert.Equal(t, spanID.String(), got.fields["span_id"])
	assert.NotEmpty(t, got.fields["event_id"])
	assert.NotContains(t, got.fields, "empty")
}

func TestWithEventContext_KeepsGivenEventID(t *testing.T) {
	base := fieldLogger{Logger: observability.NopLogger(), fields: map[string]any{}}
	ctx := workerpresentation.WithEventContext(context.Background(), base, trace.TraceID{}, trace.SpanID{},
		map[string]string{"event_id": "evt-7"})

	got := logctx.From(ctx).(fieldLogger)
	assert.Equal(t, "evt-7", got.fields["event_id"])
	assert.NotContains(t, got.fields, "trace_id")
}
