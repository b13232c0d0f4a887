package cart

import (
	"context"
	"time"

	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/ecommerce-mvp/shop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	cartService = "cart-service"
	spanPrefix  = "UC."
)

// instrument carries the RED metrics and base logger shared by the cart use cases.
type instrument struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func newInstrument(tel observability.Observability) instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return instrument{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", cartService)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// call tracks one use case execution from span start to the use_case_done log.
type call struct {
	inst    instrument
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	useCase string
	start   time.Time

	outcome    string
	statusText string
	fields     []observability.Field
}

func (in instrument) begin(ctx context.Context, useCase, name string, attrs ...attribute.KeyValue) (context.Context, *call) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+name, attrs...)
	return ctx, &call{
		inst:       in,
		ctx:        ctx,
		span:       span,
		logger:     logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase)),
		useCase:    useCase,
		start:      time.Now(),
		outcome:    "success",
		statusText: "OK",
	}
}

func (c *call) fail(statusText string) {
	c.outcome, c.statusText = "error", statusText
}

func (c *call) status(statusText string) {
	c.statusText = statusText
}

func (c *call) annotate(fields ...observability.Field) {
	c.fields = append(c.fields, fields...)
}

func (c *call) end(err error) {
	lat := time.Since(c.start).Seconds()
	if err != nil && c.outcome == "success" {
		c.outcome, c.statusText = "error", "INTERNAL"
	}

	if c.span != nil {
		if err != nil {
			c.span.RecordError(err)
			c.span.SetStatus(codes.Error, c.statusText)
		} else {
			c.span.SetStatus(codes.Ok, c.statusText)
		}
		c.span.End()
	}

	c.inst.reqCounter.Add(1,
		observability.L("use_case", c.useCase),
		observability.L("outcome", c.outcome),
	)
	c.inst.durHistogram.Observe(lat,
		observability.L("use_case", c.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", c.outcome),
		observability.F("status", c.statusText),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(c.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, c.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	c.logger.Info("use_case_done", fields...)
}

// external records one call to a collaborator outside the process.
func (c *call) external(peer, endpoint, outcome string, started time.Time) {
	c.inst.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	c.inst.extHistogram.Observe(time.Since(started).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}
