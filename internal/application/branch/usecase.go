package branch

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/ecommerce-mvp/shop/internal/domain/branch"
	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/ecommerce-mvp/shop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	branchService       = "branch-service"
	useCaseListBranches = "branch.list"
	spanPrefix          = "UC."
	directoryPeer       = "novaposhta"
	directoryEndpoint   = "getWarehouses"
)

// ListBranchesUseCase reads the shipping branch directory.
type ListBranchesUseCase struct {
	directory domain.Directory
	tracer    observability.Tracer
	log       observability.Logger

	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewListBranchesUseCase(directory domain.Directory, tel observability.Observability) *ListBranchesUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &ListBranchesUseCase{
		directory:    directory,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", branchService)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

type ListBranchesInput struct{}

func (uc *ListBranchesUseCase) Execute(ctx context.Context, _ ListBranchesInput) (_ []domain.Branch, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(observability.F("use_case", useCaseListBranches))

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"ListBranches",
		attribute.String("use_case", useCaseListBranches),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	count := 0

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseListBranches),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat, observability.L("use_case", useCaseListBranches))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
			observability.F("branch_count", count),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	callStart := time.Now()
	branches, err := uc.directory.List(ctx)
	extOutcome := "success"
	if err != nil {
		extOutcome = "error"
	}
	uc.extCounter.Add(1,
		observability.L("peer", directoryPeer),
		observability.L("endpoint", directoryEndpoint),
		observability.L("outcome", extOutcome),
	)
	uc.extHistogram.Observe(time.Since(callStart).Seconds(),
		observability.L("peer", directoryPeer),
		observability.L("endpoint", directoryEndpoint),
	)

	if err != nil {
		outcome = "error"
		if errors.Is(err, domain.ErrUpstream) {
			statusText = "DIRECTORY_UNAVAILABLE"
			return nil, err
		}
		statusText = "DIRECTORY_FAILED"
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	count = len(branches)
	span.SetAttributes(attribute.Int("branch.count", count))
	return branches, nil
}
