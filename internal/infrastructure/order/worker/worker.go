package worker

import (
	"context"
	"fmt"

	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	domoutbox "github.com/ecommerce-mvp/shop/internal/domain/outbox"
	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/ecommerce-mvp/shop/internal/observability/logctx"
	workerpresentation "github.com/ecommerce-mvp/shop/internal/presentation/worker"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const componentOrderWorker = "order-worker"

// Worker follows placed orders: it confirms each one against the store and counts it.
type Worker struct {
	repo       domain.Repository
	subscriber domoutbox.Subscriber
	tel        observability.Observability
	log        observability.Logger
	placed     observability.Counter // orders_placed_total{currency}
}

func New(repo domain.Repository, subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		repo:       repo,
		subscriber: subscriber,
		tel:        tel,
		log:        tel.Logger().With(observability.F("component", componentOrderWorker)),
		placed:     tel.Metrics().Counter(observability.MOrdersPlaced),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.repo == nil {
		return
	}
	w.subscriber.Subscribe(domain.OrderPlacedEvent{}.EventName(), w.handleOrderPlaced)
}

func (w *Worker) handleOrderPlaced(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domain.OrderPlacedEvent)
	if !ok {
		return nil
	}

	ctx, span := w.tel.Tracer().Start(ctx, "Worker.OrderPlaced",
		attribute.String("order.id", evt.OrderID),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ORDER_CHECK_FAILED")
		}
		span.End()
	}()

	sc := span.SpanContext()
	ctx = workerpresentation.WithEventContext(ctx, logctx.FromOr(ctx, w.log), sc.TraceID(), sc.SpanID(), map[string]string{
		"event":    evt.EventName(),
		"order_id": evt.OrderID,
	})
	logger := logctx.FromOr(ctx, w.log)

	order, err := w.repo.Get(ctx, evt.OrderID)
	if err != nil {
		logger.Error("order_load_failed", observability.F("error", err))
		return fmt.Errorf("order worker: find order: %w", err)
	}
	if order.IsOpen() {
		logger.Error("order_not_closed", observability.F("status", string(order.Status)))
		return fmt.Errorf("order worker: order %s: %w", order.ID, domain.ErrInvalidStateTransition)
	}

	w.placed.Add(1, observability.L("currency", evt.Currency))
	logger.Info("order_placed",
		observability.F("owner_id", order.OwnerID),
		observability.F("branch", order.Branch),
		observability.F("total_price", evt.TotalPrice),
		observability.F("currency", evt.Currency),
		observability.F("line_count", evt.LineCount),
	)
	return nil
}
