package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecommerce-mvp/shop/internal/application"
	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	domoutbox "github.com/ecommerce-mvp/shop/internal/domain/outbox"
	"github.com/ecommerce-mvp/shop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	useCasePlaceOrder = "cart.place_order"
	publishPeer       = "outbox"
	publishEndpoint   = "order.placed"
	publishTimeout    = 300 * time.Millisecond
)

// PlaceOrderUseCase closes the owner's open cart as an order shipped to a branch.
type PlaceOrderUseCase struct {
	carts     domain.Repository
	publisher domoutbox.Publisher
	inst      instrument
}

func NewPlaceOrderUseCase(carts domain.Repository, publisher domoutbox.Publisher, tel observability.Observability) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		carts:     carts,
		publisher: publisher,
		inst:      newInstrument(tel),
	}
}

type PlaceOrderInput struct {
	OwnerID string
	Branch  string
}

// Execute keeps the cart's total as last computed. The order.placed event is best-effort:
// a failed publish is logged and traced but the order stays placed.
func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderInput) (_ *domain.Cart, err error) {
	ctx, c := uc.inst.begin(ctx, useCasePlaceOrder, "PlaceOrder",
		attribute.String("cart.owner_id", cmd.OwnerID),
		attribute.String("order.branch", cmd.Branch),
	)
	defer func() { c.end(err) }()

	if strings.TrimSpace(cmd.OwnerID) == "" {
		c.fail("OWNER_ID_REQUIRED")
		return nil, application.NewValidation("owner id is required")
	}
	if strings.TrimSpace(cmd.Branch) == "" {
		c.fail("BRANCH_REQUIRED")
		return nil, application.NewValidation("branch is required")
	}

	entity, err := uc.carts.FindOpen(ctx, cmd.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.fail("CART_EMPTY")
			return nil, domain.ErrEmpty
		}
		c.fail("REPO_FIND_FAILED")
		return nil, wrapRepositoryError(err)
	}
	c.annotate(observability.F("order_id", entity.ID))

	if err := entity.Place(cmd.Branch); err != nil {
		if errors.Is(err, domain.ErrEmpty) {
			c.fail("CART_EMPTY")
			return nil, err
		}
		c.fail("CART_REJECTED")
		return nil, fmt.Errorf("cart: place: %w", err)
	}
	if err := uc.carts.Update(ctx, entity); err != nil {
		c.fail(writeStatus(err))
		return nil, wrapRepositoryError(err)
	}

	if publishErr := uc.publish(ctx, c, entity); publishErr != nil {
		c.status("EVENT_PUBLISH_FAILED")
		c.annotate(observability.F("event_publish_error", publishErr.Error()))
		c.span.RecordError(publishErr)
	}

	c.span.SetAttributes(attribute.String("order.status", string(entity.Status)))
	c.span.AddEvent("order.placed",
		trace.WithAttributes(
			attribute.String("order.id", entity.ID),
			attribute.String("order.total", entity.Total.Amount.String()),
		),
	)
	return entity, nil
}

func (uc *PlaceOrderUseCase) publish(ctx context.Context, c *call, entity *domain.Cart) error {
	if uc.publisher == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := uc.publisher.Publish(pubCtx, domain.NewOrderPlacedEvent(entity))
	switch {
	case err != nil:
		outcome = "error"
	case pubCtx.Err() != nil:
		outcome = "canceled"
		err = pubCtx.Err()
	}
	c.external(publishPeer, publishEndpoint, outcome, start)
	return err
}
