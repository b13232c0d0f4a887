package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/ecommerce-mvp/shop/internal/application"
	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/currency"
)

const useCaseGetCart = "cart.get"

// GetCartUseCase reads the owner's open cart without side effects.
type GetCartUseCase struct {
	carts    domain.Repository
	currency currency.Unit
	inst     instrument
}

func NewGetCartUseCase(carts domain.Repository, cur currency.Unit, tel observability.Observability) *GetCartUseCase {
	return &GetCartUseCase{
		carts:    carts,
		currency: cur,
		inst:     newInstrument(tel),
	}
}

type GetCartInput struct {
	OwnerID string
}

// Execute returns an empty unsaved view when the owner has no open cart.
func (uc *GetCartUseCase) Execute(ctx context.Context, cmd GetCartInput) (_ *domain.Cart, err error) {
	ctx, c := uc.inst.begin(ctx, useCaseGetCart, "GetCart",
		attribute.String("cart.owner_id", cmd.OwnerID),
	)
	defer func() { c.end(err) }()

	if strings.TrimSpace(cmd.OwnerID) == "" {
		c.fail("OWNER_ID_REQUIRED")
		return nil, application.NewValidation("owner id is required")
	}

	entity, err := uc.carts.FindOpen(ctx, cmd.OwnerID)
	switch {
	case err == nil:
		c.annotate(observability.F("cart_id", entity.ID))
		return entity, nil
	case errors.Is(err, domain.ErrNotFound):
		c.status("EMPTY_VIEW")
		return domain.Empty(cmd.OwnerID, uc.currency), nil
	default:
		c.fail("REPO_FIND_FAILED")
		return nil, wrapRepositoryError(err)
	}
}
