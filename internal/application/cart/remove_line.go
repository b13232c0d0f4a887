package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecommerce-mvp/shop/internal/application"
	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseRemoveLine = "cart.remove_line"

// RemoveLineUseCase drops a product line from the owner's open cart.
type RemoveLineUseCase struct {
	carts  domain.Repository
	pricer *Pricer
	inst   instrument
}

func NewRemoveLineUseCase(carts domain.Repository, pricer *Pricer, tel observability.Observability) *RemoveLineUseCase {
	return &RemoveLineUseCase{
		carts:  carts,
		pricer: pricer,
		inst:   newInstrument(tel),
	}
}

type RemoveLineInput struct {
	OwnerID   string
	ProductID string
}

// Execute returns the cart unchanged, without writing, when it has no line for the product.
func (uc *RemoveLineUseCase) Execute(ctx context.Context, cmd RemoveLineInput) (_ *domain.Cart, err error) {
	ctx, c := uc.inst.begin(ctx, useCaseRemoveLine, "RemoveLine",
		attribute.String("cart.owner_id", cmd.OwnerID),
		attribute.String("cart.product_id", cmd.ProductID),
	)
	defer func() { c.end(err) }()

	if strings.TrimSpace(cmd.OwnerID) == "" {
		c.fail("OWNER_ID_REQUIRED")
		return nil, application.NewValidation("owner id is required")
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		c.fail("PRODUCT_ID_REQUIRED")
		return nil, application.NewValidation("product id is required")
	}

	entity, err := uc.carts.FindOpen(ctx, cmd.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.fail("CART_NOT_FOUND")
			return nil, fmt.Errorf("cart: no open cart: %w", err)
		}
		c.fail("REPO_FIND_FAILED")
		return nil, wrapRepositoryError(err)
	}
	c.annotate(observability.F("cart_id", entity.ID))

	removed, err := entity.RemoveLine(cmd.ProductID)
	if err != nil {
		c.fail("CART_REJECTED")
		return nil, fmt.Errorf("cart: remove line: %w", err)
	}
	if !removed {
		c.status("LINE_ABSENT")
		return entity, nil
	}

	if err := uc.pricer.Reprice(ctx, entity); err != nil {
		c.fail("REPRICE_FAILED")
		return nil, fmt.Errorf("cart: reprice: %w", err)
	}
	if err := uc.carts.Update(ctx, entity); err != nil {
		c.fail(writeStatus(err))
		return nil, wrapRepositoryError(err)
	}

	c.annotate(observability.F("cart_version", entity.Version))
	return entity, nil
}
