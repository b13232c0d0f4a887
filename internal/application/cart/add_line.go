package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecommerce-mvp/shop/internal/application"
	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/catalog"
	"github.com/ecommerce-mvp/shop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/currency"
)

const useCaseAddLine = "cart.add_line"

// AddLineUseCase puts a product into the owner's open cart, creating the cart on first use.
type AddLineUseCase struct {
	carts       domain.Repository
	products    catalog.Lookup
	pricer      *Pricer
	idGenerator IDGenerator
	currency    currency.Unit
	inst        instrument
}

func NewAddLineUseCase(
	carts domain.Repository,
	products catalog.Lookup,
	pricer *Pricer,
	idGen IDGenerator,
	cur currency.Unit,
	tel observability.Observability,
) *AddLineUseCase {
	return &AddLineUseCase{
		carts:       carts,
		products:    products,
		pricer:      pricer,
		idGenerator: idGen,
		currency:    cur,
		inst:        newInstrument(tel),
	}
}

type AddLineInput struct {
	OwnerID   string
	ProductID string
	Quantity  int
}

func (uc *AddLineUseCase) Execute(ctx context.Context, cmd AddLineInput) (_ *domain.Cart, err error) {
	ctx, c := uc.inst.begin(ctx, useCaseAddLine, "AddLine",
		attribute.String("cart.owner_id", cmd.OwnerID),
		attribute.String("cart.product_id", cmd.ProductID),
		attribute.Int("cart.quantity", cmd.Quantity),
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
	if cmd.Quantity <= 0 || cmd.Quantity > domain.MaxLineQuantity {
		c.fail("QUANTITY_INVALID")
		return nil, application.NewValidation(fmt.Sprintf("quantity must be between 1 and %d", domain.MaxLineQuantity))
	}
	if err := ctx.Err(); err != nil {
		c.fail("CONTEXT_CANCELED")
		return nil, err
	}

	product, err := uc.products.FindByID(ctx, cmd.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.fail("PRODUCT_NOT_FOUND")
		} else {
			c.fail("PRODUCT_LOOKUP_FAILED")
		}
		return nil, fmt.Errorf("cart: product %s: %w", cmd.ProductID, err)
	}

	entity, created, err := uc.openOrNew(ctx, cmd.OwnerID)
	if err != nil {
		c.fail("REPO_FIND_FAILED")
		return nil, err
	}

	if err := entity.AddLine(cmd.ProductID, cmd.Quantity); err != nil {
		c.fail("CART_REJECTED")
		return nil, fmt.Errorf("cart: add line: %w", err)
	}
	if err := uc.pricer.Reprice(ctx, entity, product); err != nil {
		c.fail("REPRICE_FAILED")
		return nil, fmt.Errorf("cart: reprice: %w", err)
	}

	if created {
		err = uc.carts.Insert(ctx, entity)
	} else {
		err = uc.carts.Update(ctx, entity)
	}
	if err != nil {
		c.fail(writeStatus(err))
		return nil, wrapRepositoryError(err)
	}

	c.annotate(
		observability.F("cart_id", entity.ID),
		observability.F("cart_version", entity.Version),
		observability.F("cart_created", created),
	)
	c.span.AddEvent("cart.line_added",
		trace.WithAttributes(
			attribute.String("cart.id", entity.ID),
			attribute.String("cart.total", entity.Total.Amount.String()),
		),
	)
	return entity, nil
}

func (uc *AddLineUseCase) openOrNew(ctx context.Context, ownerID string) (*domain.Cart, bool, error) {
	existing, err := uc.carts.FindOpen(ctx, ownerID)
	switch {
	case err == nil:
		return existing, false, nil
	case errors.Is(err, domain.ErrNotFound):
		fresh, err := domain.New(uc.idGenerator.NewID(), ownerID, uc.currency)
		if err != nil {
			return nil, false, fmt.Errorf("cart: construct: %w", err)
		}
		return fresh, true, nil
	default:
		return nil, false, wrapRepositoryError(err)
	}
}
