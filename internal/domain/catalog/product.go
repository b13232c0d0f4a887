package catalog

import (
	"context"
	"errors"

	"github.com/ecommerce-mvp/shop/internal/domain/money"
)

var ErrNotFound = errors.New("catalog: product not found")

type Product struct {
	ID    string
	Title string
	Price money.Money
}

// Lookup resolves a product reference to its current price. It is read-only.
type Lookup interface {
	FindByID(ctx context.Context, id string) (Product, error)
}
