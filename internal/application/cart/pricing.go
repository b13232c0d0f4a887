package cart

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/catalog"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
	"golang.org/x/sync/errgroup"
)

const defaultPricingConcurrency = 4

// Pricer re-prices every line of a cart from the catalog.
type Pricer struct {
	products      catalog.Lookup
	maxConcurrent int
}

func NewPricer(products catalog.Lookup, maxConcurrent int) *Pricer {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultPricingConcurrency
	}
	return &Pricer{products: products, maxConcurrent: maxConcurrent}
}

// Reprice looks up the current price of each line and recomputes the cart total.
// Products passed in known are not looked up again. A product that no longer exists
// prices its line at zero.
func (p *Pricer) Reprice(ctx context.Context, c *domain.Cart, known ...catalog.Product) error {
	prices := make(map[string]money.Money, len(c.Lines))
	for _, k := range known {
		prices[k.ID] = k.Price
	}

	var pending []string
	for _, id := range c.ProductIDs() {
		if _, ok := prices[id]; !ok {
			pending = append(pending, id)
		}
	}

	found := make([]*money.Money, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	for idx := range pending {
		g.Go(func() error {
			product, err := p.products.FindByID(gctx, pending[idx])
			if errors.Is(err, catalog.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get product %s: %w", pending[idx], err)
			}
			found[idx] = &product.Price
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for idx, price := range found {
		if price != nil {
			prices[pending[idx]] = *price
		}
	}
	return c.Reprice(prices)
}
