package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecommerce-mvp/shop/internal/domain/catalog"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (catalog.Product, error) {
	var (
		p      catalog.Product
		amount string
		cur    string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, price_amount::text, price_currency FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &amount, &cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("find product: %w", err)
	}

	unit, err := money.ParseCurrency(cur)
	if err != nil {
		return catalog.Product{}, err
	}
	price, err := decimal.NewFromString(amount)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("price_amount[%s] is not valid: %w", amount, err)
	}
	p.Price = money.Money{Amount: price, Currency: unit}
	return p, nil
}

// Upsert writes p, replacing the title and price of an existing product.
func (r *ProductRepository) Upsert(ctx context.Context, p catalog.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, title, price_amount, price_currency)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, price_amount = EXCLUDED.price_amount, price_currency = EXCLUDED.price_currency`,
		p.ID, p.Title, p.Price.Amount.String(), p.Price.Currency.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}
