package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const cartColumns = `id::text, owner_id, status, lines, total_amount::text, currency, branch, version,
	created_at, updated_at, placed_at`

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// lineRecord is the JSONB shape of one cart line.
type lineRecord struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

func (r *CartRepository) FindOpen(ctx context.Context, ownerID string) (*domain.Cart, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE owner_id = $1 AND status = 'open'`, ownerID)
	c, err := scanCart(row)
	if err != nil {
		return nil, fmt.Errorf("find open cart: %w", err)
	}
	return c, nil
}

func (r *CartRepository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1::uuid`, id)
	c, err := scanCart(row)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

func (r *CartRepository) Insert(ctx context.Context, c *domain.Cart) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("cart repository: id is required")
	}
	lines, err := encodeLines(c.Lines)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO carts (id, owner_id, status, lines, total_amount, currency, branch, version,
		                   created_at, updated_at, placed_at)
		VALUES ($1::uuid, $2, $3, $4, $5::numeric, $6, $7, 1, $8, $9, $10)`,
		c.ID, c.OwnerID, string(c.Status), lines, c.Total.Amount.String(), c.Currency.String(), c.Branch,
		c.CreatedAt, c.UpdatedAt, placedAt(c),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert cart: %w", err)
	}

	c.Version = 1
	return nil
}

func (r *CartRepository) Update(ctx context.Context, c *domain.Cart) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("cart repository: id is required")
	}
	lines, err := encodeLines(c.Lines)
	if err != nil {
		return err
	}

	next, err := withTx(ctx, r.pool, func(tx pgx.Tx) (int64, error) {
		var version int64
		err := tx.QueryRow(ctx, `
			UPDATE carts
			SET lines = $3, total_amount = $4::numeric, status = $5, branch = $6,
			    version = version + 1, updated_at = $7, placed_at = $8
			WHERE id = $1::uuid AND version = $2
			RETURNING version`,
			c.ID, c.Version, lines, c.Total.Amount.String(), string(c.Status), c.Branch,
			c.UpdatedAt, placedAt(c),
		).Scan(&version)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			if isUniqueViolation(err) {
				return 0, domain.ErrConflict
			}
			return 0, fmt.Errorf("update cart: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM carts WHERE id = $1::uuid)`, c.ID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check cart: %w", err)
		}
		if !exists {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrConflict
	})
	if err != nil {
		return err
	}

	c.Version = next
	return nil
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c        domain.Cart
		status   string
		rawLines []byte
		total    string
		cur      string
		placed   *time.Time
	)
	err := row.Scan(&c.ID, &c.OwnerID, &status, &rawLines, &total, &cur, &c.Branch, &c.Version,
		&c.CreatedAt, &c.UpdatedAt, &placed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	unit, err := money.ParseCurrency(cur)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("total_amount[%s] is not valid: %w", total, err)
	}

	c.Status = domain.Status(status)
	c.Currency = unit
	c.Total = money.Money{Amount: amount, Currency: unit}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if placed != nil {
		c.PlacedAt = placed.UTC()
	}

	c.Lines, err = decodeLines(rawLines, unit)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func encodeLines(lines []domain.Line) ([]byte, error) {
	records := make([]lineRecord, 0, len(lines))
	for _, l := range lines {
		records = append(records, lineRecord{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Amount.String(),
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode lines: %w", err)
	}
	return data, nil
}

func decodeLines(raw []byte, unit currency.Unit) ([]domain.Line, error) {
	var records []lineRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}

	lines := make([]domain.Line, 0, len(records))
	for _, rec := range records {
		price, err := decimal.NewFromString(rec.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("unit price[%s] of %s is not valid: %w", rec.UnitPrice, rec.ProductID, err)
		}
		lines = append(lines, domain.Line{
			ProductID: rec.ProductID,
			Quantity:  rec.Quantity,
			UnitPrice: money.Money{Amount: price, Currency: unit},
		})
	}
	return lines, nil
}

func placedAt(c *domain.Cart) *time.Time {
	if c.PlacedAt.IsZero() {
		return nil
	}
	t := c.PlacedAt
	return &t
}
