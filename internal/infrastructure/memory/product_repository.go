package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ecommerce-mvp/shop/internal/domain/catalog"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]catalog.Product),
	}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (catalog.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepository) Put(p catalog.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[p.ID] = p
}

type seedProduct struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// ReadSeed parses a JSON array of {id, title, price} into products priced in cur.
func ReadSeed(path string, cur currency.Unit) ([]catalog.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog seed: %w", err)
	}

	var items []seedProduct
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("catalog seed %s: %w", path, err)
	}

	products := make([]catalog.Product, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("catalog seed %s: product without id", path)
		}
		price, err := money.New(it.Price, cur)
		if err != nil {
			return nil, fmt.Errorf("catalog seed %s: product %s: %w", path, it.ID, err)
		}
		products = append(products, catalog.Product{ID: it.ID, Title: it.Title, Price: price})
	}
	return products, nil
}

// LoadSeed stores every product of the seed file at path.
func (r *ProductRepository) LoadSeed(path string, cur currency.Unit) (int, error) {
	products, err := ReadSeed(path, cur)
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		r.Put(p)
	}
	return len(products), nil
}
