package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
)

// CartRepository keeps carts and placed orders in process memory.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
	// open indexes the single open cart of each owner.
	open map[string]string
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string]*domain.Cart),
		open:  make(map[string]string),
	}
}

func (r *CartRepository) FindOpen(ctx context.Context, ownerID string) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.open[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c, ok := r.carts[id]
	if !ok || !c.IsOpen() {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) Insert(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.ID == "" {
		return fmt.Errorf("cart repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.carts[c.ID]; exists {
		return domain.ErrConflict
	}
	if c.IsOpen() {
		if _, exists := r.open[c.OwnerID]; exists {
			return domain.ErrConflict
		}
	}

	c.Version = 1
	r.carts[c.ID] = c.Clone()
	if c.IsOpen() {
		r.open[c.OwnerID] = c.ID
	}
	return nil
}

func (r *CartRepository) Update(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.ID == "" {
		return fmt.Errorf("cart repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.carts[c.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if stored.Version != c.Version {
		return domain.ErrConflict
	}

	c.Version++
	r.carts[c.ID] = c.Clone()
	if c.IsOpen() {
		r.open[c.OwnerID] = c.ID
	} else if r.open[c.OwnerID] == c.ID {
		delete(r.open, c.OwnerID)
	}
	return nil
}
