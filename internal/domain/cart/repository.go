package cart

import "context"

// Repository persists carts with optimistic versioning. Implementations hand out copies.
type Repository interface {
	// FindOpen returns the owner's open cart or ErrNotFound.
	FindOpen(ctx context.Context, ownerID string) (*Cart, error)
	// Get returns a cart or order by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Cart, error)
	// Insert stores a new cart at version 1. It fails with ErrConflict when the id is taken
	// or the owner already has an open cart.
	Insert(ctx context.Context, c *Cart) error
	// Update stores c only if the stored version still equals c.Version, then bumps
	// c.Version. A mismatch is ErrConflict.
	Update(ctx context.Context, c *Cart) error
}
