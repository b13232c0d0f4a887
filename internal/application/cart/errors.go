package cart

import (
	"errors"
	"fmt"

	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
)

var ErrRepository = errors.New("cart: repository failure")

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

// writeStatus names the status text for a failed repository write.
func writeStatus(err error) string {
	if errors.Is(err, domain.ErrConflict) {
		return "VERSION_CONFLICT"
	}
	return "REPO_WRITE_FAILED"
}
