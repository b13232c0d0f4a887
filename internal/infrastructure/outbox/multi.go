package outbox

import (
	"context"
	"errors"

	domoutbox "github.com/ecommerce-mvp/shop/internal/domain/outbox"
)

// Multi publishes every event to each publisher in turn and joins their errors.
type Multi []domoutbox.Publisher

func (m Multi) Publish(ctx context.Context, e domoutbox.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
