package application

import (
	"errors"
	"fmt"

	"github.com/ecommerce-mvp/shop/internal/domain/branch"
	"github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/catalog"
	"github.com/ecommerce-mvp/shop/internal/domain/identity"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
)

// ErrValidation marks malformed input rejected before any domain work.
var ErrValidation = errors.New("validation")

// Kind is the transport-neutral class of a failure.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream"
	KindInternal     Kind = "internal"
)

func NewValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// KindOf classifies err by the sentinels it wraps. nil has no kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, identity.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, cart.ErrNotFound):
		return KindNotFound
	case errors.Is(err, cart.ErrEmpty),
		errors.Is(err, cart.ErrClosed),
		errors.Is(err, cart.ErrInvalidStateTransition):
		return KindInvalidState
	case errors.Is(err, cart.ErrConflict):
		return KindConflict
	case errors.Is(err, branch.ErrUpstream):
		return KindUpstream
	case errors.Is(err, ErrValidation),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrOwnerRequired),
		errors.Is(err, cart.ErrProductRequired),
		errors.Is(err, cart.ErrBranchRequired),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, money.ErrNegativeAmount):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
