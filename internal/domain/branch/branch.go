package branch

import (
	"context"
	"errors"
)

// ErrUpstream marks failures of the external directory. They are not retried.
var ErrUpstream = errors.New("branch: directory unavailable")

// Branch is a fulfillment/pickup location. Ref is the opaque identifier stored on orders.
type Branch struct {
	Ref         string
	Number      string
	Description string
	City        string
}

type Directory interface {
	List(ctx context.Context) ([]Branch, error)
}
