package identity

import (
	"context"
	"errors"
)

var ErrUnauthorized = errors.New("identity: unauthorized")

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the verified caller behind a request.
type Identity struct {
	ID   string
	Role Role
}

// Verifier turns a bearer credential into an Identity or fails with ErrUnauthorized.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns ErrUnauthorized when the context carries no identity with an id.
func FromContext(ctx context.Context) (Identity, error) {
	if ctx == nil {
		return Identity{}, ErrUnauthorized
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, ErrUnauthorized
	}
	return id, nil
}
