// Package jwt verifies and issues HS256 bearer tokens carrying {id, role} claims.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecommerce-mvp/shop/internal/domain/identity"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL matches the lifetime of tokens issued at login.
const DefaultTTL = time.Hour

var ErrSecretRequired = errors.New("jwt: secret is required")

type claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify fails with identity.ErrUnauthorized for any malformed, forged or expired token.
func (v *Verifier) Verify(_ context.Context, credential string) (identity.Identity, error) {
	var c claims
	token, err := v.parser.ParseWithClaims(credential, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", identity.ErrUnauthorized, err)
	}
	if !token.Valid || c.UserID == "" {
		return identity.Identity{}, fmt.Errorf("%w: token carries no user id", identity.ErrUnauthorized)
	}

	role := identity.Role(c.Role)
	if role == "" {
		role = identity.RoleUser
	}
	return identity.Identity{ID: c.UserID, Role: role}, nil
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

func (i *Issuer) Issue(id identity.Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: id.ID,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}
