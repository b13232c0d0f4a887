package id_test

import (
	"testing"

	"github.com/ecommerce-mvp/shop/internal/infrastructure/id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDGenerator(t *testing.T) {
	gen := id.NewUUIDGenerator()
	a, b := gen.NewID(), gen.NewID()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}
