package cart_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ecommerce-mvp/shop/internal/application"
	appcart "github.com/ecommerce-mvp/shop/internal/application/cart"
	domain "github.com/ecommerce-mvp/shop/internal/domain/cart"
	"github.com/ecommerce-mvp/shop/internal/domain/money"
	"github.com/ecommerce-mvp/shop/internal/infrastructure/memory"
	"github.com/ecommerce-mvp/shop/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/currency"
)

func TestCheckoutScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")
	h.stock(t, "prodB", "5")

	c, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 2})
	require.NoError(t, err)
	assert.True(t, c.Total.Equal(amount("20")), "got %s", c.Total)

	c, err = h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodB", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, c.Total.Equal(amount("25")), "got %s", c.Total)

	c, err = h.remove.Execute(ctx, appcart.RemoveLineInput{OwnerID: owner, ProductID: "prodA"})
	require.NoError(t, err)
	assert.True(t, c.Total.Equal(amount("5")), "got %s", c.Total)

	order, err := h.place.Execute(ctx, appcart.PlaceOrderInput{OwnerID: owner, Branch: "BRANCH-7"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, order.Status)
	assert.Equal(t, "BRANCH-7", order.Branch)
	assert.True(t, order.Total.Equal(amount("5")))
	assert.Equal(t, []string{"prodB"}, order.ProductIDs())
	assert.Equal(t, 1, order.Quantity("prodB"))
	assert.False(t, order.PlacedAt.IsZero())

	events := h.publisher.Events()
	require.Len(t, events, 1)
	placed, ok := events[0].(domain.OrderPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID, placed.OrderID)
	assert.Equal(t, "5", placed.TotalPrice)
	assert.Equal(t, "BRANCH-7", placed.Branch)
}

func TestGetCart_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
	require.NoError(t, err)

	first, err := h.get.Execute(ctx, appcart.GetCartInput{OwnerID: owner})
	require.NoError(t, err)
	second, err := h.get.Execute(ctx, appcart.GetCartInput{OwnerID: owner})
	require.NoError(t, err)

	opts := cmp.Options{
		cmp.Comparer(func(a, b money.Money) bool { return a.Equal(b) }),
		cmp.Comparer(func(a, b currency.Unit) bool { return a == b }),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(first, second, opts); diff != "" {
		t.Errorf("GetCart changed between reads (-first +second):\n%s", diff)
	}
}

func TestGetCart_WithoutCartReturnsUnsavedEmptyView(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()

	got, err := h.get.Execute(ctx, appcart.GetCartInput{OwnerID: owner})
	require.NoError(t, err)
	assert.Empty(t, got.ID)
	assert.Empty(t, got.Lines)
	assert.True(t, got.Total.IsZero())
	assert.Equal(t, owner, got.OwnerID)

	_, err = h.carts.FindOpen(ctx, owner)
	assert.ErrorIs(t, err, domain.ErrNotFound, "reading must not create a cart")
}

func TestAddLine_MergesQuantity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 2})
	require.NoError(t, err)
	c, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 3})
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)
	assert.True(t, c.Total.Equal(amount("50")))
	assert.Equal(t, int64(2), c.Version)
}

func TestAddLine_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.stock(t, "prodA", "10")

	tests := []struct {
		name string
		in   appcart.AddLineInput
		kind application.Kind
	}{
		{"blank owner", appcart.AddLineInput{ProductID: "prodA", Quantity: 1}, application.KindInvalidInput},
		{"blank product", appcart.AddLineInput{OwnerID: "u1", Quantity: 1}, application.KindInvalidInput},
		{"zero quantity", appcart.AddLineInput{OwnerID: "u1", ProductID: "prodA"}, application.KindInvalidInput},
		{"negative quantity", appcart.AddLineInput{OwnerID: "u1", ProductID: "prodA", Quantity: -2}, application.KindInvalidInput},
		{"quantity over limit", appcart.AddLineInput{OwnerID: "u1", ProductID: "prodA", Quantity: domain.MaxLineQuantity + 1}, application.KindInvalidInput},
		{"unknown product", appcart.AddLineInput{OwnerID: "u1", ProductID: "nope", Quantity: 1}, application.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.add.Execute(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, application.KindOf(err))
		})
	}

	_, err := h.carts.FindOpen(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "rejected input must not create a cart")
}

func TestAddLine_MergePastLimitLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	before, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: domain.MaxLineQuantity})
	require.NoError(t, err)

	_, err = h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 2})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, application.KindInvalidInput, application.KindOf(err))

	_, err = h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: math.MaxInt})
	assert.Equal(t, application.KindInvalidInput, application.KindOf(err))

	stored, err := h.carts.FindOpen(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxLineQuantity, stored.Quantity("prodA"))
	assert.Equal(t, before.Version, stored.Version)
	assert.False(t, stored.Total.Amount.IsNegative())
	assert.True(t, stored.Total.Equal(amount("10000")))
}

func TestAddLine_VanishedProductIsPricedAtZero(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")
	h.stock(t, "prodB", "5")

	_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
	require.NoError(t, err)

	h2 := newHarnessWith(t, h.carts)
	h2.stock(t, "prodB", "5")

	c, err := h2.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodB", Quantity: 2})
	require.NoError(t, err)
	assert.True(t, c.Total.Equal(amount("10")), "got %s", c.Total)
	assert.Equal(t, 1, c.Quantity("prodA"), "the line itself is kept")
}

func TestRemoveLine_AbsentLineIsNoOp(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	before, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
	require.NoError(t, err)

	after, err := h.remove.Execute(ctx, appcart.RemoveLineInput{OwnerID: owner, ProductID: "prodZ"})
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version, "no write happens")
	assert.Equal(t, before.ProductIDs(), after.ProductIDs())
	assert.True(t, before.Total.Equal(after.Total))
}

func TestRemoveLine_WithoutCart(t *testing.T) {
	h := newHarness(t)
	_, err := h.remove.Execute(context.Background(), appcart.RemoveLineInput{OwnerID: gofakeit.UUID(), ProductID: "prodA"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, application.KindNotFound, application.KindOf(err))
}

func TestPlaceOrder_EmptyOrMissingCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.stock(t, "prodA", "10")

	t.Run("never created", func(t *testing.T) {
		_, err := h.place.Execute(ctx, appcart.PlaceOrderInput{OwnerID: gofakeit.UUID(), Branch: "BRANCH-7"})
		assert.ErrorIs(t, err, domain.ErrEmpty)
		assert.Equal(t, application.KindInvalidState, application.KindOf(err))
	})

	t.Run("emptied", func(t *testing.T) {
		owner := gofakeit.UUID()
		_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
		require.NoError(t, err)
		_, err = h.remove.Execute(ctx, appcart.RemoveLineInput{OwnerID: owner, ProductID: "prodA"})
		require.NoError(t, err)

		_, err = h.place.Execute(ctx, appcart.PlaceOrderInput{OwnerID: owner, Branch: "BRANCH-7"})
		assert.ErrorIs(t, err, domain.ErrEmpty)

		still, err := h.carts.FindOpen(ctx, owner)
		require.NoError(t, err)
		assert.True(t, still.IsOpen())
	})

	t.Run("blank branch", func(t *testing.T) {
		_, err := h.place.Execute(ctx, appcart.PlaceOrderInput{OwnerID: gofakeit.UUID(), Branch: "   "})
		assert.Equal(t, application.KindInvalidInput, application.KindOf(err))
	})

	assert.Empty(t, h.publisher.Events())
}

func TestPlaceOrder_NextAddStartsFreshCart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
	require.NoError(t, err)
	order, err := h.place.Execute(ctx, appcart.PlaceOrderInput{OwnerID: owner, Branch: "BRANCH-7"})
	require.NoError(t, err)

	fresh, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 4})
	require.NoError(t, err)
	assert.NotEqual(t, order.ID, fresh.ID)
	assert.Equal(t, 4, fresh.Quantity("prodA"))

	stored, err := h.carts.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, stored.Status)
	assert.Equal(t, 1, stored.Quantity("prodA"))
	assert.True(t, stored.Total.Equal(amount("10")))
}

func TestPlaceOrder_PublishFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.publisher.err = errors.New("broker down")
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
	require.NoError(t, err)

	order, err := h.place.Execute(ctx, appcart.PlaceOrderInput{OwnerID: owner, Branch: "BRANCH-7"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, order.Status)

	assert.Equal(t, 1.0, h.metrics.count(observability.MExternalRequests,
		observability.L("peer", "outbox"),
		observability.L("endpoint", "order.placed"),
		observability.L("outcome", "error"),
	))
}

// closedOnFind hands out a closed cart as if it were still open.
type closedOnFind struct {
	domain.Repository
}

func (r closedOnFind) FindOpen(ctx context.Context, ownerID string) (*domain.Cart, error) {
	c, err := domain.New("closed-1", ownerID, unitUAH)
	if err != nil {
		return nil, err
	}
	c.Status = domain.StatusClosed
	c.Branch = "BRANCH-1"
	return c, nil
}

func TestClosedCartRejectsMutation(t *testing.T) {
	ctx := context.Background()
	h := newHarnessWith(t, closedOnFind{Repository: memory.NewCartRepository()})
	h.stock(t, "prodA", "10")

	_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: "u1", ProductID: "prodA", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.Equal(t, application.KindInvalidState, application.KindOf(err))

	_, err = h.remove.Execute(ctx, appcart.RemoveLineInput{OwnerID: "u1", ProductID: "prodA"})
	assert.ErrorIs(t, err, domain.ErrClosed)

	_, err = h.place.Execute(ctx, appcart.PlaceOrderInput{OwnerID: "u1", Branch: "BRANCH-7"})
	assert.ErrorIs(t, err, domain.ErrClosed)
}

// conflictOnUpdate loses every versioned write to another writer.
type conflictOnUpdate struct {
	*memory.CartRepository
}

func (r conflictOnUpdate) Update(context.Context, *domain.Cart) error {
	return domain.ErrConflict
}

func TestAddLine_ConflictIsReported(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewCartRepository()
	h := newHarnessWith(t, conflictOnUpdate{CartRepository: mem})
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	_, err := h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
	require.NoError(t, err, "the first add inserts")

	_, err = h.add.Execute(ctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, application.KindConflict, application.KindOf(err))

	stored, err := mem.FindOpen(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Quantity("prodA"), "nothing is written on conflict")

	assert.Equal(t, 1.0, h.metrics.count(observability.MUsecaseRequests,
		observability.L("use_case", "cart.add_line"),
		observability.L("outcome", "error"),
	))
}

func TestAddLine_ConcurrentAddsNeverLoseIncrements(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := gofakeit.UUID()
	h.stock(t, "prodA", "10")

	const workers = 32
	var succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := h.add.Execute(gctx, appcart.AddLineInput{OwnerID: owner, ProductID: "prodA", Quantity: 1})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrConflict):
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	got, err := h.get.Execute(ctx, appcart.GetCartInput{OwnerID: owner})
	require.NoError(t, err)
	require.Positive(t, succeeded.Load())
	assert.Equal(t, int(succeeded.Load()), got.Quantity("prodA"))
}
