package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type stubCreator struct {
	loggedIn bool
	calls    int
	lastReq  types.CreateOrderRequest
	lastKey  string
	order    *types.Order
	err      error
}

func (s *stubCreator) HasCredentials() bool { return s.loggedIn }

func (s *stubCreator) CreateOrder(_ context.Context, req types.CreateOrderRequest, key string) (*types.Order, error) {
	s.calls++
	s.lastReq = req
	s.lastKey = key
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func newCart(t *testing.T) *cart.Store {
	t.Helper()
	store, err := cart.NewStore(cart.NewMemoryCache(), "canteen:cart:app.cart:test", nil)
	require.NoError(t, err)
	return store
}

func juice() types.Product {
	return types.Product{ID: 7, Name: "Suco Natural", Price: decimal.RequireFromString("10.00"), Available: true}
}

func TestSubmitTwoJuicesClearsCart(t *testing.T) {
	ctx := context.Background()
	store := newCart(t)
	require.NoError(t, store.AddItem(ctx, juice(), 1, nil))
	require.NoError(t, store.AddItem(ctx, juice(), 1, nil))

	creator := &stubCreator{loggedIn: true, order: &types.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPlaced,
		Total:  decimal.RequireFromString("20.00"),
		Items: []types.OrderLineItem{{
			ProductID: 7, ProductName: "Suco Natural", Quantity: 2,
			UnitPrice: decimal.RequireFromString("10.00"), LineTotal: decimal.RequireFromString("20.00"),
		}},
	}}
	svc, err := NewService(creator, nil)
	require.NoError(t, err)

	order, err := svc.Submit(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, order.Status)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("20.00")))

	assert.Equal(t, 1, creator.calls)
	assert.Equal(t, []types.OrderItemInput{{ProductID: 7, Quantity: 2}}, creator.lastReq.Items)
	assert.NotEmpty(t, creator.lastKey)
	assert.True(t, store.IsEmpty())
}

func TestSubmitEmptyCartIsValidationError(t *testing.T) {
	creator := &stubCreator{loggedIn: true}
	svc, err := NewService(creator, nil)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), newCart(t), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, creator.calls)
}

func TestSubmitWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	store := newCart(t)
	require.NoError(t, store.AddItem(ctx, juice(), 1, nil))

	creator := &stubCreator{}
	svc, err := NewService(creator, nil)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, store, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.False(t, pkgerrors.IsRetryable(err))
	assert.Zero(t, creator.calls)
	assert.False(t, store.IsEmpty())
}

func TestSubmitFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	store := newCart(t)
	require.NoError(t, store.AddItem(ctx, juice(), 2, nil))

	creator := &stubCreator{loggedIn: true, err: pkgerrors.Wrap(pkgerrors.CodeNetwork, errors.New("timeout"), "POST /api/v1/orders")}
	svc, err := NewService(creator, nil)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, store, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRetryable(err))
	assert.Equal(t, 2, store.ItemCount())
}

func TestSubmitUsesFreshKeyPerAttempt(t *testing.T) {
	ctx := context.Background()
	store := newCart(t)
	require.NoError(t, store.AddItem(ctx, juice(), 1, nil))

	creator := &stubCreator{loggedIn: true, err: pkgerrors.New(pkgerrors.CodeNetwork, "down")}
	svc, err := NewService(creator, nil)
	require.NoError(t, err)

	_, _ = svc.Submit(ctx, store, nil)
	first := creator.lastKey
	_, _ = svc.Submit(ctx, store, nil)
	assert.NotEqual(t, first, creator.lastKey)
}

func TestReprice(t *testing.T) {
	delta := Reprice(decimal.RequireFromString("20.00"), types.Order{Total: decimal.RequireFromString("22.00")})
	assert.True(t, delta.Changed)
	assert.True(t, delta.Difference.Equal(decimal.NewFromInt(2)))

	same := Reprice(decimal.RequireFromString("20.00"), types.Order{Total: decimal.RequireFromString("20")})
	assert.False(t, same.Changed)
}
