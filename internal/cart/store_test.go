package cart

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/redis"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

const testKey = "canteen:cart:app.cart:test"

func product(id int64, price string) types.Product {
	return types.Product{ID: id, Name: "item", Price: decimal.RequireFromString(price), Available: true}
}

func newMemoryStore(t *testing.T) (*Store, *MemoryCache) {
	t.Helper()
	cache := NewMemoryCache()
	store, err := NewStore(cache, testKey, nil)
	require.NoError(t, err)
	return store, cache
}

type failingCache struct{ calls int }

func (f *failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("down")
}

func (f *failingCache) Set(context.Context, string, []byte) error {
	f.calls++
	return errors.New("down")
}

func (f *failingCache) Delete(context.Context, string) error {
	f.calls++
	return errors.New("down")
}

func TestAddItemFoldsComplements(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)

	complements := []Complement{
		{ID: "maionese-caseira", Price: decimal.RequireFromString("2.00"), Quantity: 1},
		{ID: "ketchup", Price: decimal.Zero, Quantity: 2},
	}
	require.NoError(t, store.AddItem(ctx, product(1, "15.00"), 1, complements))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("17.00")))
	assert.Equal(t, "ketchupx2,maionese-caseirax1", lines[0].ComplementKey)
}

func TestAddItemMergesByProduct(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)

	require.NoError(t, store.AddItem(ctx, product(7, "10.00"), 1, nil))
	require.NoError(t, store.AddItem(ctx, product(7, "10.00"), 0, nil))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, store.Subtotal().Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, 2, store.ItemCount())
}

func TestAddItemRejectsDifferentComplements(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)

	require.NoError(t, store.AddItem(ctx, product(3, "12.00"), 1, nil))
	err := store.AddItem(ctx, product(3, "12.00"), 1, []Complement{
		{ID: "maionese-caseira", Price: decimal.RequireFromString("2.00"), Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.RequireFromString("12.00")))
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)

	assert.Error(t, store.AddItem(ctx, product(0, "1.00"), 1, nil))
	assert.Error(t, store.AddItem(ctx, product(1, "-1.00"), 1, nil))
	assert.Error(t, store.AddItem(ctx, product(1, "1.00"), 1, []Complement{{ID: "x", Price: decimal.NewFromInt(-1), Quantity: 1}}))
	assert.Error(t, store.AddItem(ctx, product(1, "1.00"), 1, []Complement{{ID: "x", Price: decimal.Zero}}))
	assert.True(t, store.IsEmpty())
}

func TestUpdateQuantityRemovesAtZero(t *testing.T) {
	ctx := context.Background()
	store, cache := newMemoryStore(t)

	require.NoError(t, store.AddItem(ctx, product(1, "5.00"), 2, nil))
	store.UpdateQuantity(ctx, 1, 3)
	assert.Equal(t, 5, store.ItemCount())

	store.UpdateQuantity(ctx, 1, -10)
	assert.True(t, store.IsEmpty())
	_, err := cache.Get(ctx, testKey)
	assert.ErrorIs(t, err, ErrCacheMiss)

	store.UpdateQuantity(ctx, 99, 1)
	assert.True(t, store.IsEmpty())
}

func TestRemoveItemUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)

	require.NoError(t, store.AddItem(ctx, product(1, "5.00"), 1, nil))
	store.RemoveItem(ctx, 2)
	assert.Len(t, store.Lines(), 1)
	store.RemoveItem(ctx, 1)
	assert.True(t, store.IsEmpty())
}

func TestClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, cache := newMemoryStore(t)

	require.NoError(t, store.AddItem(ctx, product(1, "5.00"), 1, nil))
	store.Clear(ctx)
	store.Clear(ctx)
	assert.True(t, store.IsEmpty())
	assert.True(t, store.Subtotal().IsZero())

	_, err := cache.Get(ctx, testKey)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLoadCorruptPayloadIsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, payload := range map[string]string{
		"garbage":   "{not json",
		"object":    `{"productId":1}`,
		"zero qty":  `[{"productId":1,"name":"x","quantity":0,"unitPrice":"1"}]`,
		"duplicate": `[{"productId":1,"quantity":1,"unitPrice":"1"},{"productId":1,"quantity":1,"unitPrice":"1"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			store, cache := newMemoryStore(t)
			require.NoError(t, cache.Set(ctx, testKey, []byte(payload)))
			store.Load(ctx)
			assert.True(t, store.IsEmpty())
		})
	}
}

func TestCacheFailuresDoNotAbortMutations(t *testing.T) {
	ctx := context.Background()
	cache := &failingCache{}
	store, err := NewStore(cache, testKey, nil)
	require.NoError(t, err)

	store.Load(ctx)
	require.NoError(t, store.AddItem(ctx, product(1, "5.00"), 2, nil))
	store.UpdateQuantity(ctx, 1, 1)
	assert.Equal(t, 3, store.ItemCount())
	assert.Equal(t, 2, cache.calls)
	store.Clear(ctx)
	assert.True(t, store.IsEmpty())
	assert.Equal(t, 3, cache.calls)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client, err := redis.NewFromURL(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	key := redis.CartKey("app.cart", "kiosk-1")
	cache := NewRedisCache(client, time.Hour)

	first, err := NewStore(cache, key, nil)
	require.NoError(t, err)
	first.Load(ctx)
	require.NoError(t, first.AddItem(ctx, product(1, "15.00"), 2, []Complement{
		{ID: "maionese-caseira", Price: decimal.RequireFromString("2.00"), Quantity: 1},
	}))
	require.NoError(t, first.AddItem(ctx, product(7, "10.00"), 1, nil))
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	second, err := NewStore(cache, key, nil)
	require.NoError(t, err)
	second.Load(ctx)

	got := second.Lines()
	want := first.Lines()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ProductID, got[i].ProductID)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].ComplementKey, got[i].ComplementKey)
		assert.True(t, want[i].UnitPrice.Equal(got[i].UnitPrice))
	}
	assert.True(t, second.Subtotal().Equal(decimal.RequireFromString("44.00")))

	second.Clear(ctx)
	assert.False(t, mr.Exists(key))
}

// TestRandomOperationsKeepInvariants drives random sequences and checks that
// quantities stay positive, product ids stay unique and the subtotal matches
// the lines after every step, including after a reload from cache.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	store, cache := newMemoryStore(t)

	for step := 0; step < 2000; step++ {
		id := int64(rng.Intn(6) + 1)
		switch rng.Intn(5) {
		case 0, 1:
			_ = store.AddItem(ctx, product(id, "3.50"), rng.Intn(4), nil)
		case 2:
			store.UpdateQuantity(ctx, id, rng.Intn(7)-4)
		case 3:
			store.RemoveItem(ctx, id)
		case 4:
			if rng.Intn(10) == 0 {
				store.Clear(ctx)
			}
		}

		seen := map[int64]bool{}
		expected := decimal.Zero
		for _, line := range store.Lines() {
			require.Greater(t, line.Quantity, 0)
			require.False(t, seen[line.ProductID], "duplicate product %d", line.ProductID)
			seen[line.ProductID] = true
			expected = expected.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		require.True(t, expected.Equal(store.Subtotal()))

		reloaded, err := NewStore(cache, testKey, nil)
		require.NoError(t, err)
		reloaded.Load(ctx)
		require.Equal(t, store.ItemCount(), reloaded.ItemCount())
		require.True(t, store.Subtotal().Equal(reloaded.Subtotal()))
	}
}

func TestSnapshotCarriesIDsAndQuantities(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore(t)
	require.NoError(t, store.AddItem(ctx, product(2, "8.00"), 3, nil))
	notes := "sem cebola"

	req := store.Snapshot(&notes)
	require.Len(t, req.Items, 1)
	assert.Equal(t, types.OrderItemInput{ProductID: 2, Quantity: 3}, req.Items[0])
	assert.Equal(t, &notes, req.Notes)
}

func TestNewStoreRequiresCacheAndKey(t *testing.T) {
	_, err := NewStore(nil, testKey, nil)
	assert.Error(t, err)
	_, err = NewStore(NewMemoryCache(), "", nil)
	assert.Error(t, err)
}
