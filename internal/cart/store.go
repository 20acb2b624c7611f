package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// Store owns one session's cart. It is not safe for concurrent use; a
// session has a single actor.
type Store struct {
	cache Cache
	key   string
	logg  *logger.Logger
	lines []Line
}

func NewStore(cache Cache, key string, logg *logger.Logger) (*Store, error) {
	if cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	if key == "" {
		return nil, fmt.Errorf("cart key required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{cache: cache, key: key, logg: logg}, nil
}

// Load replaces the in-memory cart with the cached one. Missing or
// unreadable data leaves an empty cart.
func (s *Store) Load(ctx context.Context) {
	s.lines = nil

	payload, err := s.cache.Get(ctx, s.key)
	if errors.Is(err, ErrCacheMiss) {
		return
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cart_key", s.key), fmt.Sprintf("cart load failed: %v", err))
		return
	}

	lines, err := decodeLines(payload)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cart_key", s.key), fmt.Sprintf("discarding cached cart: %v", err))
		return
	}
	s.lines = lines
}

// AddItem adds quantity units of product. Complement prices are folded into
// the unit price of a new line. Adding a product that is already in the cart
// only raises its quantity, and the complement selection must match.
func (s *Store) AddItem(ctx context.Context, product types.Product, quantity int, complements []Complement) error {
	if product.ID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if product.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price must not be negative")
	}
	for _, c := range complements {
		if c.Price.IsNegative() || c.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid complement").
				WithDetails(map[string]any{"complement": c.ID})
		}
	}
	if quantity <= 0 {
		quantity = 1
	}

	signature := complementKey(complements)
	if idx := s.indexOf(product.ID); idx >= 0 {
		if s.lines[idx].ComplementKey != signature {
			return pkgerrors.New(pkgerrors.CodeValidation, "product already in cart with different complements").
				WithDetails(map[string]any{"product_id": product.ID})
		}
		s.lines[idx].Quantity += quantity
		s.persist(ctx)
		return nil
	}

	s.lines = append(s.lines, Line{
		ProductID:     product.ID,
		Name:          product.Name,
		Quantity:      quantity,
		UnitPrice:     effectivePrice(product.Price, complements),
		ComplementKey: signature,
	})
	s.persist(ctx)
	return nil
}

// UpdateQuantity adds delta to a line's quantity. A result of zero or less
// removes the line. Unknown products are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, productID int64, delta int) {
	idx := s.indexOf(productID)
	if idx < 0 {
		return
	}
	next := s.lines[idx].Quantity + delta
	if next <= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	} else {
		s.lines[idx].Quantity = next
	}
	s.persist(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, productID int64) {
	if idx := s.indexOf(productID); idx >= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	}
	s.persist(ctx)
}

// Clear empties the cart and erases the cached entry. Calling it on an empty
// cart is harmless. A failed cache delete is logged like any other write.
func (s *Store) Clear(ctx context.Context) {
	s.lines = nil
	s.persist(ctx)
}

func (s *Store) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) ItemCount() int {
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

func (s *Store) IsEmpty() bool {
	return len(s.lines) == 0
}

// Snapshot is the order request for the current cart. Only ids and
// quantities are sent; the server prices the order.
func (s *Store) Snapshot(notes *string) types.CreateOrderRequest {
	items := make([]types.OrderItemInput, 0, len(s.lines))
	for _, line := range s.lines {
		items = append(items, types.OrderItemInput{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return types.CreateOrderRequest{Items: items, Notes: notes}
}

func (s *Store) indexOf(productID int64) int {
	for i, line := range s.lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) {
	if len(s.lines) == 0 {
		if err := s.cache.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrCacheMiss) {
			s.logg.Warn(s.logg.WithField(ctx, "cart_key", s.key), fmt.Sprintf("cart cache delete failed: %v", err))
		}
		return
	}
	payload, err := json.Marshal(s.lines)
	if err != nil {
		s.logg.Error(ctx, "cart encode failed", err)
		return
	}
	if err := s.cache.Set(ctx, s.key, payload); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cart_key", s.key), fmt.Sprintf("cart cache write failed: %v", err))
	}
}

func decodeLines(payload []byte) ([]Line, error) {
	var lines []Line
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if line.ProductID <= 0 || line.Quantity <= 0 || line.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("invalid cart line for product %d", line.ProductID)
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, fmt.Errorf("duplicate cart line for product %d", line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return lines, nil
}
