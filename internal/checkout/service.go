// Package checkout turns the cart into a placed order.
package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// OrderCreator is the remote order store.
type OrderCreator interface {
	HasCredentials() bool
	CreateOrder(ctx context.Context, req types.CreateOrderRequest, idempotencyKey string) (*types.Order, error)
}

// Cart is the part of cart.Store the submission needs.
type Cart interface {
	IsEmpty() bool
	Subtotal() decimal.Decimal
	Snapshot(notes *string) types.CreateOrderRequest
	Clear(ctx context.Context)
}

// Service submits carts as orders.
type Service interface {
	Submit(ctx context.Context, cart Cart, notes *string) (*types.Order, error)
}

type service struct {
	orders OrderCreator
	logg   *logger.Logger
	newKey func() string
}

func NewService(orders OrderCreator, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{orders: orders, logg: logg, newKey: uuid.NewString}, nil
}

// Submit sends the cart to the server. The cart is cleared only after the
// server accepted the order; on any failure it is left as it was. The
// returned order carries the server's prices and total.
func (s *service) Submit(ctx context.Context, cart Cart, notes *string) (*types.Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !s.orders.HasCredentials() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required to place an order")
	}

	req := cart.Snapshot(notes)
	key := s.newKey()
	ctx = s.logg.WithField(ctx, "idempotency_key", key)

	order, err := s.orders.CreateOrder(ctx, req, key)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("order submission failed: %v", err))
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if delta := Reprice(cart.Subtotal(), *order); delta.Changed {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"client_subtotal": delta.Client.String(),
			"server_total":    delta.Server.String(),
		}), "order repriced by server")
	}

	cart.Clear(ctx)
	s.logg.Info(ctx, "order submitted")
	return order, nil
}

// PriceDelta compares what the cart showed with what the server charged.
type PriceDelta struct {
	Client     decimal.Decimal
	Server     decimal.Decimal
	Difference decimal.Decimal
	Changed    bool
}

// Reprice reports the server total against the client subtotal. Difference
// is server minus client.
func Reprice(clientSubtotal decimal.Decimal, order types.Order) PriceDelta {
	diff := order.Total.Sub(clientSubtotal)
	return PriceDelta{
		Client:     clientSubtotal,
		Server:     order.Total,
		Difference: diff,
		Changed:    !diff.IsZero(),
	}
}
