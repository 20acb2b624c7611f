// Package listing is the read side of the order API as used by the client.
package listing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/internal/lifecycle"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// OrderReader is the remote order store.
type OrderReader interface {
	ListMyOrders(ctx context.Context, filters types.OrderFilters) (*types.OrderList, error)
	ListOrders(ctx context.Context, filters types.OrderFilters) (*types.OrderList, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*types.Order, error)
}

type Service struct {
	reader OrderReader
	bounds pagination.Bounds
}

func NewService(reader OrderReader, bounds pagination.Bounds) (*Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("order reader required")
	}
	return &Service{reader: reader, bounds: bounds}, nil
}

// ListMine returns the caller's own orders. The status filter is dropped for
// customers.
func (s *Service) ListMine(ctx context.Context, role enums.Role, filters types.OrderFilters) (*types.OrderList, error) {
	filters, err := s.normalize(filters)
	if err != nil {
		return nil, err
	}
	if !role.IsStaff() {
		filters.Status = nil
	}
	return s.reader.ListMyOrders(ctx, filters)
}

// ListAll returns every order and is refused locally for customers.
func (s *Service) ListAll(ctx context.Context, role enums.Role, filters types.OrderFilters) (*types.OrderList, error) {
	if !role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can list all orders")
	}
	filters, err := s.normalize(filters)
	if err != nil {
		return nil, err
	}
	return s.reader.ListOrders(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*types.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return s.reader.GetOrder(ctx, id)
}

// Tabs loads the largest page of the caller's orders and splits it into the
// in progress and completed tabs.
func (s *Service) Tabs(ctx context.Context, role enums.Role) (lifecycle.Tabs, error) {
	list, err := s.ListMine(ctx, role, types.OrderFilters{Limit: s.maxLimit()})
	if err != nil {
		return lifecycle.Tabs{}, err
	}
	return lifecycle.Partition(list.Orders), nil
}

func (s *Service) normalize(filters types.OrderFilters) (types.OrderFilters, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
			WithDetails(map[string]any{"status": string(*filters.Status)})
	}
	page := s.bounds.Normalize(pagination.Params{Limit: filters.Limit, Offset: filters.Offset})
	filters.Limit = page.Limit
	filters.Offset = page.Offset
	return filters, nil
}

func (s *Service) maxLimit() int {
	if s.bounds.Max > 0 {
		return s.bounds.Max
	}
	return pagination.MaxLimit
}
