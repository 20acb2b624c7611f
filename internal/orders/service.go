package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/lifecycle"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/metrics"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ProductLookup resolves catalog rows for pricing.
type ProductLookup interface {
	FindByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// Service defines the order operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, actor Actor, req types.CreateOrderRequest) (*types.Order, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, req types.UpdateStatusRequest) (*types.Order, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, req types.CancelOrderRequest) (*types.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*types.Order, error)
	ListMine(ctx context.Context, actor Actor, filters types.OrderFilters) (*types.OrderList, error)
	ListAll(ctx context.Context, actor Actor, filters types.OrderFilters) (*types.OrderList, error)
}

type service struct {
	repo     Repository
	products ProductLookup
	tx       txRunner
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	bounds   pagination.Bounds
	maxQty   int
	now      func() time.Time
}

// NewService builds the order service. A nil metrics value disables metrics.
func NewService(repo Repository, products ProductLookup, tx txRunner, logg *logger.Logger, m *metrics.OrderMetrics, cfg config.OrdersConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	maxQty := cfg.MaxLineQuantity
	if maxQty <= 0 {
		maxQty = 99
	}
	return &service{
		repo:     repo,
		products: products,
		tx:       tx,
		logg:     logg,
		metrics:  m,
		bounds:   pagination.Bounds{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize},
		maxQty:   maxQty,
		now:      time.Now,
	}, nil
}

// Create prices the request from the catalog and stores a placed order.
// Client supplied prices do not exist on the wire; the total is always ours.
func (s *service) Create(ctx context.Context, actor Actor, req types.CreateOrderRequest) (*types.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	quantities, ids, err := s.mergeItems(req.Items)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.ResultError, 0)
		return nil, err
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.ResultError, 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	orderID := uuid.New()
	order := &models.Order{
		ID:     orderID,
		UserID: actor.UserID,
		Status: enums.OrderStatusPlaced,
		Notes:  req.Notes,
	}
	total := decimal.Zero
	for _, id := range ids {
		product, ok := byID[id]
		if !ok {
			s.metrics.ObserveSubmission(metrics.ResultError, 0)
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		if !product.Available {
			s.metrics.ObserveSubmission(metrics.ResultError, 0)
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").
				WithDetails(map[string]any{"product_id": id, "name": product.Name})
		}
		qty := quantities[id]
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(qty)))
		total = total.Add(lineTotal)
		order.LineItems = append(order.LineItems, models.OrderLineItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   id,
			ProductName: product.Name,
			Quantity:    qty,
			UnitPrice:   product.Price,
			LineTotal:   lineTotal,
		})
	}
	order.Total = total

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		s.metrics.ObserveSubmission(metrics.ResultError, 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithField(ctx, "total", total.StringFixed(2)), "order placed")
	s.metrics.ObserveSubmission(metrics.ResultOK, total.InexactFloat64())

	created, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	out := toOrder(*created)
	return &out, nil
}

// mergeItems folds repeated product ids into one line and returns the ids
// in ascending order.
func (s *service) mergeItems(items []types.OrderItemInput) (map[int64]int, []int64, error) {
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	quantities := make(map[int64]int, len(items))
	for _, item := range items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "items need a product id and a positive quantity").
				WithDetails(map[string]any{"product_id": item.ProductID, "quantity": item.Quantity})
		}
		quantities[item.ProductID] += item.Quantity
		if quantities[item.ProductID] > s.maxQty {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per item limit").
				WithDetails(map[string]any{"product_id": item.ProductID, "max_quantity": s.maxQty})
		}
	}
	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return quantities, ids, nil
}

// UpdateStatus moves an order to req.Status. The write is a compare and set
// on the status read here, so of two concurrent changes only one applies
// and the other gets CONFLICT.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, req types.UpdateStatusRequest) (*types.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !req.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status").
			WithDetails(map[string]any{"status": string(req.Status)})
	}
	if req.ExpectedStatus != nil && !req.ExpectedStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid expected status").
			WithDetails(map[string]any{"expected_status": string(*req.ExpectedStatus)})
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	current, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && current.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	from := current.Status
	// Customers never move orders, so they are refused before any staleness
	// check sends them into a refresh and retry.
	if !actor.Role.IsStaff() {
		s.metrics.ObserveTransition(string(from), string(req.Status), metrics.ResultForbidden)
		return nil, lifecycle.Check(actor.Role, from, req.Status)
	}
	if req.ExpectedStatus != nil && *req.ExpectedStatus != from {
		s.metrics.ObserveTransition(string(from), string(req.Status), metrics.ResultConflict)
		return nil, conflict(from, *req.ExpectedStatus)
	}
	if err := lifecycle.Check(actor.Role, from, req.Status); err != nil {
		s.metrics.ObserveTransition(string(from), string(req.Status), metrics.ResultForbidden)
		return nil, err
	}

	applied, err := s.repo.UpdateStatus(ctx, orderID, from, req.Status)
	if err != nil {
		s.metrics.ObserveTransition(string(from), string(req.Status), metrics.ResultError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !applied {
		s.metrics.ObserveTransition(string(from), string(req.Status), metrics.ResultConflict)
		latest, loadErr := s.load(ctx, orderID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, conflict(latest.Status, from)
	}
	s.metrics.ObserveTransition(string(from), string(req.Status), metrics.ResultOK)

	updated, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if lifecycle.IsTerminal(updated.Status) {
		s.metrics.ObserveTerminal(string(updated.Status), s.now().Sub(updated.CreatedAt))
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":       string(from),
		"to":         string(req.Status),
		"actor_role": string(actor.Role),
	}), "order status changed")

	out := toOrder(*updated)
	return &out, nil
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, req types.CancelOrderRequest) (*types.Order, error) {
	return s.UpdateStatus(ctx, actor, orderID, types.UpdateStatusRequest{
		Status:         enums.OrderStatusCancelled,
		ExpectedStatus: req.ExpectedStatus,
	})
}

// Get returns an order to its owner or to staff. Customers asking for
// someone else's order get FORBIDDEN.
func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*types.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	out := toOrder(*order)
	return &out, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, filters types.OrderFilters) (*types.OrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID := actor.UserID
	list := ListFilters{UserID: &userID}
	if actor.Role.IsStaff() {
		list.Status = filters.Status
	}
	return s.list(ctx, list, filters)
}

func (s *service) ListAll(ctx context.Context, actor Actor, filters types.OrderFilters) (*types.OrderList, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff can list all orders")
	}
	return s.list(ctx, ListFilters{Status: filters.Status}, filters)
}

func (s *service) list(ctx context.Context, list ListFilters, filters types.OrderFilters) (*types.OrderList, error) {
	if list.Status != nil && !list.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
			WithDetails(map[string]any{"status": string(*list.Status)})
	}
	params := s.bounds.Normalize(pagination.Params{Limit: filters.Limit, Offset: filters.Offset})
	rows, total, err := s.repo.List(ctx, list, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toOrderList(rows, total, params.Limit, params.Offset), nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func conflict(current, expected enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order status changed").
		WithDetails(map[string]any{
			"current_status":  string(current),
			"expected_status": string(expected),
		})
}
