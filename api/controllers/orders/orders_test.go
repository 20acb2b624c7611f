package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/canteen-backend/api/middleware"
	internalorders "github.com/angelmondragon/canteen-backend/internal/orders"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type stubOrdersService struct {
	create       func(ctx context.Context, actor internalorders.Actor, req types.CreateOrderRequest) (*types.Order, error)
	updateStatus func(ctx context.Context, actor internalorders.Actor, id uuid.UUID, req types.UpdateStatusRequest) (*types.Order, error)
	cancel       func(ctx context.Context, actor internalorders.Actor, id uuid.UUID, req types.CancelOrderRequest) (*types.Order, error)
	get          func(ctx context.Context, actor internalorders.Actor, id uuid.UUID) (*types.Order, error)
	listMine     func(ctx context.Context, actor internalorders.Actor, filters types.OrderFilters) (*types.OrderList, error)
	listAll      func(ctx context.Context, actor internalorders.Actor, filters types.OrderFilters) (*types.OrderList, error)
}

func (s *stubOrdersService) Create(ctx context.Context, actor internalorders.Actor, req types.CreateOrderRequest) (*types.Order, error) {
	return s.create(ctx, actor, req)
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, actor internalorders.Actor, id uuid.UUID, req types.UpdateStatusRequest) (*types.Order, error) {
	return s.updateStatus(ctx, actor, id, req)
}

func (s *stubOrdersService) Cancel(ctx context.Context, actor internalorders.Actor, id uuid.UUID, req types.CancelOrderRequest) (*types.Order, error) {
	return s.cancel(ctx, actor, id, req)
}

func (s *stubOrdersService) Get(ctx context.Context, actor internalorders.Actor, id uuid.UUID) (*types.Order, error) {
	return s.get(ctx, actor, id)
}

func (s *stubOrdersService) ListMine(ctx context.Context, actor internalorders.Actor, filters types.OrderFilters) (*types.OrderList, error) {
	return s.listMine(ctx, actor, filters)
}

func (s *stubOrdersService) ListAll(ctx context.Context, actor internalorders.Actor, filters types.OrderFilters) (*types.OrderList, error) {
	return s.listAll(ctx, actor, filters)
}

func withActor(req *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role.String())
	return req.WithContext(ctx)
}

func withOrderParam(req *http.Request, orderID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return payload.Error.Code
}

func TestCreatePassesActorAndBody(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{
		create: func(ctx context.Context, actor internalorders.Actor, req types.CreateOrderRequest) (*types.Order, error) {
			if actor.UserID != userID || actor.Role != enums.RoleCustomer {
				t.Fatalf("unexpected actor %+v", actor)
			}
			if len(req.Items) != 1 || req.Items[0].ProductID != 7 || req.Items[0].Quantity != 2 {
				t.Fatalf("unexpected items %+v", req.Items)
			}
			if req.Notes == nil || *req.Notes != "sem gelo" {
				t.Fatalf("expected trimmed notes, got %v", req.Notes)
			}
			return &types.Order{ID: uuid.New(), UserID: userID, Status: enums.OrderStatusPlaced, Total: decimal.RequireFromString("20.00")}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[{"product_id":7,"quantity":2}],"notes":"  sem gelo "}`))
	req = withActor(req, userID, enums.RoleCustomer)
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Data types.Order `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.Status != enums.OrderStatusPlaced || !payload.Data.Total.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("unexpected order %+v", payload.Data)
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	svc := &stubOrdersService{
		create: func(context.Context, internalorders.Actor, types.CreateOrderRequest) (*types.Order, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[]}`)), uuid.New(), enums.RoleCustomer)
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.Bytes()); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCreateRequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[{"product_id":1,"quantity":1}]}`))
	rec := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListMineParsesFilters(t *testing.T) {
	svc := &stubOrdersService{
		listMine: func(ctx context.Context, actor internalorders.Actor, filters types.OrderFilters) (*types.OrderList, error) {
			if filters.Status == nil || *filters.Status != enums.OrderStatusReady {
				t.Fatalf("expected ready filter, got %v", filters.Status)
			}
			if filters.Limit != 10 || filters.Offset != 20 {
				t.Fatalf("unexpected page %d/%d", filters.Limit, filters.Offset)
			}
			return &types.OrderList{Orders: []types.Order{}, Limit: 10, Offset: 20}, nil
		},
	}
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders/mine?status=READY&limit=10&offset=20", nil), uuid.New(), enums.RoleCustomer)
	rec := httptest.NewRecorder()
	ListMine(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListAllRejectsBadQuery(t *testing.T) {
	cases := []string{"status=em_preparo", "limit=abc", "limit=1000", "offset=-1"}
	for _, query := range cases {
		req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders?"+query, nil), uuid.New(), enums.RoleManager)
		rec := httptest.NewRecorder()
		ListAll(&stubOrdersService{}, nil).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestListAllSurfacesForbidden(t *testing.T) {
	svc := &stubOrdersService{
		listAll: func(context.Context, internalorders.Actor, types.OrderFilters) (*types.OrderList, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff only")
		},
	}
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), uuid.New(), enums.RoleCustomer)
	rec := httptest.NewRecorder()
	ListAll(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestDetailRejectsBadID(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/orders/nope", nil), uuid.New(), enums.RoleCustomer)
	req = withOrderParam(req, "nope")
	rec := httptest.NewRecorder()
	Detail(&stubOrdersService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateStatusConflictCarriesDetails(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		updateStatus: func(ctx context.Context, actor internalorders.Actor, id uuid.UUID, req types.UpdateStatusRequest) (*types.Order, error) {
			if id != orderID {
				t.Fatalf("unexpected id %s", id)
			}
			if req.Status != enums.OrderStatusPreparing || req.ExpectedStatus == nil || *req.ExpectedStatus != enums.OrderStatusPlaced {
				t.Fatalf("unexpected request %+v", req)
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order status changed").WithDetails(map[string]any{
				"current_status":  "cancelled",
				"expected_status": "placed",
			})
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"preparing","expected_status":"placed"}`))
	req = withOrderParam(withActor(req, uuid.New(), enums.RoleAttendant), orderID.String())
	rec := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Details["current_status"] != "cancelled" {
		t.Fatalf("expected current status in details, got %+v", payload.Error)
	}
}

func TestCancelAcceptsEmptyBody(t *testing.T) {
	orderID := uuid.New()
	var called bool
	svc := &stubOrdersService{
		cancel: func(ctx context.Context, actor internalorders.Actor, id uuid.UUID, req types.CancelOrderRequest) (*types.Order, error) {
			called = true
			if req.ExpectedStatus != nil {
				t.Fatalf("expected no expected status")
			}
			return &types.Order{ID: id, Status: enums.OrderStatusCancelled}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = withOrderParam(withActor(req, uuid.New(), enums.RoleManager), orderID.String())
	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected 200 and a service call, got %d", rec.Code)
	}
}

func TestCancelForbiddenTransition(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		cancel: func(context.Context, internalorders.Actor, uuid.UUID, types.CancelOrderRequest) (*types.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbiddenTransition, "customers cannot change order status")
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID.String()+"/cancel", strings.NewReader(`{}`))
	req = withOrderParam(withActor(req, uuid.New(), enums.RoleCustomer), orderID.String())
	rec := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec.Body.Bytes()); code != string(pkgerrors.CodeForbiddenTransition) {
		t.Fatalf("unexpected code %s", code)
	}
}
