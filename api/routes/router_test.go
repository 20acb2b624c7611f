package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/auth"
	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/internal/checkout"
	"github.com/angelmondragon/canteen-backend/internal/lifecycle"
	"github.com/angelmondragon/canteen-backend/internal/orders"
	product "github.com/angelmondragon/canteen-backend/internal/products"
	"github.com/angelmondragon/canteen-backend/internal/users"
	"github.com/angelmondragon/canteen-backend/pkg/canteenapi"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/metrics"
	"github.com/angelmondragon/canteen-backend/pkg/redis"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type testServer struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: "*"},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "canteen-test", ExpirationMinutes: 60},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		AuthRateLimit: config.AuthRateLimitConfig{},
		FeatureFlags:  config.FeatureFlagsConfig{AllowStaffSignup: true},
		Orders:        config.OrdersConfig{DefaultPageSize: 50, MaxPageSize: 100, MaxLineQuantity: 99},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplySQLiteSchema(ctx, conn))
	require.NoError(t, db.SeedMenu(ctx, conn))
	dbClient := db.Wrap(conn, config.DriverSQLite)

	mr := miniredis.RunT(t)
	redisClient, err := redis.NewFromURL(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)

	cfg := testConfig()
	registry := prometheus.NewRegistry()

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:         users.NewRepository(conn),
		JWTConfig:        cfg.JWT,
		PasswordConfig:   cfg.Password,
		AllowStaffSignup: cfg.FeatureFlags.AllowStaffSignup,
	})
	require.NoError(t, err)

	productRepo := product.NewRepository(conn)
	productSvc, err := product.NewService(productRepo)
	require.NoError(t, err)

	ordersSvc, err := orders.NewService(orders.NewRepository(conn), productRepo, dbClient, nil, metrics.NewOrderMetrics(registry), cfg.Orders)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(cfg, nil, dbClient, redisClient, registry, authSvc, productSvc, ordersSvc))
	t.Cleanup(srv.Close)
	return &testServer{server: srv, redis: mr}
}

func (s *testServer) register(t *testing.T, email string, role enums.Role) *canteenapi.Client {
	t.Helper()
	client, err := canteenapi.NewClient(s.server.URL)
	require.NoError(t, err)
	_, err = client.Register(context.Background(), types.RegisterRequest{
		Name:     "Pessoa",
		Email:    email,
		Password: "segredo123",
		Role:     &role,
	})
	require.NoError(t, err)
	return client
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(ts.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_request_duration_seconds")
}

func TestReadinessFailsWhenRedisIsDown(t *testing.T) {
	ts := newTestServer(t)
	ts.redis.Close()

	resp, err := http.Get(ts.server.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOrdersRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.server.URL+"/api/v1/orders", "application/json", strings.NewReader(`{"items":[{"product_id":7,"quantity":1}]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCatalogIsPublic(t *testing.T) {
	ts := newTestServer(t)
	client, err := canteenapi.NewClient(ts.server.URL)
	require.NoError(t, err)

	drinks, err := client.ListProducts(context.Background(), types.ProductFilters{Category: "bebidas", AvailableOnly: true})
	require.NoError(t, err)
	require.Len(t, drinks, 3)

	juice, err := client.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Suco Natural", juice.Name)
	assert.True(t, juice.Price.Equal(decimal.RequireFromString("10.00")))

	_, err = client.GetProduct(context.Background(), 999)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateOrderRequiresIdempotencyKey(t *testing.T) {
	ts := newTestServer(t)
	customer := ts.register(t, "sem-chave@uni.br", enums.RoleCustomer)

	_, err := customer.CreateOrder(context.Background(), types.CreateOrderRequest{
		Items: []types.OrderItemInput{{ProductID: 7, Quantity: 1}},
	}, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateOrderReplaysSameKey(t *testing.T) {
	ts := newTestServer(t)
	customer := ts.register(t, "replay@uni.br", enums.RoleCustomer)
	req := types.CreateOrderRequest{Items: []types.OrderItemInput{{ProductID: 1, Quantity: 1}}}

	first, err := customer.CreateOrder(context.Background(), req, "same-key")
	require.NoError(t, err)
	second, err := customer.CreateOrder(context.Background(), req, "same-key")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	mine, err := customer.ListMyOrders(context.Background(), types.OrderFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.Total)
}

// Cart to pickup: a customer checks out two juices and the counter walks
// the order through the lifecycle.
func TestCheckoutToPickup(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	customer := ts.register(t, "aluno@uni.br", enums.RoleCustomer)
	attendant := ts.register(t, "balcao@uni.br", enums.RoleAttendant)

	store, err := cart.NewStore(cart.NewMemoryCache(), redis.CartKey("app.cart", "aluno"), nil)
	require.NoError(t, err)
	juice, err := customer.GetProduct(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, store.AddItem(ctx, *juice, 2, nil))

	submitter, err := checkout.NewService(customer, nil)
	require.NoError(t, err)
	placed, err := submitter.Submit(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, placed.Status)
	assert.True(t, placed.Total.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, store.IsEmpty())

	customerCtl, err := lifecycle.NewController(customer, nil)
	require.NoError(t, err)
	_, err = customerCtl.RequestTransition(ctx, *placed, enums.OrderStatusPreparing, enums.RoleCustomer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbiddenTransition))

	// The server enforces the same rule when the local check is bypassed.
	_, err = customer.UpdateOrderStatus(ctx, placed.ID, types.UpdateStatusRequest{Status: enums.OrderStatusPreparing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbiddenTransition))

	_, err = customer.ListOrders(ctx, types.OrderFilters{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	counter, err := lifecycle.NewController(attendant, nil)
	require.NoError(t, err)
	current := *placed
	for _, next := range []enums.OrderStatus{enums.OrderStatusPreparing, enums.OrderStatusReady, enums.OrderStatusCompleted} {
		updated, err := counter.RequestTransition(ctx, current, next, enums.RoleAttendant)
		require.NoError(t, err)
		require.Equal(t, next, updated.Status)
		current = *updated
	}

	// A stale view of the order is a conflict, not a silent overwrite.
	_, err = counter.RequestTransition(ctx, *placed, enums.OrderStatusPreparing, enums.RoleAttendant)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	mine, err := customer.ListMyOrders(ctx, types.OrderFilters{})
	require.NoError(t, err)
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, enums.OrderStatusCompleted, mine.Orders[0].Status)
	require.Len(t, mine.Orders[0].Items, 1)
	assert.Equal(t, 2, mine.Orders[0].Items[0].Quantity)
}

func TestStaffCancelAndCustomerVisibility(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	owner := ts.register(t, "dono@uni.br", enums.RoleCustomer)
	other := ts.register(t, "outro@uni.br", enums.RoleCustomer)
	manager := ts.register(t, "gerente@uni.br", enums.RoleManager)

	order, err := owner.CreateOrder(ctx, types.CreateOrderRequest{Items: []types.OrderItemInput{{ProductID: 4, Quantity: 3}}}, "k1")
	require.NoError(t, err)

	_, err = other.GetOrder(ctx, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	all, err := manager.ListOrders(ctx, types.OrderFilters{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, all.Total)

	cancelled, err := manager.CancelOrder(ctx, order.ID, types.CancelOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	_, err = manager.CancelOrder(ctx, order.ID, types.CancelOrderRequest{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbiddenTransition))
}
