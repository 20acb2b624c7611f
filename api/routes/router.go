package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/canteen-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/canteen-backend/api/controllers/orders"
	"github.com/angelmondragon/canteen-backend/api/middleware"
	"github.com/angelmondragon/canteen-backend/internal/auth"
	"github.com/angelmondragon/canteen-backend/internal/orders"
	product "github.com/angelmondragon/canteen-backend/internal/products"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/metrics"
	"github.com/angelmondragon/canteen-backend/pkg/redis"
)

// NewRouter wires the public API. redisClient may be nil, in which case
// idempotency replay and auth rate limiting are disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	authService auth.Service,
	productService product.Service,
	ordersSvc orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, metrics.NewHTTPMetrics(registry)),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["database"] = dbP
	}
	var (
		idempotencyStore redis.IdempotencyStore
		limiter          *redis.Client
	)
	if redisClient != nil {
		readiness["redis"] = redisClient
		idempotencyStore = redisClient
		limiter = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if registry != nil {
		r.Handle("/metrics", metrics.Handler(registry))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		if limiter != nil {
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), limiter, logg)).Post("/login", controllers.AuthLogin(authService, logg))
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), limiter, logg)).Post("/register", controllers.AuthRegister(authService, logg))
		} else {
			r.Post("/login", controllers.AuthLogin(authService, logg))
			r.Post("/register", controllers.AuthRegister(authService, logg))
		}
		r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.AuthMe(authService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(productService, logg))
		r.Get("/{productId}", controllers.ProductDetail(productService, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Idempotency.TTL, logg))

		r.Post("/", ordercontrollers.Create(ordersSvc, logg))
		r.Get("/mine", ordercontrollers.ListMine(ordersSvc, logg))
		r.With(middleware.RequireStaff(logg)).Get("/", ordercontrollers.ListAll(ordersSvc, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.OrderScope(logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Put("/{orderId}/status", ordercontrollers.UpdateStatus(ordersSvc, logg))
			r.Put("/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
		})
	})

	return r
}
