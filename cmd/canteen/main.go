package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/internal/checkout"
	"github.com/angelmondragon/canteen-backend/internal/lifecycle"
	"github.com/angelmondragon/canteen-backend/internal/listing"
	"github.com/angelmondragon/canteen-backend/internal/terminal"
	"github.com/angelmondragon/canteen-backend/pkg/canteenapi"
	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
	"github.com/angelmondragon/canteen-backend/pkg/redis"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	session := flag.String("session", cfg.SessionID, "cart session id")
	apiURL := flag.String("api", cfg.APIBaseURL, "canteen api base url")
	flag.Parse()

	// Logs go to stderr so they never interleave with command output.
	logg := logger.New(logger.Options{
		ServiceName: "canteen",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := canteenapi.NewClient(*apiURL, canteenapi.WithTimeout(cfg.RequestTimeout))
	requireResource(ctx, logg, "api client", err)

	cache, closeCache := cartCache(ctx, cfg, logg)
	defer closeCache()

	store, err := cart.NewStore(cache, redis.CartKey(cfg.CartNamespace, *session), logg)
	requireResource(ctx, logg, "cart store", err)

	submitter, err := checkout.NewService(client, logg)
	requireResource(ctx, logg, "checkout", err)

	controller, err := lifecycle.NewController(client, logg)
	requireResource(ctx, logg, "lifecycle controller", err)

	lister, err := listing.NewService(client, pagination.DefaultBounds())
	requireResource(ctx, logg, "listing", err)

	shell, err := terminal.NewShell(terminal.Params{
		API:       client,
		Cart:      store,
		Checkout:  submitter,
		Lifecycle: controller,
		Listing:   lister,
		Out:       os.Stdout,
		Logger:    logg,
	})
	requireResource(ctx, logg, "shell", err)

	fmt.Fprintln(os.Stdout, "canteen terminal, type help for commands")
	if err := shell.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		logg.Error(ctx, "terminal stopped", err)
		os.Exit(1)
	}
}

// cartCache prefers Redis so the cart survives restarts, and falls back to
// process memory when no Redis is configured or reachable.
func cartCache(ctx context.Context, cfg *config.ClientConfig, logg *logger.Logger) (cart.Cache, func()) {
	if cfg.RedisURL == "" {
		logg.Warn(ctx, "no redis configured, cart lives in memory only")
		return cart.NewMemoryCache(), func() {}
	}
	client, err := redis.NewFromURL(ctx, cfg.RedisURL)
	if err != nil {
		logg.Error(ctx, "redis unavailable, cart lives in memory only", err)
		return cart.NewMemoryCache(), func() {}
	}
	return cart.NewRedisCache(client, cfg.CartTTL), func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
