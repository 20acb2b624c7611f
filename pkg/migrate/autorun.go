package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

// MaybeRunDev prepares the schema in dev when AutoMigrate is on. Embedded
// sqlite databases get their schema from db.New, so only the menu is seeded.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if client.IsSQLite() {
		if err := db.SeedMenu(ctx, client.DB()); err != nil {
			return fmt.Errorf("seeding sqlite menu: %w", err)
		}
		logg.Info(ctx, "sqlite menu seeded")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running goose migrations (dev auto-run)")
	results, err := UpEmbedded(ctx, sqlDB)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "goose migrations completed")
	return nil
}
