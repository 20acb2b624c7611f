package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(opts options) (string, error){
	"create": func(opts options) (string, error) {
		if opts.name == "" {
			return "", errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return "", err
		}
		return "created migration: " + path, nil
	},
	"validate": func(opts options) (string, error) {
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return "", err
		}
		return "migration validation passed", nil
	},
}

var online = map[string]func(ctx context.Context, conn *sql.DB, opts options) error{
	"up": func(ctx context.Context, conn *sql.DB, opts options) error {
		return migrate.Run(ctx, conn, opts.dir, "up")
	},
	"down": func(ctx context.Context, conn *sql.DB, opts options) error {
		return migrate.Run(ctx, conn, opts.dir, "down")
	},
	"status": func(ctx context.Context, conn *sql.DB, opts options) error {
		return migrate.Run(ctx, conn, opts.dir, "status")
	},
	"embedded": func(ctx context.Context, conn *sql.DB, _ options) error {
		_, err := migrate.UpEmbedded(ctx, conn)
		return err
	},
	"version": func(ctx context.Context, conn *sql.DB, opts options) error {
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, conn, opts.dir, opts.version)
	},
}

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: "+commandList())
	var opts options
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS (for version)")
	flag.Parse()

	if run, ok := offline[*cmd]; ok {
		msg, err := run(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmd, err)
			os.Exit(1)
		}
		fmt.Println(msg)
		return
	}

	run, ok := online[*cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd %q, expected one of %s\n", *cmd, commandList())
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "canteen-migrate"})
	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "canteen-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": opts.dir,
	})

	if cfg.DB.Driver == config.DriverSQLite {
		// sqlite schemas come from db.New; goose only targets postgres.
		logg.Warn(ctx, "sqlite configured, nothing to migrate")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	conn, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	if err := run(ctx, conn, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}

func commandList() string {
	names := make([]string, 0, len(offline)+len(online))
	for name := range offline {
		names = append(names, name)
	}
	for name := range online {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
