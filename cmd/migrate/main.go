package main

import (
	"context"
	"flag"
	"fmt"

	"cvdwbi/internal/platform/logx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	logx.Init(logx.Options{})
	cfg, err := loadSettings()
	if err != nil {
		logx.Fatal().Err(err).Msg("invalid configuration")
	}
	dir := cfg.Dir

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		logx.Fatal().Err(err).Msg("failed to set goose dialect")
	}

	switch *command {
	case "up":
		if err := goose.UpContext(ctx, db, dir); err != nil {
			logx.Fatal().Err(err).Msg("failed to run migrations")
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.DownContext(ctx, db, dir); err != nil {
			logx.Fatal().Err(err).Msg("failed to rollback migrations")
		}
		fmt.Println("Migrations rolled back successfully")
	case "status":
		if err := goose.StatusContext(ctx, db, dir); err != nil {
			logx.Fatal().Err(err).Msg("failed to check migration status")
		}
	case "version":
		if err := goose.VersionContext(ctx, db, dir); err != nil {
			logx.Fatal().Err(err).Msg("failed to read migration version")
		}
	case "create":
		if *name == "" {
			logx.Fatal().Msg("name is required for 'create' command")
		}
		if err := goose.Create(nil, dir, *name, "sql"); err != nil {
			logx.Fatal().Err(err).Msg("failed to create migration")
		}
		fmt.Printf("Migration created: %s\n", *name)
	default:
		logx.Fatal().Str("command", *command).Msg("unknown command, use: up, down, status, version, create")
	}
}
