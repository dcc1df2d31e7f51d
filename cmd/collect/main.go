// Command collect runs today's crawl once and exits. It is meant for cron
// or for warming the cache by hand.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cvdwbi/internal/config"
	"cvdwbi/internal/dailycache"
	"cvdwbi/internal/platform/cvdw"
	"cvdwbi/internal/platform/logx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	var (
		cleanup = flag.Bool("cleanup", true, "Delete partitions of previous days after collecting")
		ping    = flag.Bool("ping", false, "Only check connectivity with CVDW and exit")
	)
	flag.Parse()

	logx.Init(logx.Options{})
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("invalid configuration")
	}
	logx.Init(logx.Options{Production: cfg.Environment().IsProduction(), Debug: cfg.Debug})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := cvdw.NewClient(cfg.ClientOptions())

	if *ping {
		page, err := client.Ping(ctx)
		if err != nil {
			logx.Fatal().Err(err).Msg("CVDW offline")
		}
		logx.Info().Int("total_leads", page.TotalRecords).Int("total_pages", page.TotalPages).Msg("CVDW online")
		return
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	manager := dailycache.NewManager(client, dailycache.NewPostgresRepo(pool), cfg.CacheManagerConfig())

	start := time.Now()
	res, err := manager.CollectAll(ctx)
	if res != nil {
		out, _ := json.MarshalIndent(res, "", "  ")
		os.Stdout.Write(append(out, '\n'))
	}
	switch {
	case errors.Is(err, cvdw.ErrRateLimited):
		logx.Fatal().Err(err).Msg("CVDW is rate limiting, try again later")
	case err != nil:
		logx.Fatal().Err(err).Dur("elapsed", time.Since(start)).Msg("collection failed")
	}

	if *cleanup {
		if _, err := manager.CleanupOldData(ctx); err != nil {
			logx.Error().Err(err).Msg("cleanup failed")
		}
	}
	logx.Info().Str("status", res.Status).Dur("elapsed", time.Since(start)).Msg("done")
}
