package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cvdwbi/internal/chat"
	"cvdwbi/internal/config"
	"cvdwbi/internal/dailycache"
	"cvdwbi/internal/httpx"
	"cvdwbi/internal/platform/cvdw"
	"cvdwbi/internal/platform/logx"
	"cvdwbi/internal/querycache"
	"cvdwbi/internal/report"

	"github.com/jackc/pgx/v5/pgxpool"
)

const maxRequestBytes = 1 << 20

func main() {
	logx.Init(logx.Options{})
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("invalid configuration")
	}
	logx.Init(logx.Options{Production: cfg.Environment().IsProduction(), Debug: cfg.Debug})
	logx.Info().Interface("config", cfg.Summary()).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool := mustOpenDB(ctx, cfg.DatabaseDSN)
	defer dbPool.Close()

	answers, closeCache := openQueryCache(ctx, cfg)
	defer closeCache()

	client := cvdw.NewClient(cfg.ClientOptions())

	loc := cfg.Location()
	manager := dailycache.NewManager(client, dailycache.NewPostgresRepo(dbPool), cfg.CacheManagerConfig())

	scheduler, err := dailycache.NewScheduler(manager, loc, cfg.Cache.ResetAt, cfg.Cache.SweepAt)
	if err != nil {
		logx.Fatal().Err(err).Msg("cannot schedule maintenance jobs")
	}
	go scheduler.Run(ctx)

	chatOpts := []chat.Option{}
	reportOpts := []report.Option{}
	if answers != nil {
		chatOpts = append(chatOpts, chat.WithCache(answers))
		reportOpts = append(reportOpts, report.WithCache(answers))
	}
	if cfg.LLMEnabled() {
		model, err := chat.NewGeminiModel(ctx, chat.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		if err != nil {
			logx.Warn().Err(err).Msg("answer enhancer disabled")
		} else {
			chatOpts = append(chatOpts, chat.WithEnhancer(chat.NewModelEnhancer(model, 30*time.Second)))
		}
	}

	if cfg.CVDW.Enabled {
		warmUp(ctx, client, manager)
	}

	router := newRouter(handlers{
		cache:          dailycache.NewHTTPHandler(manager),
		report:         report.NewHTTPHandler(manager, loc, reportOpts...),
		chat:           chat.NewHTTPHandler(chat.NewService(manager, chatOpts...)),
		ready:          dbPool.Ping,
		internalSecret: cfg.InternalSecret,
	})

	rateLimiter := httpx.NewRateLimiter(ctx, httpx.RateLimitOptions{
		RPS:    cfg.RateLimitRPS,
		Burst:  cfg.RateLimitBurst,
		Exempt: []string{"/healthz", "/readyz"},
	})
	handler := httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSOrigins),
		rateLimiter.Middleware,
		httpx.RequestSizeLimitMiddleware(maxRequestBytes),
	)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logx.Info().Str("addr", cfg.Addr).Str("env", cfg.Env).Msg("starting server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Fatal().Err(err).Msg("server error")
	}
	logx.Info().Msg("server stopped")
}

// warmUp checks the upstream and starts today's crawl if the cache is cold.
func warmUp(ctx context.Context, client *cvdw.Client, manager *dailycache.Manager) {
	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	page, err := client.Ping(pingCtx)
	switch {
	case errors.Is(err, cvdw.ErrRateLimited):
		logx.Warn().Err(err).Msg("CVDW temporarily unavailable")
		return
	case err != nil:
		logx.Warn().Err(err).Msg("CVDW offline")
		return
	}
	logx.Info().Int("total_leads", page.TotalRecords).Msg("CVDW online")

	complete, err := manager.HasCompleteDataToday(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("cannot check today's cache")
		return
	}
	if !complete && manager.CollectAsync(ctx) {
		logx.Info().Str("day", manager.Today()).Msg("started today's collection")
	}
}

func openQueryCache(ctx context.Context, cfg *config.Config) (*querycache.Cache, func()) {
	noop := func() {}
	if cfg.RedisURL == "" {
		logx.Info().Msg("query cache disabled")
		return nil, noop
	}
	rdb, err := querycache.Connect(ctx, querycache.Options{
		URL:          cfg.RedisURL,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		logx.Warn().Err(err).Msg("query cache disabled")
		return nil, noop
	}
	logx.Info().Dur("ttl", cfg.QueryCacheTTL).Msg("query cache connected")
	return querycache.New(rdb, cfg.QueryCacheTTL), func() { _ = rdb.Close() }
}

func mustOpenDB(ctx context.Context, dsn string) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logx.Fatal().Err(err).Msg("cannot create db pool")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		logx.Fatal().Err(err).Str("dsn", redactDSN(dsn)).Msg("cannot ping database")
	}
	logx.Info().Msg("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
