package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/store"
	"fintrack/internal/worker"
)

const (
	cacheSweepInterval   = time.Minute
	sessionPurgeInterval = time.Hour
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	if err := run(logger); err != nil {
		logger.Error("fintrack exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("fintrack stopped gracefully")
}

func run(logger *log.Logger) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	ordering, err := store.ParseOrdering(cfg.ListOrdering)
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(res.Backend, res.Backend, auth.Config{
		Secret:     cfg.AuthSecret,
		SessionTTL: cfg.SessionTTL,
	}, logger)
	if err != nil {
		return err
	}
	sessions := session.NewManager(authSvc, res.Backend, session.Config{
		Ordering:  ordering,
		CacheSize: cfg.SessionCacheSize,
		CacheTTL:  cfg.SessionCacheTTL,
	}, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		StatsWindowDays:    cfg.StatsWindowDays,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CookieSecure:       cfg.CookieSecure,
		Ready:              res.Ping,
	}, sessions, logger)

	tasks := []cli.Task{
		{Name: "http", Run: srv.Run},
		{Name: "cache-janitor", Run: cache.NewJanitor(cacheSweepInterval, logger, sessions.Cache()).Run},
	}
	if res.PurgeSessions != nil {
		purger := worker.NewSessionPurger(res.PurgeSessions, sessionPurgeInterval, logger)
		tasks = append(tasks, cli.Task{Name: "session-purge", Run: purger.Run})
	}

	logger.Info("Starting fintrack",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Events,
		"ordering", ordering.String())
	return cli.Run(ctx, logger, tasks...)
}
