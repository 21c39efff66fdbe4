package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/issue-tracker/internal/config"
	"github.com/iliyamo/issue-tracker/internal/database"
	"github.com/iliyamo/issue-tracker/internal/handler"
	"github.com/iliyamo/issue-tracker/internal/middleware"
	"github.com/iliyamo/issue-tracker/internal/queue"
	"github.com/iliyamo/issue-tracker/internal/repository"
	"github.com/iliyamo/issue-tracker/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // fatal on missing secrets
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	issues := repository.NewIssueRepo(db)
	comments := repository.NewCommentRepo(db)
	audit := repository.NewAuditRepo(db)
	stats := repository.NewStatsRepo(db)

	// Redis is optional: without it the rate limiter falls back to the
	// in-process store (per-process counting only) and caching is off.
	rdb := config.NewRedisClient()
	var store middleware.RateStore
	var memStore *middleware.MemoryRateStore
	if rdb != nil {
		store = middleware.NewRedisRateStore(rdb)
		log.Printf("rate limiter: redis store")
	} else {
		memStore = middleware.NewMemoryRateStore(rlCfg.SweepInterval)
		store = memStore
		log.Printf("rate limiter: in-memory store (single process only)")
	}

	// Background consumer mirrors audit activity into logs/activity.log.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, rlCfg, cacheCfg, store, rdb, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Issues:    handler.NewIssueHandler(issues, audit),
		Comments:  handler.NewCommentHandler(issues, comments, audit),
		Dashboard: handler.NewDashboardHandler(stats, audit),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	if memStore != nil {
		memStore.Stop()
	}
	if err := e.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
