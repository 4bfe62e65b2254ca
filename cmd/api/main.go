package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callsync-platform/internal/audit"
	"callsync-platform/internal/auth"
	"callsync-platform/internal/callevents"
	"callsync-platform/internal/config"
	"callsync-platform/internal/httpapi"
	"callsync-platform/internal/reconcile"
	"callsync-platform/internal/reporting"
	"callsync-platform/internal/syncwire"
	"callsync-platform/pkg/logger"
	"callsync-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	syncCfg := cfg.SyncDefaults()

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Storage and sync transports.
	store := reconcile.NewPostgresStore(db)
	resolver := reconcile.NewCachedResolver(store, rdb, 0)
	outbox := syncwire.NewRedisOutbox(rdb, syncCfg.OutboxKey).WithDedupeTTL(syncCfg.OutboxDedupeTTL)
	projection := syncwire.NewRedisProjection(rdb, syncCfg.ProjectionChannel)

	reconciler, err := reconcile.NewReconciler(store, store, resolver, outbox, projection, log)
	if err != nil {
		log.Error("reconciler init failed", "err", err)
		os.Exit(1)
	}

	handlers := httpapi.Handlers{
		Auth:       authManager,
		Normalizer: callevents.NewNormalizer(httpapi.ContextIdentity{}),
		Reconciler: reconciler,
		History:    store,
		Reports:    reporting.NewService(store),
		Audit:      audit.NewService(audit.NewPostgresRepo(db)),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, auth.RequireAccessToken(authManager), httpapi.IngestCap(rdb, syncCfg.IngestConcurrency))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
