package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/config"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/api/handler"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/api/router"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/service"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/database"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
	applogger "github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/logger"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/redis"
)

func main() {
	// 1. config
	cfg, err := config.Load(os.Getenv("PSD_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. database
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	logger.Info("database connected")

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// 4. redis, optional: without it logout is not enforced, auth routes are
	// not rate limited and dashboard stats are computed on every request
	var (
		deps  service.Deps
		infra router.Infra
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", zap.Error(err))
		rdb = nil
	} else {
		deps = service.Deps{Cache: rdb, Blacklist: rdb}
		infra = router.Infra{Blacklist: rdb, Limiter: rdb}
	}

	// 5. jwt
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, deps, logger)
	h := handler.NewHandler(svc)

	// 7. router
	engine, err := router.Setup(cfg, h, jwtMgr, infra, logger)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	// 8. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // workbook exports
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("server stopped")
}
