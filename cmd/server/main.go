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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"studytime-backend/internal/config"
	"studytime-backend/internal/database"
	"studytime-backend/internal/handlers"
	"studytime-backend/internal/lock"
	"studytime-backend/internal/logging"
	"studytime-backend/internal/middleware"
	"studytime-backend/internal/router"
	"studytime-backend/internal/services"
	"studytime-backend/internal/websocket"
	"studytime-backend/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "studytime: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ──── Step 2: Build Logger ────
	logger, closeLogger, err := logging.New(logging.Options{
		Env:        cfg.Env,
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer closeLogger()
	logger.Info("starting studytime backend", zap.String("env", cfg.Env))

	// ──── Step 3: Open Storage ────
	stores, err := database.OpenStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()

	// ──── Step 4: Connect Redis (optional) ────
	var redisClient *redis.Client
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = lock.NewRedis(redisClient, cfg.LockTTL, cfg.LockWait)
		logger.Info("redis connected, using distributed session lock")
	}

	// ──── Step 5: Wire Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	wsHub := websocket.NewHub(redisClient, jwtAuth, cfg.FrontendURL, logger)
	defer wsHub.Close()

	sessionService := services.NewStudySessionService(
		stores.Sessions,
		stores.Breaks,
		stores.Subjects,
		stores.Tx,
		locker,
		wsHub,
		logger,
		services.WithClampedEffectiveTime(cfg.ClampEffectiveStudyTime),
		services.WithLockWait(cfg.LockWait),
	)
	subjectService := services.NewSubjectService(stores.Subjects, stores.Semesters, logger)
	semesterService := services.NewSemesterService(stores.Semesters, logger)

	// ──── Step 6: Start HTTP Server and Reaper ────
	r := router.New(
		jwtAuth,
		middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute),
		handlers.NewStudySessionHandler(sessionService, logger),
		handlers.NewSubjectHandler(subjectService, logger),
		handlers.NewSemesterHandler(semesterService, logger),
		handlers.NewHealthHandler(stores.Ping, logger),
		wsHub,
		cfg.FrontendURL,
		logger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	reaper := worker.NewReaper(sessionService, cfg.ReaperInterval, cfg.MaxSessionDuration, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("studytime backend ready",
			zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
			zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return reaper.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
