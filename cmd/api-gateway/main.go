package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/duetable-api/api/swagger"
	"github.com/noah-isme/duetable-api/internal/handler"
	"github.com/noah-isme/duetable-api/internal/repository"
	"github.com/noah-isme/duetable-api/internal/service"
	"github.com/noah-isme/duetable-api/pkg/cache"
	"github.com/noah-isme/duetable-api/pkg/config"
	"github.com/noah-isme/duetable-api/pkg/database"
	"github.com/noah-isme/duetable-api/pkg/jobs"
	"github.com/noah-isme/duetable-api/pkg/lmsproxy"
	"github.com/noah-isme/duetable-api/pkg/logger"
)

// @title Duetable API
// @version 0.1.0
// @description Assignment tracking backend for a single signed-in student
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	metrics := service.NewMetricsService()
	validate := validator.New()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close() //nolint:errcheck

	sessionRepo := repository.NewSessionRepository(redisClient, cfg.Session.KeyPrefix)
	checks := []handler.ReadinessCheck{{Name: "redis", Check: sessionRepo.Ping}}

	var overrideRepo *repository.OverrideRepository
	if cfg.Overrides.PersistEnabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck
		overrideRepo = repository.NewOverrideRepository(db)
		if err := overrideRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		checks = append(checks, handler.ReadinessCheck{Name: "postgres", Check: overrideRepo.Ping})
	}

	upstream := lmsproxy.New(lmsproxy.Config{
		BaseURL:      cfg.Upstream.BaseURL,
		Timeout:      cfg.Upstream.Timeout,
		FinishedPath: cfg.Upstream.FinishedPath,
		Logger:       logr.Named("lmsproxy"),
		Observer:     metrics,
	})

	sessions := service.NewSessionService(sessionRepo, upstream, validate, logr.Named("session"), service.SessionConfig{
		Secret:        cfg.Session.Secret,
		TokenSecret:   cfg.JWT.Secret,
		TokenIssuer:   cfg.JWT.Issuer,
		TokenLifetime: cfg.JWT.Expiration,
	})
	restored, err := sessions.Restore(ctx)
	if err != nil {
		logr.Warn("session restore failed, starting signed out", zap.Error(err))
	}

	courseCache := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Courses.CacheTTL, logr.Named("cache"), cfg.Courses.CacheEnabled)
	store := service.NewAssignmentStore()
	fetcher := service.NewAssignmentFetcher(upstream, logr.Named("fetcher"), service.AssignmentFetcherConfig{
		BatchSize:  cfg.Fetch.BatchSize,
		BatchDelay: cfg.Fetch.BatchDelay,
	})

	// A nil *OverrideRepository must not reach the services as a non-nil interface.
	var (
		loader    service.OverrideLoader
		persister service.OverridePersister
	)
	if overrideRepo != nil {
		loader, persister = overrideRepo, overrideRepo
	}

	assignments := service.NewAssignmentService(store, sessions, upstream, fetcher, courseCache, loader, metrics, logr.Named("assignments"), service.AssignmentServiceConfig{
		PageSize:       cfg.View.PageSize,
		CourseCacheTTL: cfg.Courses.CacheTTL,
	})
	defer assignments.Close()
	sessions.OnClear(assignments.Reset)
	sessions.OnTermChange(assignments.TermChanged)

	reconciler := service.NewFinishedReconciler(store, sessions, upstream, persister, metrics, logr.Named("reconciler"))
	queue := reconciler.NewQueue(jobs.QueueConfig{
		Workers:    cfg.Overrides.QueueWorkers,
		BufferSize: cfg.Overrides.QueueBuffer,
		Logger:     logr.Named("queue"),
	})
	// Writes keep flowing while the server drains; Stop rolls back the rest.
	queue.Start(context.Background())
	defer queue.Stop()

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Observer:       metrics,
		Tokens:         sessions,
		Session:        handler.NewSessionHandler(sessions, validate),
		Courses:        handler.NewCourseHandler(assignments),
		Assignments:    handler.NewAssignmentHandler(assignments, reconciler, service.NewExportService(logr.Named("export"), nil, nil), sessions, validate),
		Metrics:        handler.NewMetricsHandler(metrics, checks...),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.Bool("signed_in", restored.Authenticated))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
