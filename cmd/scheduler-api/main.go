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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/aozorajuku/scheduler-api/api/swagger"
	"github.com/aozorajuku/scheduler-api/internal/handler"
	"github.com/aozorajuku/scheduler-api/internal/middleware"
	"github.com/aozorajuku/scheduler-api/internal/repository"
	"github.com/aozorajuku/scheduler-api/internal/service"
	"github.com/aozorajuku/scheduler-api/pkg/cache"
	"github.com/aozorajuku/scheduler-api/pkg/config"
	"github.com/aozorajuku/scheduler-api/pkg/database"
	"github.com/aozorajuku/scheduler-api/pkg/jobs"
	"github.com/aozorajuku/scheduler-api/pkg/logger"
	corsmiddleware "github.com/aozorajuku/scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/aozorajuku/scheduler-api/pkg/middleware/requestid"
)

// @title Scheduler API
// @version 1.0.0
// @description Availability resolution and scheduling-conflict engine for tutoring sessions
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, policy caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	availabilityRepo := repository.NewAvailabilityRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	configRepo := repository.NewSchedulingConfigRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	validate := validator.New()

	var worker *service.GenerationWorker
	var pendingJobs func() int
	if cfg.Generation.Enabled {
		worker = service.NewGenerationWorker(jobs.QueueConfig{
			Workers:    cfg.Generation.Workers,
			MaxRetries: cfg.Generation.MaxRetries,
			RetryDelay: cfg.Generation.RetryDelay,
			Logger:     logr,
		}, logr)
		pendingJobs = worker.Pending
	}

	metrics := service.NewMetricsService(pendingJobs)

	policySvc := service.NewSchedulingConfigService(configRepo, cacheRepo, directoryRepo, metrics, validate, logr, cfg.Scheduling.EffectiveConfigTTL, cfg.Scheduling.CacheEnabled)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, directoryRepo, db, metrics, validate, logr)
	conflictSvc := service.NewConflictService(availabilitySvc, sessionRepo, policySvc, metrics, validate, logr)

	var sessionSvc *service.SessionService
	if worker != nil {
		sessionSvc = service.NewSessionService(sessionRepo, conflictSvc, policySvc, directoryRepo, worker, db, validate, logr)
	} else {
		sessionSvc = service.NewSessionService(sessionRepo, conflictSvc, policySvc, directoryRepo, nil, db, validate, logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if worker != nil {
		worker.Bind(sessionSvc)
		worker.Start(ctx)
		defer worker.Stop()
	}

	audience := ""
	if len(cfg.JWT.Audience) > 0 {
		audience = cfg.JWT.Audience[0]
	}
	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer, audience)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	conflictHandler := handler.NewConflictHandler(conflictSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	policyHandler := handler.NewSchedulingConfigHandler(policySvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(verifier))
	{
		availability := api.Group("/availability")
		availability.POST("", availabilityHandler.Declare)
		availability.POST("/batch", availabilityHandler.Batch)
		availability.GET("/resolve", availabilityHandler.Resolve)
		availability.GET("", availabilityHandler.List)
		availability.DELETE("/:id", availabilityHandler.Delete)

		conflicts := api.Group("/conflicts")
		conflicts.POST("/shared-availability", conflictHandler.SharedAvailability)
		conflicts.POST("/check", conflictHandler.Check)

		sessions := api.Group("/sessions")
		sessions.POST("", sessionHandler.Create)
		sessions.GET("", sessionHandler.List)
		sessions.POST("/generate", sessionHandler.Generate)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.PUT("/:id/reschedule", sessionHandler.Reschedule)
		sessions.DELETE("/:id", sessionHandler.Cancel)

		policies := api.Group("/scheduling-config")
		policies.Use(middleware.RequireRoles("ADMIN", "STAFF"))
		policies.GET("/global", policyHandler.GetGlobal)
		policies.PUT("/global", policyHandler.UpdateGlobal)
		policies.GET("/branches/:branchId", policyHandler.GetBranch)
		policies.PATCH("/branches/:branchId", policyHandler.UpdateBranch)
		policies.DELETE("/branches/:branchId", policyHandler.ResetBranch)
		policies.GET("/effective", policyHandler.GetEffective)

		if cfg.Exports.Enabled {
			exportSvc := service.NewExportService(sessionRepo, directoryRepo, logr)
			exportHandler := handler.NewExportHandler(exportSvc)
			exports := api.Group("/exports")
			exports.GET("/branches/:branchId/timetable.csv", exportHandler.TimetableCSV)
			exports.GET("/branches/:branchId/timetable.pdf", exportHandler.TimetablePDF)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
