package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sose-portal-api/api/swagger"
	"github.com/noah-isme/sose-portal-api/internal/handler"
	"github.com/noah-isme/sose-portal-api/internal/middleware"
	"github.com/noah-isme/sose-portal-api/internal/models"
	"github.com/noah-isme/sose-portal-api/internal/repository"
	"github.com/noah-isme/sose-portal-api/internal/service"
	"github.com/noah-isme/sose-portal-api/pkg/cache"
	"github.com/noah-isme/sose-portal-api/pkg/config"
	"github.com/noah-isme/sose-portal-api/pkg/database"
	"github.com/noah-isme/sose-portal-api/pkg/jobs"
	"github.com/noah-isme/sose-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sose-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sose-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/sose-portal-api/pkg/storage"
)

// @title SOSE Portal API
// @version 1.0.0
// @description School feedback and complaint portal
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()

	cacheService := (*service.CacheService)(nil)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Cache.DefaultTTL, logr, true)
		}
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	submissionRepo := repository.NewSubmissionRepository(db, cfg.Tracking.MaxAttempts)
	userRepo := repository.NewUserRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)

	submissionService := service.NewSubmissionService(submissionRepo, cacheService, nil, logr)
	analyticsService := service.NewAnalyticsService(submissionRepo, cacheService, cfg.Analytics.CacheTTL, logr)
	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sose-portal-api",
	})
	exportService := service.NewExportService(submissionRepo, exportJobRepo, exportStore, exportSigner, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.ResultTTL,
	}, metricsService, logr)

	exportQueue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return exportService.ProcessJob(ctx, job.ID)
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	exportQueue.Start(queueCtx)
	defer exportQueue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-queueCtx.Done():
				return
			case <-ticker.C:
				exportService.Cleanup()
			}
		}
	}()

	authHandler := handler.NewAuthHandler(authService)
	submissionHandler := handler.NewSubmissionHandler(submissionService, uploadStore, cfg.Uploads, metricsService)
	adminHandler := handler.NewAdminSubmissionHandler(submissionService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	exportHandler := handler.NewExportHandler(exportService, exportQueue)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/submissions", submissionHandler.Create)
	api.GET("/submissions/track/:trackingId", submissionHandler.Track)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	authProtected := auth.Group("")
	authProtected.Use(middleware.JWT(authService))
	authProtected.POST("/logout", authHandler.Logout)
	authProtected.GET("/me", authHandler.Me)
	authProtected.PUT("/password", authHandler.ChangePassword)

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(authService))
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))

	admin.GET("/submissions", adminHandler.List)
	admin.GET("/submissions/stats", adminHandler.Stats)
	admin.GET("/submissions/:id", adminHandler.Get)
	admin.PATCH("/submissions/:id", adminHandler.Update)
	admin.POST("/submissions/:id/notes", adminHandler.AddNote)

	admin.GET("/analytics/summary", analyticsHandler.Summary)

	admin.GET("/exports", exportHandler.Download)
	admin.POST("/exports/jobs", exportHandler.CreateJob)
	admin.GET("/exports/jobs/:id", exportHandler.GetJob)
	admin.GET("/exports/download", exportHandler.DownloadSigned)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
