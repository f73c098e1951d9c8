package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/college-enroll-api/api/swagger"
	"github.com/noah-isme/college-enroll-api/internal/handler"
	"github.com/noah-isme/college-enroll-api/internal/middleware"
	"github.com/noah-isme/college-enroll-api/internal/models"
	"github.com/noah-isme/college-enroll-api/internal/repository"
	"github.com/noah-isme/college-enroll-api/internal/service"
	"github.com/noah-isme/college-enroll-api/pkg/cache"
	"github.com/noah-isme/college-enroll-api/pkg/config"
	"github.com/noah-isme/college-enroll-api/pkg/database"
	"github.com/noah-isme/college-enroll-api/pkg/jobs"
	"github.com/noah-isme/college-enroll-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/college-enroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/college-enroll-api/pkg/middleware/requestid"
	"github.com/noah-isme/college-enroll-api/pkg/notify"
)

// @title College Enrollment API
// @version 1.0.0
// @description Section enrollment and capacity management service
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Enrollment.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, section cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Enrollment.SectionsCacheTTL, logr, cfg.Enrollment.CacheEnabled)

	sectionRepo := repository.NewSectionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)

	validate := validator.New()

	capacitySvc := service.NewCapacityService(sectionRepo, enrollmentRepo)
	sectionSvc := service.NewSectionService(sectionRepo, capacitySvc, cacheSvc, cfg.Enrollment.ActiveTerm, logr)

	sender := notify.NewWebhookSender(cfg.Notifications.WebhookURL, cfg.Notifications.RequestTimeout)
	notifierSvc := service.NewNotifierService(sender, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, cfg.Notifications.Enabled, logr)
	notifierSvc.Start(context.Background())
	defer notifierSvc.Stop()

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sectionRepo, sectionSvc, capacitySvc, assignmentRepo, notifierSvc, metricsSvc, validate, logr, cfg.Enrollment.BulkMaxBatch)

	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	sectionHandler := handler.NewSectionHandler(sectionSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	sections := api.Group("/sections")
	{
		sections.GET("", sectionHandler.ListAvailable)
		sections.GET("/:id", sectionHandler.Get)
		sections.GET("/:id/capacity", sectionHandler.Capacity)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.POST("", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin, models.RoleSuperAdmin), enrollmentHandler.Submit)
		enrollments.GET("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), enrollmentHandler.List)
		enrollments.GET("/pending", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), enrollmentHandler.ListPending)
		enrollments.POST("/:id/approve", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), enrollmentHandler.Approve)
		enrollments.POST("/:id/reject", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), enrollmentHandler.Reject)
		enrollments.POST("/bulk-approve", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), enrollmentHandler.BulkApprove)
		enrollments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), enrollmentHandler.Drop)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
