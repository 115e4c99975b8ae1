package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/coopvalles/asamblea-api/internal/handler"
	"github.com/coopvalles/asamblea-api/internal/repository"
	"github.com/coopvalles/asamblea-api/internal/router"
	"github.com/coopvalles/asamblea-api/internal/service"
	"github.com/coopvalles/asamblea-api/pkg/cache"
	"github.com/coopvalles/asamblea-api/pkg/config"
	"github.com/coopvalles/asamblea-api/pkg/database"
	"github.com/coopvalles/asamblea-api/pkg/jobs"
	"github.com/coopvalles/asamblea-api/pkg/logger"
	corsmiddleware "github.com/coopvalles/asamblea-api/pkg/middleware/cors"
	reqidmiddleware "github.com/coopvalles/asamblea-api/pkg/middleware/requestid"
	"github.com/coopvalles/asamblea-api/pkg/storage"

	internalmw "github.com/coopvalles/asamblea-api/internal/middleware"

	"go.uber.org/zap"
)

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The engine degrades to uncached unread counts without Redis.
		logr.Warn("redis unavailable, unread-count cache disabled", zap.Error(err))
		redisClient = nil
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init attachment storage", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	invalidator := service.NewUnreadInvalidator(cacheRepo, jobs.Options{
		Workers: cfg.Avisos.InvalidationWorkers,
		Logger:  logr,
	})
	invalidator.Start(ctx)
	defer invalidator.Stop()

	metricsSvc := service.NewMetricsService()
	resolver := service.NewRecipientResolver(userRepo, logr)
	attachmentSvc := service.NewAttachmentService(store, cfg.Avisos.MaxUploadSizeBytes, cfg.Avisos.AllowedImageMIMEs, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, resolver, attachmentSvc, invalidator, metricsSvc, nil, logr)
	deliverySvc := service.NewDeliveryService(announcementRepo, deliveryRepo, invalidator, metricsSvc, logr)
	feedSvc := service.NewFeedService(deliveryRepo, cacheRepo, store, cfg.Avisos.UnreadCacheTTL, logr)
	verifier := service.NewTokenVerifier(cfg.JWT.Secret)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmw.Metrics(metricsSvc))

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

	mediaDir := ""
	if local, ok := store.(*storage.LocalStore); ok {
		mediaDir = local.Dir()
	}

	router.Register(r, router.Deps{
		Verifier:  verifier,
		Metrics:   metricsSvc,
		Avisos:    handler.NewAvisoHandler(announcementSvc, attachmentSvc, cfg.Avisos.MaxUploadSizeBytes),
		Feed:      handler.NewFeedHandler(feedSvc),
		Delivery:  handler.NewDeliveryHandler(deliverySvc),
		APIPrefix: cfg.APIPrefix,
		MediaDir:  mediaDir,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		logr.Info("shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("server failed", zap.Error(err))
	}
}
