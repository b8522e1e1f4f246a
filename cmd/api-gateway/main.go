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

	_ "github.com/noah-isme/referral-api/api/swagger"
	"github.com/noah-isme/referral-api/internal/handler"
	"github.com/noah-isme/referral-api/internal/middleware"
	"github.com/noah-isme/referral-api/internal/repository"
	"github.com/noah-isme/referral-api/internal/service"
	"github.com/noah-isme/referral-api/internal/transport"
	"github.com/noah-isme/referral-api/pkg/cache"
	"github.com/noah-isme/referral-api/pkg/config"
	"github.com/noah-isme/referral-api/pkg/database"
	"github.com/noah-isme/referral-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/referral-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/referral-api/pkg/middleware/requestid"
)

// @title Referral API
// @version 1.0.0
// @description User registration, dual-token authentication and referral codes
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

	if err := database.Migrate(context.Background(), db); err != nil {
		logr.Sugar().Fatalw("failed to run migrations", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient, cfg.Auth.RefreshKeyPrefix, cfg.Auth.RefreshTokenBytes)

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, referralRepo, tokenRepo, validate, logr, metricsSvc, service.AuthConfig{
		Secret:          cfg.Auth.Secret,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		RequireVerified: cfg.Auth.RequireVerified,
	})
	referralSvc := service.NewReferralService(referralRepo, userRepo, validate, logr, service.ReferralConfig{
		CodeLength: cfg.Referral.CodeLength,
		DefaultTTL: cfg.Referral.DefaultTTL,
	})

	tokenTransport := transport.New(cfg.Auth)

	authHandler := handler.NewAuthHandler(authSvc, tokenTransport)
	referralHandler := handler.NewReferralHandler(referralSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "postgres unavailable"})
			return
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.JWT(authSvc, tokenTransport)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/me", requireAuth, authHandler.Me)

	referral := api.Group("/referral_code")
	referral.POST("", requireAuth, referralHandler.Create)
	referral.GET("", referralHandler.GetByEmail)
	referral.DELETE("/:id", requireAuth, referralHandler.Delete)
	referral.GET("/referrals/:id", requireAuth, referralHandler.Referrals)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "transport", cfg.Auth.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
