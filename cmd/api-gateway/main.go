package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-admin-api/api/swagger"
	"github.com/noah-isme/tutor-admin-api/internal/bootstrap"
	"github.com/noah-isme/tutor-admin-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutor-admin-api/internal/middleware"
	"github.com/noah-isme/tutor-admin-api/pkg/config"
	"github.com/noah-isme/tutor-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-admin-api/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title Tutor Admin Data API
// @version 1.0.0
// @description Uniform list, detail, versioned update, delete and bulk update over tutoring marketplace records.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	services, err := bootstrap.New(cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise services", zap.Error(err))
	}
	defer services.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(services.Metrics))

	router := handler.Router{
		Records:  handler.NewRecordHandler(services.Records, services.Validator),
		Bulk:     handler.NewBulkHandler(services.Bulk),
		Entities: handler.NewEntityHandler(services.Records),
		Metrics:  handler.NewMetricsHandler(services.Metrics, services.Records),
		Auth:     services.Auth,
	}
	if services.RateLimit != nil {
		router.Limiter = services.RateLimit
	}
	router.Register(r, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
