package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emerginginv/trace-aid-sub011/internal/config"
	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/handler"
	"github.com/emerginginv/trace-aid-sub011/internal/infrastructure/database"
	"github.com/emerginginv/trace-aid-sub011/internal/logger"
	"github.com/emerginginv/trace-aid-sub011/internal/metrics"
	"github.com/emerginginv/trace-aid-sub011/internal/middleware"
	"github.com/emerginginv/trace-aid-sub011/internal/repository"
	"github.com/emerginginv/trace-aid-sub011/internal/service"
	"github.com/emerginginv/trace-aid-sub011/internal/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration",
			slog.String("error", err.Error()))
	}
	logger.Configure(cfg.LogLevel)

	// Connect to database
	pool, err := database.NewPostgres(context.Background(), database.PoolConfig{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		Database:          cfg.DBName,
		SSLMode:           cfg.DBSSLMode,
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			slog.String("error", err.Error()))
	}
	defer pool.Close()

	// Start database pool metrics collector
	poolStatsCollector := metrics.NewPoolStatsCollector(pool)
	poolStatsCollector.Start(15 * time.Second)
	defer poolStatsCollector.Stop()

	// The catalog is the closed set of importable entity types and
	// their destination tables.
	catalog := domain.DefaultCatalog()

	// Initialize repositories
	entityStore := repository.NewPostgresEntityStore(pool, catalog)
	batchStore := repository.NewPostgresBatchStore(pool)
	userDirectory := repository.NewPostgresUserDirectory(pool)
	mappingStore := repository.NewPostgresMappingStore(pool)

	// Initialize validator
	v := validator.NewValidator()

	// Initialize services
	importService := service.NewImportService(
		entityStore,
		batchStore,
		userDirectory,
		mappingStore,
		v,
		catalog,
	)
	mappingConfigService := service.NewMappingConfigService(mappingStore)

	// Initialize handlers
	importHandler := handler.NewImportHandler(importService, cfg.MaxRecordsPerBatch)
	mappingHandler := handler.NewMappingConfigHandler(mappingConfigService)
	healthHandler := handler.NewHealthHandler(pool)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(gin.Logger())

	// Health and metrics endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/live", healthHandler.Live)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Import routes
		imports := v1.Group("/imports")
		{
			imports.POST("/execute", importHandler.Execute)
			imports.POST("/dry-run", importHandler.DryRun)
			imports.GET("/batches/:id", importHandler.GetBatch)
			imports.GET("/batches/:id/logs", importHandler.ListLogs)
		}

		// Mapping config routes
		mappings := v1.Group("/imports/mapping-configs")
		{
			mappings.GET("/:source", mappingHandler.GetConfig)
			mappings.PUT("/:source", mappingHandler.SaveConfig)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting server",
			slog.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server",
				slog.String("error", err.Error()))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	// Shutdown HTTP server; in-flight imports run synchronously inside
	// their request, so draining the server drains the engine.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error",
			slog.String("error", err.Error()))
	}

	logger.Info("Server exited")
}
