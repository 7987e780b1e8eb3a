package main

import (
	"net/http"
	"os"

	"restaurant_service/config"
	"restaurant_service/internal/clients"
	"restaurant_service/internal/delivery"
	"restaurant_service/internal/middleware"
	"restaurant_service/internal/repository"
	"restaurant_service/internal/usecase"
	"restaurant_service/pkg/db"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Invalid LOG_LEVEL '%s', using default: %s", cfg.LogLevel, logLevel.String())
	}
	logger.SetLevel(logLevel)
	logger.Info("Starting Restaurant Service...")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("FATAL: Database connection failed: %v", err)
	}
	defer database.Close()
	logger.Info("Database connection established.")

	// --- Dependency Injection ---
	orderRepo := repository.NewPostgresOrderRepository(database, logger)
	menuRepo := repository.NewPostgresMenuRepository(database, logger)
	statsRepo := repository.NewPostgresStatsRepository(database, logger)
	logger.Info("Repositories initialized.")

	orderUseCase := usecase.NewOrderUseCase(orderRepo, menuRepo, cfg.PaymentPolicy, nil, logger)

	metricsCache := usecase.NewMetricsCache(statsRepo, menuRepo, logger)
	metricsCache.Start(cfg.MetricsRefreshInterval)
	defer metricsCache.Stop()

	staffAuth := middleware.StaffAuth(cfg.StaffAPIToken, logger)

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	orderHandler := delivery.NewOrderHandler(orderUseCase, logger)
	orderHandler.RegisterRoutes(router, staffAuth)

	metricsHandler := delivery.NewMetricsHandler(metricsCache, logger)
	metricsHandler.RegisterRoutes(router, staffAuth)

	if cfg.StripeSecretKey != "" {
		provider, err := clients.NewStripeProvider(cfg.StripeSecretKey, cfg.ProviderTimeout, logger)
		if err != nil {
			logger.Fatalf("FATAL: Payment provider initialization failed: %v", err)
		}
		paymentUseCase := usecase.NewPaymentUseCase(orderRepo, provider, cfg.Currency, cfg.ProviderTimeout, logger)
		posHandler := delivery.NewPOSHandler(paymentUseCase, logger)
		posHandler.RegisterRoutes(router, staffAuth)
		logger.Info("POS payment routes registered.")
	} else {
		logger.Warn("POS payment routes disabled: no provider credentials configured.")
	}

	router.GET("/health", func(c *gin.Context) {
		if err := database.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	logger.Info("Routes registered.")

	// --- Start Server ---
	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		logger.Errorf("Failed to start server on port %s: %v", cfg.Port, err)
		os.Exit(1)
	}
}
