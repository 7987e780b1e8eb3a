package config

import (
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	PolicyPayAtOrder   = "pay_at_order"
	PolicyPayAtService = "pay_at_service"
)

type Config struct {
	DatabaseURL            string        `envconfig:"DATABASE_URL" required:"true"`
	Port                   string        `envconfig:"PORT" default:":8080"`
	LogLevel               string        `envconfig:"LOG_LEVEL" default:"info"`
	StaffAPIToken          string        `envconfig:"STAFF_API_TOKEN" required:"true"`
	StripeSecretKey        string        `envconfig:"STRIPE_SECRET_KEY"`
	Currency               string        `envconfig:"CURRENCY" default:"usd"`
	PaymentPolicy          string        `envconfig:"PAYMENT_POLICY" default:"pay_at_service"`
	ProviderTimeout        time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	MetricsRefreshInterval time.Duration `envconfig:"METRICS_REFRESH_INTERVAL" default:"1h"`
}

var (
	config Config
	once   sync.Once
)

func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		err = envconfig.Process("", &config)
		if err != nil {
			logger.Fatalf("Failed to process configuration from environment variables: %v", err)
		}

		if config.PaymentPolicy != PolicyPayAtOrder && config.PaymentPolicy != PolicyPayAtService {
			logger.Fatalf("Invalid PAYMENT_POLICY '%s': must be '%s' or '%s'",
				config.PaymentPolicy, PolicyPayAtOrder, PolicyPayAtService)
		}
		if config.MetricsRefreshInterval < time.Second {
			logger.Fatalf("METRICS_REFRESH_INTERVAL must be at least 1s, got %s", config.MetricsRefreshInterval)
		}

		logger.Infof("Configuration loaded: Port=%s, LogLevel=%s, PaymentPolicy=%s, MetricsRefreshInterval=%s",
			config.Port, config.LogLevel, config.PaymentPolicy, config.MetricsRefreshInterval)
		if config.StripeSecretKey == "" {
			logger.Warn("Configuration: STRIPE_SECRET_KEY is not set, POS payment routes will be unavailable")
		}
	})
	return &config
}
