package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config defines the service configuration. Environment variables set the
// base values; a YAML file named by COOPMARKET_CONFIG overrides them.
type Config struct {
	DatabaseURL   string `yaml:"database_url"`
	HTTPAddr      string `yaml:"http_addr"`
	CooperativeID string `yaml:"cooperative_id"`
	SenderID      string `yaml:"sender_id"`

	DefaultPriceCtPerKWh decimal.Decimal `yaml:"-"`
	AperakMaxErrors      int             `yaml:"aperak_max_errors"`
	GrammarPath          string          `yaml:"grammar_path"`
	AnomalyThreshold     float64         `yaml:"anomaly_threshold"`
	AlertWebhookURL      string          `yaml:"alert_webhook_url"`

	// DefaultPriceCt is the textual YAML form of the default price.
	DefaultPriceCt string `yaml:"default_price_ct_per_kwh"`
}

// Load reads configuration from env and the optional YAML override file.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		CooperativeID:    getenvDefault("COOPERATIVE_ID", "coop-demo"),
		SenderID:         getenvDefault("EDI_SENDER_ID", "9900000000001"),
		AperakMaxErrors:  getenvIntDefault("APERAK_MAX_ERRORS", 10),
		GrammarPath:      os.Getenv("GRAMMAR_PATH"),
		AnomalyThreshold: getenvFloatDefault("ANOMALY_THRESHOLD", 3),
		AlertWebhookURL:  os.Getenv("ALERT_WEBHOOK_URL"),
	}

	price, err := decimal.NewFromString(getenvDefault("DEFAULT_PRICE_CT_PER_KWH", "10"))
	if err != nil {
		return cfg, errors.New("config: DEFAULT_PRICE_CT_PER_KWH must be a decimal")
	}
	cfg.DefaultPriceCtPerKWh = price

	if path := os.Getenv("COOPMARKET_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
		if cfg.DefaultPriceCt != "" {
			price, err := decimal.NewFromString(cfg.DefaultPriceCt)
			if err != nil {
				return cfg, errors.New("config: default_price_ct_per_kwh must be a decimal")
			}
			cfg.DefaultPriceCtPerKWh = price
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.DefaultPriceCtPerKWh.IsNegative() {
		return cfg, errors.New("config: default price must not be negative")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
