package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "PG_DSN", "HTTP_ADDR", "COOPERATIVE_ID", "EDI_SENDER_ID",
		"APERAK_MAX_ERRORS", "GRAMMAR_PATH", "ANOMALY_THRESHOLD", "ALERT_WEBHOOK_URL",
		"DEFAULT_PRICE_CT_PER_KWH", "COOPMARKET_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/coop")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.AperakMaxErrors != 10 {
		t.Errorf("aperak max errors = %d", cfg.AperakMaxErrors)
	}
	if cfg.DefaultPriceCtPerKWh.String() != "10" {
		t.Errorf("default price = %s", cfg.DefaultPriceCtPerKWh)
	}
	if cfg.AnomalyThreshold != 3 {
		t.Errorf("anomaly threshold = %v", cfg.AnomalyThreshold)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Error("expected error without database url")
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/coop")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "http_addr: \":9090\"\ndefault_price_ct_per_kwh: \"12.5\"\nalert_webhook_url: \"https://hooks.example/coop\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("COOPMARKET_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.DefaultPriceCtPerKWh.String() != "12.5" {
		t.Errorf("default price = %s", cfg.DefaultPriceCtPerKWh)
	}
	if cfg.AlertWebhookURL != "https://hooks.example/coop" {
		t.Errorf("webhook url = %q", cfg.AlertWebhookURL)
	}
}

func TestLoadRejectsBadPrice(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/coop")
	t.Setenv("DEFAULT_PRICE_CT_PER_KWH", "free")

	if _, err := Load(); err == nil {
		t.Error("expected error on bad price")
	}
}
