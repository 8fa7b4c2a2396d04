package config

import "testing"

func TestLoad_RequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DB_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/consent")
	t.Setenv("APP_ENV", "")
	t.Setenv("SESSION_RATE_LIMIT", "")
	t.Setenv("IP_RATE_LIMIT", "")
	t.Setenv("BLOCK_ALERT_THRESHOLD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AllowedOrigin != "https://hakiu.es" {
		t.Fatalf("AllowedOrigin = %q", cfg.AllowedOrigin)
	}
	if cfg.SessionRateLimit != 10 || cfg.IPRateLimit != 100 || cfg.BlockAlertThreshold != 200 {
		t.Fatalf("limits = %d/%d/%d, want 10/100/200",
			cfg.SessionRateLimit, cfg.IPRateLimit, cfg.BlockAlertThreshold)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.Port != "8080" {
		t.Fatalf("RedisAddr = %q, Port = %q", cfg.RedisAddr, cfg.Port)
	}
}

func TestLoad_DevelopmentOriginToggle(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/consent")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AllowedOrigin != "http://localhost" {
		t.Fatalf("dev AllowedOrigin = %q", cfg.AllowedOrigin)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/consent")
	t.Setenv("APP_ENV", "")
	t.Setenv("SESSION_RATE_LIMIT", "3")
	t.Setenv("IP_RATE_LIMIT", "50")
	t.Setenv("BLOCK_ALERT_THRESHOLD", "20")
	t.Setenv("ALLOWED_ORIGIN", "https://staging.hakiu.es")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionRateLimit != 3 || cfg.IPRateLimit != 50 || cfg.BlockAlertThreshold != 20 {
		t.Fatalf("limits = %d/%d/%d, want 3/50/20",
			cfg.SessionRateLimit, cfg.IPRateLimit, cfg.BlockAlertThreshold)
	}
	if cfg.AllowedOrigin != "https://staging.hakiu.es" {
		t.Fatalf("AllowedOrigin = %q", cfg.AllowedOrigin)
	}
}
