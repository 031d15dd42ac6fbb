package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTP.Address != "0.0.0.0:8080" {
		t.Errorf("got address %q", cfg.Server.HTTP.Address)
	}
	if cfg.Cache.TTL.Duration() != time.Hour {
		t.Errorf("got cache TTL %v, want 1h", cfg.Cache.TTL.Duration())
	}
	if cfg.Providers.AWS.Region != "us-east-1" {
		t.Errorf("got AWS region %q", cfg.Providers.AWS.Region)
	}
	if !cfg.Metrics.Prometheus.Enabled || cfg.Metrics.Prometheus.Path != "/metrics" {
		t.Errorf("unexpected metrics defaults: %+v", cfg.Metrics)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  http:
    address: "127.0.0.1:9090"
cache:
  ttl: 30m
providers:
  aws:
    default_region: eu-west-1
  gcp:
    project: my-project
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.HTTP.Address != "127.0.0.1:9090" {
		t.Errorf("got address %q", cfg.Server.HTTP.Address)
	}
	if cfg.Cache.TTL.Duration() != 30*time.Minute {
		t.Errorf("got TTL %v, want 30m", cfg.Cache.TTL.Duration())
	}
	if cfg.Providers.AWS.DefaultRegion != "eu-west-1" {
		t.Errorf("got default AWS region %q", cfg.Providers.AWS.DefaultRegion)
	}
	if cfg.Providers.GCP.Project != "my-project" {
		t.Errorf("got GCP project %q", cfg.Providers.GCP.Project)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("got log level %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Providers.Azure.DefaultRegion != "eastus" {
		t.Errorf("got Azure default region %q", cfg.Providers.Azure.DefaultRegion)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.HTTP.Address != "0.0.0.0:8080" {
		t.Errorf("expected defaults, got address %q", cfg.Server.HTTP.Address)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3001")
	t.Setenv("CLOUDPRICE_CACHE_TTL", "15m")
	t.Setenv("AWS_REGION", "ap-southeast-2")
	t.Setenv("AZURE_SUBSCRIPTION_ID", "sub-123")
	t.Setenv("GCP_PROJECT_ID", "env-project")
	t.Setenv("DEFAULT_GCP_REGION", "europe-west1")
	t.Setenv("CLOUDPRICE_CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Server.HTTP.Address != "0.0.0.0:3001" {
		t.Errorf("got address %q", cfg.Server.HTTP.Address)
	}
	if cfg.Cache.TTL.Duration() != 15*time.Minute {
		t.Errorf("got TTL %v, want 15m", cfg.Cache.TTL.Duration())
	}
	if cfg.Providers.AWS.Region != "ap-southeast-2" {
		t.Errorf("got AWS region %q", cfg.Providers.AWS.Region)
	}
	if cfg.Providers.Azure.SubscriptionID != "sub-123" {
		t.Errorf("got subscription %q", cfg.Providers.Azure.SubscriptionID)
	}
	if cfg.Providers.GCP.Project != "env-project" {
		t.Errorf("got project %q", cfg.Providers.GCP.Project)
	}
	if cfg.Providers.GCP.DefaultRegion != "europe-west1" {
		t.Errorf("got default GCP region %q", cfg.Providers.GCP.DefaultRegion)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("got origins %v", cfg.CORS.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty address", func(c *Config) { c.Server.HTTP.Address = "" }, true},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }, true},
		{"negative cache ttl", func(c *Config) { c.Cache.TTL = Duration(-time.Minute) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
