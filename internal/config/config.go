// Package config provides configuration management for the price service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cloudprice/cloudprice/pkg/duration"
)

// Duration is an alias for the shared duration.Duration type.
type Duration = duration.Duration

// Config represents the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	CORS      CORSConfig      `yaml:"cors"`
	Providers ProvidersConfig `yaml:"providers"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

// HTTPConfig contains HTTP listener settings.
type HTTPConfig struct {
	Address      string   `yaml:"address"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// CacheConfig contains price cache settings.
type CacheConfig struct {
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// CORSConfig contains cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ProvidersConfig groups per-provider credentials and defaults.
type ProvidersConfig struct {
	AWS   AWSConfig   `yaml:"aws"`
	Azure AzureConfig `yaml:"azure"`
	GCP   GCPConfig   `yaml:"gcp"`
}

// AWSConfig contains AWS credentials and region defaults.
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	DefaultRegion   string `yaml:"default_region"`
}

// AzureConfig contains Azure subscription and service principal settings.
type AzureConfig struct {
	SubscriptionID string `yaml:"subscription_id"`
	TenantID       string `yaml:"tenant_id"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	DefaultRegion  string `yaml:"default_region"`
}

// GCPConfig contains GCP project and credential settings.
type GCPConfig struct {
	Project         string `yaml:"project"`
	CredentialsFile string `yaml:"credentials_file"`
	DefaultRegion   string `yaml:"default_region"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics settings.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTP: HTTPConfig{
				Address:      "0.0.0.0:8080",
				ReadTimeout:  Duration(30 * time.Second),
				WriteTimeout: Duration(90 * time.Second),
			},
		},
		Cache: CacheConfig{
			TTL:           Duration(1 * time.Hour),
			SweepInterval: Duration(10 * time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Providers: ProvidersConfig{
			AWS: AWSConfig{
				Region:        "us-east-1",
				DefaultRegion: "us-east-1",
			},
			Azure: AzureConfig{
				DefaultRegion: "eastus",
			},
			GCP: GCPConfig{
				DefaultRegion: "us-central1",
			},
		},
		Metrics: MetricsConfig{
			Prometheus: PrometheusConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads configuration from path when it exists; an empty or
// missing path yields defaults plus environment overrides.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLOUDPRICE_HTTP_ADDRESS"); v != "" {
		c.Server.HTTP.Address = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.HTTP.Address = "0.0.0.0:" + v
	}
	if v := os.Getenv("CLOUDPRICE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = Duration(d)
		}
	}
	if v := os.Getenv("CLOUDPRICE_CORS_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("CLOUDPRICE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Providers.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Providers.AWS.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Providers.AWS.SecretAccessKey = v
	}
	if v := os.Getenv("DEFAULT_AWS_REGION"); v != "" {
		c.Providers.AWS.DefaultRegion = v
	}
	if v := os.Getenv("AZURE_SUBSCRIPTION_ID"); v != "" {
		c.Providers.Azure.SubscriptionID = v
	}
	if v := os.Getenv("AZURE_TENANT_ID"); v != "" {
		c.Providers.Azure.TenantID = v
	}
	if v := os.Getenv("AZURE_CLIENT_ID"); v != "" {
		c.Providers.Azure.ClientID = v
	}
	if v := os.Getenv("AZURE_CLIENT_SECRET"); v != "" {
		c.Providers.Azure.ClientSecret = v
	}
	if v := os.Getenv("DEFAULT_AZURE_REGION"); v != "" {
		c.Providers.Azure.DefaultRegion = v
	}
	if v := os.Getenv("GCP_PROJECT_ID"); v != "" {
		c.Providers.GCP.Project = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Providers.GCP.CredentialsFile = v
	}
	if v := os.Getenv("DEFAULT_GCP_REGION"); v != "" {
		c.Providers.GCP.DefaultRegion = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTP.Address == "" {
		return fmt.Errorf("server.http.address is required")
	}
	if time.Duration(c.Cache.TTL) <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}
