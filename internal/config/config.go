// Package config loads the gateway configuration from YAML plus environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full gateway configuration.
type Config struct {
	Server    ServerConfig               `yaml:"server"`
	Logging   LoggingConfig              `yaml:"logging"`
	CORS      CORSConfig                 `yaml:"cors"`
	RateLimit RateLimitConfig            `yaml:"rate_limit"`
	Auth      AuthConfig                 `yaml:"auth"`
	Upstreams map[string]*UpstreamConfig `yaml:"upstreams"`
	Audit     AuditConfig                `yaml:"audit"`
}

type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Duration parses YAML scalars like "15s" into a time.Duration.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

type AuthConfig struct {
	// Secret is read from the JWT_SECRET environment variable, never from
	// the config file.
	Secret    string   `yaml:"-"`
	SkipPaths []string `yaml:"skip_paths"`
}

// UpstreamConfig describes one backend service behind the gateway.
type UpstreamConfig struct {
	URL         string `yaml:"url"`
	Prefix      string `yaml:"prefix"`
	Description string `yaml:"description"`
}

type AuditConfig struct {
	File        string `yaml:"file"`
	PostgresDSN string `yaml:"postgres_dsn"`
	MaxEntries  int    `yaml:"max_entries"`
}

// Load reads the config file named by GATEWAY_CONFIG (default
// config/gateway.yaml), after loading a .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("GATEWAY_CONFIG")
	if path == "" {
		path = filepath.Join("config", "gateway.yaml")
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the configuration at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse gateway config: %w", err)
	}

	cfg.applyDefaults()
	cfg.Auth.Secret = os.Getenv("JWT_SECRET")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(15 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 50
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 100
	}
	if len(c.Auth.SkipPaths) == 0 {
		c.Auth.SkipPaths = []string{"/health", "/metrics"}
	}
	if c.Audit.MaxEntries == 0 {
		c.Audit.MaxEntries = 200
	}
}

func (c *Config) validate() error {
	if len(c.Upstreams) == 0 {
		return fmt.Errorf("at least one upstream is required")
	}
	for name, up := range c.Upstreams {
		if up == nil || up.URL == "" {
			return fmt.Errorf("upstream %s: url is required", name)
		}
		if up.Prefix == "" {
			return fmt.Errorf("upstream %s: prefix is required", name)
		}
		if !strings.HasPrefix(up.Prefix, "/api/") {
			return fmt.Errorf("upstream %s: prefix %q must start with /api/", name, up.Prefix)
		}
	}
	return nil
}

// DefaultUpstreams returns the route table the ERP ships with.
func DefaultUpstreams() map[string]*UpstreamConfig {
	return map[string]*UpstreamConfig{
		"crm": {
			URL:         "http://crm:8081",
			Prefix:      "/api/customers",
			Description: "Customer relationship management",
		},
		"scheduling": {
			URL:         "http://scheduling:8082",
			Prefix:      "/api/appointments",
			Description: "Appointment booking and calendars",
		},
		"catalog": {
			URL:         "http://catalog:8083",
			Prefix:      "/api/services",
			Description: "Services catalog and pricing",
		},
		"users": {
			URL:         "http://users:8084",
			Prefix:      "/api/users",
			Description: "User accounts and roles",
		},
	}
}
