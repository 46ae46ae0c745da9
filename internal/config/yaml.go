package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level gateway configuration file.
type YAMLConfig struct {
	Server      Server       `yaml:"server"`
	Auth        Auth         `yaml:"auth"`
	Connections []Connection `yaml:"connections"`
	Cache       Cache        `yaml:"cache"`
	Logging     Logging      `yaml:"logging"`
}

// Server controls the HTTP server behavior.
type Server struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	RatePerMinute   int      `yaml:"rate_per_minute"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// Auth controls authentication settings.
type Auth struct {
	JWTSecret    string `yaml:"jwt_secret"`
	JWTExpiry    string `yaml:"jwt_expiry"`
	AdminKey     string `yaml:"admin_key"`
	APIKeyHeader string `yaml:"api_key_header"`
}

// Connection defines a remote Jira/Xray site in the YAML configuration
// file. Connections declared here are merged into the store at startup.
type Connection struct {
	Name         string `yaml:"name"`
	Label        string `yaml:"label"`
	JiraURL      string `yaml:"jira_url"`
	XrayURL      string `yaml:"xray_url"`
	Email        string `yaml:"email"`
	APIToken     string `yaml:"api_token"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ReadOnly     bool   `yaml:"read_only"`
}

// Cache controls the forwarded-result cache.
type Cache struct {
	Enabled bool   `yaml:"enabled"`
	TTL     string `yaml:"ttl"`
}

// Logging controls log output.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// LoadYAML reads and parses a gateway configuration file.
func LoadYAML(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Auth.APIKeyHeader == "" {
		cfg.Auth.APIKeyHeader = "X-API-Key"
	}
	return &cfg, nil
}
