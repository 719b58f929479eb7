// Package config loads server configuration from an optional YAML file
// with environment-variable overrides. A .env file is honored when present.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr     string   `yaml:"listen_addr"`
	DatabaseURL    string   `yaml:"database_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads the YAML file at path (skipped when path is empty), then
// applies environment overrides. DATABASE_URL must end up set one way or
// the other.
func Load(path string) (*Config, error) {
	// No .env file is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:     ":8080",
		AllowedOrigins: []string{"*"},
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL not configured (set DATABASE_URL or database_url)")
	}
	return cfg, nil
}
