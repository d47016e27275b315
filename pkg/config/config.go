package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tollgate-ai/tollgate/pkg/models"
)

// Config holds all tollgate configuration.
type Config struct {
	// DBPath locates the SQLite database holding the usage ledger and the
	// cost limits.
	DBPath string `yaml:"db_path"`
	// Pricing overrides or extends the built-in per-million-token prices,
	// so new model prices can be pinned without a rebuild.
	Pricing []models.ModelPricing `yaml:"pricing"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath: "tollgate.db",
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
