package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfigNames lists the per-service config file names in lookup order.
var ServiceConfigNames = []string{"config.json", "config.yaml", "config.yml"}

// ErrMissingComponentKey is returned when a service config has no componentKey.
var ErrMissingComponentKey = errors.New("config missing componentKey")

// ServiceConfig is the per-service configuration stored next to its probe.
type ServiceConfig struct {
	ComponentKey string `json:"componentKey" yaml:"componentKey"`
	// Timeout overrides the global probe timeout when positive.
	Timeout time.Duration `json:"-" yaml:"-"`
}

type rawServiceConfig struct {
	ComponentKey string `json:"componentKey" yaml:"componentKey"`
	Timeout      string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LoadServiceConfig parses a service config file. JSON and YAML are picked by extension.
func LoadServiceConfig(path string) (ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("read service config: %w", err)
	}

	var raw rawServiceConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return ServiceConfig{}, fmt.Errorf("parse service config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return ServiceConfig{}, fmt.Errorf("parse service config: %w", err)
		}
	}

	cfg := ServiceConfig{ComponentKey: strings.TrimSpace(raw.ComponentKey)}
	if cfg.ComponentKey == "" {
		return ServiceConfig{}, ErrMissingComponentKey
	}

	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return ServiceConfig{}, fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
		}
		if timeout < 0 {
			return ServiceConfig{}, fmt.Errorf("timeout cannot be negative")
		}
		cfg.Timeout = timeout
	}

	return cfg, nil
}
