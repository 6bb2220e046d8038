package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harkutabhilash/justpressedinternalapp/pkg/sessioncache"
)

// Config is the operator-edited console configuration.
type Config struct {
	// Endpoint is the backend gateway URL. Required.
	Endpoint string `yaml:"endpoint"`
	// Username stamps the audit columns on saved entries.
	Username string `yaml:"username"`
	Role     string `yaml:"role"`
	// PageSize is the browse page length; zero falls back to the default.
	PageSize int `yaml:"pageSize"`
	// Verbose switches the logger to development output.
	Verbose bool `yaml:"verbose"`
	// Cache overrides the default cache lifetimes.
	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig holds per-namespace TTL overrides as Go duration strings
// ("30m", "2h"). Empty values keep the defaults.
type CacheConfig struct {
	Catalog    string `yaml:"catalog"`
	FormConfig string `yaml:"formConfig"`
	MasterDump string `yaml:"masterDump"`
}

func (c CacheConfig) ttls() (catalog, formConfig, masterDump time.Duration, err error) {
	catalog, err = parseTTL(c.Catalog, sessioncache.ModuleMetadataTTL)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("cache.catalog: %w", err)
	}
	formConfig, err = parseTTL(c.FormConfig, sessioncache.FormConfigTTL)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("cache.formConfig: %w", err)
	}
	masterDump, err = parseTTL(c.MasterDump, sessioncache.MasterDumpTTL)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("cache.masterDump: %w", err)
	}
	return catalog, formConfig, masterDump, nil
}

func parseTTL(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("ttl must be positive, got %q", value)
	}
	return parsed, nil
}

const defaultConfigName = ".opsconsole.yaml"

// loadConfig reads the YAML config file. An empty path looks for
// ~/.opsconsole.yaml; a missing default file is not an error.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, nil
		}
		path = filepath.Join(home, defaultConfigName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// saveConfig writes the config back to its file, used by login to persist
// the acting username between invocations.
func saveConfig(path string, cfg Config) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, defaultConfigName)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}
