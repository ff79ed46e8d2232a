// Package config provides configuration management for the qualification
// probability tracker.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	// Create a new viper instance
	v := viper.New()
	v.SetConfigType("yaml")

	// Read the expanded configuration
	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set environment variable prefix
	v.SetEnvPrefix("QUALPROB")

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal configuration into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields, tolerating a missing config file so one-shot jobs can run from
// environment variables alone.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	// Set configuration file path with default
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix("QUALPROB")

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		// Expand environment variables in the configuration (${VAR} syntax)
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If file doesn't exist, continue with defaults and environment variables

	// Unmarshal configuration into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults seeds every optional setting so a bare environment still
// produces a usable configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "qualprob")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "qualprob")
	v.SetDefault("database.user", "qualprob")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("standings.base_url", "https://site.web.api.espn.com/apis/v2/sports/soccer")
	v.SetDefault("standings.timeout_seconds", 30)
	v.SetDefault("standings.retry_attempts", 3)
	v.SetDefault("standings.rate_limit_per_second", 2)
	v.SetDefault("standings.user_agent", "qualprob/1.0")
	v.SetDefault("standings.host_teams", []string{"United States", "Canada", "Mexico"})

	v.SetDefault("historical.season_from", 1990)
	v.SetDefault("historical.season_to", 2025)
	v.SetDefault("historical.timeout_seconds", 60)

	v.SetDefault("blend.form_weight", 0.6)
	v.SetDefault("blend.historical_weight", 0.4)

	v.SetDefault("lookup.cache_ttl_minutes", 60)
	v.SetDefault("lookup.cache_sweep_minutes", 10)

	v.SetDefault("runs.dedup_enabled", true)
	v.SetDefault("runs.stale_after_minutes", 120)
	v.SetDefault("runs.recent_limit", 20)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.probability_update_spec", "0 */6 * * *")
	v.SetDefault("scheduler.historical_refresh_spec", "0 4 * * 1")
	v.SetDefault("scheduler.stale_run_sweep_spec", "*/30 * * * *")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout_seconds", 10)
	v.SetDefault("api.write_timeout_seconds", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.port", 8081)
}

// ReloadFromEnv reloads the full configuration when an override path is
// present in the environment.
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv("QUALPROB_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}
