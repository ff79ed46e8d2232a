// Package config provides configuration management for the qualification
// probability tracker.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Standings  StandingsConfig  `mapstructure:"standings" validate:"required"`
	Historical HistoricalConfig `mapstructure:"historical" validate:"required"`
	Blend      BlendConfig      `mapstructure:"blend" validate:"required"`
	Lookup     LookupConfig     `mapstructure:"lookup" validate:"required"`
	Runs       RunsConfig       `mapstructure:"runs" validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" validate:"required"`
	API        APIConfig        `mapstructure:"api" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Health     HealthConfig     `mapstructure:"health" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// StandingsConfig represents the live standings source configuration
type StandingsConfig struct {
	BaseURL            string   `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds     int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts      int      `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimitPerSecond float64  `mapstructure:"rate_limit_per_second" validate:"required,gt=0"`
	UserAgent          string   `mapstructure:"user_agent"`
	Confederations     []string `mapstructure:"confederations" validate:"omitempty,confederations"`
	HostTeams          []string `mapstructure:"host_teams"`
}

// HistoricalConfig represents the historical archive fetch configuration
type HistoricalConfig struct {
	SeasonFrom     int `mapstructure:"season_from" validate:"required,gte=1930"`
	SeasonTo       int `mapstructure:"season_to" validate:"required,gte=1930"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// BlendConfig represents probability blending weights and adjustments
type BlendConfig struct {
	FormWeight       float64            `mapstructure:"form_weight" validate:"required,gt=0,lt=1"`
	HistoricalWeight float64            `mapstructure:"historical_weight" validate:"required,gt=0,lt=1"`
	Multipliers      map[string]float64 `mapstructure:"confederation_multipliers" validate:"omitempty,dive,gt=0,lte=1"`
}

// LookupConfig represents lookup table caching configuration
type LookupConfig struct {
	CacheTTLMinutes   int `mapstructure:"cache_ttl_minutes" validate:"required,gt=0"`
	CacheSweepMinutes int `mapstructure:"cache_sweep_minutes" validate:"required,gt=0"`
}

// RunsConfig represents run ledger behaviour
type RunsConfig struct {
	DedupEnabled      bool `mapstructure:"dedup_enabled"`
	StaleAfterMinutes int  `mapstructure:"stale_after_minutes" validate:"required,gt=0"`
	RecentLimit       int  `mapstructure:"recent_limit" validate:"required,gt=0"`
}

// SchedulerConfig represents cron scheduling for background jobs
type SchedulerConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	ProbabilityUpdateSpec string `mapstructure:"probability_update_spec" validate:"required"`
	HistoricalRefreshSpec string `mapstructure:"historical_refresh_spec" validate:"required"`
	StaleRunSweepSpec     string `mapstructure:"stale_run_sweep_spec" validate:"required"`
}

// APIConfig represents the read-only HTTP API configuration
type APIConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	Port                int  `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds  int  `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds int  `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health endpoint configuration
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// StandingsTimeout returns the standings client timeout as a duration
func (c *Config) StandingsTimeout() time.Duration {
	return time.Duration(c.Standings.TimeoutSeconds) * time.Second
}

// HistoricalTimeout returns the archive fetch timeout as a duration
func (c *Config) HistoricalTimeout() time.Duration {
	return time.Duration(c.Historical.TimeoutSeconds) * time.Second
}

// LookupCacheTTL returns the lookup cache TTL as a duration
func (c *Config) LookupCacheTTL() time.Duration {
	return time.Duration(c.Lookup.CacheTTLMinutes) * time.Minute
}

// StaleRunThreshold returns how long a run may stay in the running
// state before the sweeper marks it failed
func (c *Config) StaleRunThreshold() time.Duration {
	return time.Duration(c.Runs.StaleAfterMinutes) * time.Minute
}
