package service

import (
	"fmt"
	"time"

	"github.com/yourusername/qualprob/internal/blend"
	"github.com/yourusername/qualprob/internal/config"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/standings"
)

// BlendConfigFrom translates file configuration into the blending
// policy: configured weights and multipliers are merged over the
// defaults, with viper's lowercased multiplier keys folded back to
// confederation names.
func BlendConfigFrom(bc config.BlendConfig) (blend.Config, error) {
	blendCfg := blend.DefaultConfig()
	if bc.FormWeight > 0 {
		blendCfg.FormWeight = bc.FormWeight
	}
	if bc.HistoricalWeight > 0 {
		blendCfg.HistoricalWeight = bc.HistoricalWeight
	}
	for name, m := range bc.Multipliers {
		confed, err := models.ParseConfederation(name)
		if err != nil {
			return blend.Config{}, fmt.Errorf("invalid blend multiplier: %w", err)
		}
		blendCfg.Multipliers[confed] = m
	}

	if err := blendCfg.Validate(); err != nil {
		return blend.Config{}, fmt.Errorf("invalid blend configuration: %w", err)
	}
	return blendCfg, nil
}

// ConfederationsFrom parses the configured confederation names. An
// empty list selects all six.
func ConfederationsFrom(names []string) ([]models.Confederation, error) {
	confeds := make([]models.Confederation, 0, len(names))
	for _, name := range names {
		confed, err := models.ParseConfederation(name)
		if err != nil {
			return nil, err
		}
		confeds = append(confeds, confed)
	}
	return confeds, nil
}

// StandingsClientConfigFrom merges file configuration over the default
// standings HTTP client tuning.
func StandingsClientConfigFrom(sc config.StandingsConfig) standings.HTTPClientConfig {
	httpCfg := standings.DefaultHTTPClientConfig()
	if sc.TimeoutSeconds > 0 {
		httpCfg.Timeout = time.Duration(sc.TimeoutSeconds) * time.Second
	}
	if sc.RetryAttempts > 0 {
		httpCfg.MaxRetries = sc.RetryAttempts
	}
	if sc.RateLimitPerSecond > 0 {
		httpCfg.RateLimit = sc.RateLimitPerSecond
	}
	return httpCfg
}
