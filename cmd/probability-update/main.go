// Package main provides the one-shot probability update entry point,
// suitable for scheduled container or Lambda-style invocation.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/blend"
	"github.com/yourusername/qualprob/internal/config"
	"github.com/yourusername/qualprob/internal/database"
	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/models"
	"github.com/yourusername/qualprob/internal/repository"
	"github.com/yourusername/qualprob/internal/service"
	"github.com/yourusername/qualprob/internal/standings"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		trigger    = flag.String("trigger", service.TriggerManual, "Trigger source recorded in the run ledger: manual or scheduled")
		force      = flag.Bool("force", false, "Run even when standings are unchanged since the last success")
	)
	flag.Parse()

	_ = godotenv.Load() // Load .env if present

	ctx := context.Background()
	cfg := loadConfig(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if *trigger != service.TriggerManual && *trigger != service.TriggerScheduled {
		log.Fatalf("Invalid trigger source %q", *trigger)
	}
	if *force {
		cfg.Runs.DedupEnabled = false
	}

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize repositories")
	}

	refresh, err := buildRefreshService(cfg, repos, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build refresh pipeline")
	}

	result, err := refresh.Run(ctx, *trigger)
	if err != nil {
		log.WithError(err).Error("Probability update failed")
		os.Exit(1)
	}

	if result.Deduplicated {
		log.WithField("prior_run_id", result.PriorRun.ID).Info("Standings unchanged; update skipped")
		return
	}

	log.WithFields(logrus.Fields{
		"run_id":    result.Run.ID,
		"status":    result.Run.Status,
		"processed": result.Processed,
		"failed":    result.Failed,
		"inserted":  result.Inserted,
		"updated":   result.Updated,
	}).Info("Probability update complete")

	if result.Run.Status == models.RunStatusFailed {
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			logrus.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			logrus.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func buildRefreshService(cfg *config.Config, repos *repository.Repositories, log *logrus.Logger) (*service.RefreshService, error) {
	confeds, err := service.ConfederationsFrom(cfg.Standings.Confederations)
	if err != nil {
		return nil, err
	}

	fetchLog := logger.NewFetchLogger(log)
	httpClient := standings.NewRateLimitedHTTPClient(service.StandingsClientConfigFrom(cfg.Standings), log)
	source := standings.NewESPNClient(httpClient, cfg.Standings.BaseURL, cfg.Standings.UserAgent, confeds, fetchLog)
	collector := standings.NewCollector(source, cfg.Standings.RetryAttempts, fetchLog)

	blendCfg, err := service.BlendConfigFrom(cfg.Blend)
	if err != nil {
		return nil, err
	}

	provider := service.NewLookupProvider(repos.Lookup, cfg.LookupCacheTTL(), 0, log)
	materializer := service.NewMaterializer(repos.Probability, log)

	return service.NewRefreshService(collector, provider, materializer, blend.NewBlender(blendCfg), repos.Run, service.RefreshConfig{
		Environment:  cfg.App.Environment,
		DedupEnabled: cfg.Runs.DedupEnabled,
		StaleAfter:   cfg.StaleRunThreshold(),
		HostTeams:    cfg.Standings.HostTeams,
	}, log), nil
}
