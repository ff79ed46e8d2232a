// Package main provides the one-shot historical standings fetch entry
// point, archiving past qualifying cycles for the lookup rebuild.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

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
		start      = flag.Int("start", 0, "First season to fetch (default from config)")
		end        = flag.Int("end", 0, "Last season to fetch (default from config)")
	)
	flag.Parse()

	_ = godotenv.Load() // Load .env if present

	ctx := context.Background()
	cfg := loadConfig(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if *trigger != service.TriggerManual && *trigger != service.TriggerScheduled {
		log.Fatalf("Invalid trigger source %q", *trigger)
	}
	if *start > 0 {
		cfg.Historical.SeasonFrom = *start
	}
	if *end > 0 {
		cfg.Historical.SeasonTo = *end
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

	historical, err := buildHistoricalService(cfg, repos, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build historical pipeline")
	}

	result, err := historical.Run(ctx, *trigger, nil)
	if err != nil {
		log.WithError(err).Error("Historical fetch failed")
		os.Exit(1)
	}

	log.WithFields(logrus.Fields{
		"run_id":   result.Run.ID,
		"status":   result.Run.Status,
		"seasons":  len(result.Seasons),
		"rows":     result.Rows,
		"upserted": result.Upserted,
	}).Info("Historical fetch complete")

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

func buildHistoricalService(cfg *config.Config, repos *repository.Repositories, log *logrus.Logger) (*service.HistoricalService, error) {
	confeds, err := service.ConfederationsFrom(cfg.Standings.Confederations)
	if err != nil {
		return nil, err
	}

	fetchLog := logger.NewFetchLogger(log)
	httpCfg := service.StandingsClientConfigFrom(cfg.Standings)
	if cfg.Historical.TimeoutSeconds > 0 {
		httpCfg.Timeout = cfg.HistoricalTimeout()
	}
	httpClient := standings.NewRateLimitedHTTPClient(httpCfg, log)
	source := standings.NewESPNClient(httpClient, cfg.Standings.BaseURL, cfg.Standings.UserAgent, confeds, fetchLog)

	return service.NewHistoricalService(source, repos.HistoricalStanding, repos.Run, service.HistoricalConfig{
		SeasonFrom:  cfg.Historical.SeasonFrom,
		SeasonTo:    cfg.Historical.SeasonTo,
		Environment: cfg.App.Environment,
	}, log), nil
}
