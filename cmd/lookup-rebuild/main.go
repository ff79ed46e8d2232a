// Package main provides the one-shot lookup table rebuild entry point,
// typically invoked right after a historical fetch.
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
	"github.com/yourusername/qualprob/internal/repository"
	"github.com/yourusername/qualprob/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		trigger    = flag.String("trigger", service.TriggerManual, "Trigger source recorded in the run ledger: manual or scheduled")
	)
	flag.Parse()

	_ = godotenv.Load() // Load .env if present

	ctx := context.Background()
	cfg := loadConfig(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	if *trigger != service.TriggerManual && *trigger != service.TriggerScheduled {
		log.Fatalf("Invalid trigger source %q", *trigger)
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

	// No lookup provider: a one-shot process has no live readers to
	// flush.
	rebuild := service.NewLookupRebuildService(repos.HistoricalStanding, repos.Lookup, repos.Run, nil, cfg.App.Environment, log)

	result, err := rebuild.Run(ctx, *trigger)
	if err != nil {
		log.WithError(err).Error("Lookup rebuild failed")
		os.Exit(1)
	}

	log.WithFields(logrus.Fields{
		"run_id":         result.Run.ID,
		"rank_entries":   result.RankEntries,
		"bucket_entries": result.BucketEntries,
		"total":          result.Total(),
	}).Info("Lookup table rebuilt")
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
