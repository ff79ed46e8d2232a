// Package main provides the qualification probability tracker CLI: the
// long-running serve mode plus one-shot pipeline and status commands.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/qualprob/internal/api"
	"github.com/yourusername/qualprob/internal/blend"
	"github.com/yourusername/qualprob/internal/config"
	"github.com/yourusername/qualprob/internal/database"
	"github.com/yourusername/qualprob/internal/health"
	"github.com/yourusername/qualprob/internal/logger"
	"github.com/yourusername/qualprob/internal/metrics"
	"github.com/yourusername/qualprob/internal/repository"
	"github.com/yourusername/qualprob/internal/scheduler"
	"github.com/yourusername/qualprob/internal/service"
	"github.com/yourusername/qualprob/internal/standings"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
)

var (
	fetchStart int
	fetchEnd   int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	fetchHistoricalCmd.Flags().IntVar(&fetchStart, "start", 0, "First season to fetch (default from config)")
	fetchHistoricalCmd.Flags().IntVar(&fetchEnd, "end", 0, "Last season to fetch (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(rebuildLookupCmd)
	rootCmd.AddCommand(fetchHistoricalCmd)
	rootCmd.AddCommand(statusCmd)
}

var rootCmd = &cobra.Command{
	Use:     "tracker",
	Short:   "World Cup qualification probability tracker",
	Long:    `Tracks every national team's probability of filling a World Cup slot by blending current qualifying form with historical qualification rates.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracker service: scheduler, read API, health and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one probability update now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh(cmd.Context())
	},
}

var rebuildLookupCmd = &cobra.Command{
	Use:   "rebuild-lookup",
	Short: "Rebuild the historical probability lookup table from the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRebuildLookup(cmd.Context())
	},
}

var fetchHistoricalCmd = &cobra.Command{
	Use:   "fetch-historical",
	Short: "Fetch past qualifying seasons into the standings archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetchHistorical(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs and probability table stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	var err error
	db, err = database.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	return nil
}

// pipelines bundles the wired batch services shared by serve and the
// one-shot subcommands.
type pipelines struct {
	refresh    *service.RefreshService
	historical *service.HistoricalService
	rebuild    *service.LookupRebuildService
	provider   *service.LookupProvider
}

func buildPipelines() (*pipelines, error) {
	confeds, err := service.ConfederationsFrom(cfg.Standings.Confederations)
	if err != nil {
		return nil, err
	}

	fetchLog := logger.NewFetchLogger(appLog)
	httpClient := standings.NewRateLimitedHTTPClient(service.StandingsClientConfigFrom(cfg.Standings), appLog)
	source := standings.NewESPNClient(httpClient, cfg.Standings.BaseURL, cfg.Standings.UserAgent, confeds, fetchLog)
	collector := standings.NewCollector(source, cfg.Standings.RetryAttempts, fetchLog)

	blendCfg, err := service.BlendConfigFrom(cfg.Blend)
	if err != nil {
		return nil, err
	}
	blender := blend.NewBlender(blendCfg)

	provider := service.NewLookupProvider(
		repos.Lookup,
		cfg.LookupCacheTTL(),
		time.Duration(cfg.Lookup.CacheSweepMinutes)*time.Minute,
		appLog,
	)
	materializer := service.NewMaterializer(repos.Probability, appLog)

	refresh := service.NewRefreshService(collector, provider, materializer, blender, repos.Run, service.RefreshConfig{
		Environment:  cfg.App.Environment,
		DedupEnabled: cfg.Runs.DedupEnabled,
		StaleAfter:   cfg.StaleRunThreshold(),
		HostTeams:    cfg.Standings.HostTeams,
	}, appLog)

	historical := service.NewHistoricalService(source, repos.HistoricalStanding, repos.Run, service.HistoricalConfig{
		SeasonFrom:  cfg.Historical.SeasonFrom,
		SeasonTo:    cfg.Historical.SeasonTo,
		Environment: cfg.App.Environment,
	}, appLog)

	rebuild := service.NewLookupRebuildService(repos.HistoricalStanding, repos.Lookup, repos.Run, provider, cfg.App.Environment, appLog)

	return &pipelines{
		refresh:    refresh,
		historical: historical,
		rebuild:    rebuild,
		provider:   provider,
	}, nil
}

func runServe() error {
	metrics.InitRegistry()

	pipes, err := buildPipelines()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("Qualification probability tracker starting")

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Version:     Version,
		Commit:      GitCommit,
		Port:        strconv.Itoa(cfg.Health.Port),
		Logger:      appLog,
		DB:          db,
		Lookup:      repos.Lookup,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer()
	}

	if cfg.API.Enabled {
		apiServer := api.NewServer(api.Config{
			Port:                cfg.API.Port,
			ReadTimeoutSeconds:  cfg.API.ReadTimeoutSeconds,
			WriteTimeoutSeconds: cfg.API.WriteTimeoutSeconds,
			RecentRunsLimit:     cfg.Runs.RecentLimit,
			Logger:              appLog,
			Probabilities:       repos.Probability,
			Runs:                repos.Run,
		})
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = startScheduler(ctx, pipes)
		if err != nil {
			return err
		}
	} else {
		appLog.Warn("Scheduler disabled; no background jobs will run")
	}

	healthServer.SetReady(true)
	appLog.Info("Tracker is running")

	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Error stopping scheduler")
		}
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Error stopping metrics server")
		}
		shutdownCancel()
	}

	appLog.Info("Tracker shut down")
	return nil
}

func startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	go func() {
		appLog.WithFields(logrus.Fields{
			"port": cfg.Metrics.Port,
			"path": cfg.Metrics.Path,
		}).Info("Metrics server starting")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()

	return server
}

func startScheduler(ctx context.Context, pipes *pipelines) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(appLog)

	err := sched.RegisterJob("probability-update", cfg.Scheduler.ProbabilityUpdateSpec, 10*time.Minute, func(jobCtx context.Context) error {
		_, err := pipes.refresh.Run(jobCtx, service.TriggerScheduled)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register probability update job: %w", err)
	}

	// Archive fetch and lookup rebuild run back to back so fresh
	// seasons are folded into the table the same night.
	err = sched.RegisterJob("historical-refresh", cfg.Scheduler.HistoricalRefreshSpec, 2*time.Hour, func(jobCtx context.Context) error {
		if _, err := pipes.historical.Run(jobCtx, service.TriggerScheduled, nil); err != nil {
			return err
		}
		_, err := pipes.rebuild.Run(jobCtx, service.TriggerScheduled)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register historical refresh job: %w", err)
	}

	err = sched.RegisterJob("stale-run-sweep", cfg.Scheduler.StaleRunSweepSpec, time.Minute, func(jobCtx context.Context) error {
		_, err := pipes.refresh.ReconcileStaleRuns(jobCtx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register stale run sweep job: %w", err)
	}

	if err := sched.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	appLog.WithField("jobs", sched.JobNames()).Info("Scheduler started")
	return sched, nil
}

func runRefresh(ctx context.Context) error {
	pipes, err := buildPipelines()
	if err != nil {
		return err
	}

	result, err := pipes.refresh.Run(ctx, service.TriggerManual)
	if err != nil {
		return err
	}

	if result.Deduplicated {
		fmt.Println("Standings unchanged since the last successful update; nothing to do.")
		fmt.Printf("Prior run: %s (completed %s)\n", result.PriorRun.ID, formatTime(result.PriorRun.CompletedAt))
		return nil
	}

	fmt.Println("Probability update complete")
	fmt.Printf("  Run ID:    %s\n", result.Run.ID)
	fmt.Printf("  Status:    %s\n", result.Run.Status)
	fmt.Printf("  Processed: %d (failed %d)\n", result.Processed, result.Failed)
	fmt.Printf("  Written:   %d inserted, %d updated\n", result.Inserted, result.Updated)
	fmt.Printf("  Duration:  %.2fs\n", result.Run.ExecutionTimeSeconds)
	return nil
}

func runRebuildLookup(ctx context.Context) error {
	pipes, err := buildPipelines()
	if err != nil {
		return err
	}

	result, err := pipes.rebuild.Run(ctx, service.TriggerManual)
	if err != nil {
		return err
	}

	fmt.Println("Lookup table rebuilt")
	fmt.Printf("  Run ID:         %s\n", result.Run.ID)
	fmt.Printf("  Rank entries:   %d\n", result.RankEntries)
	fmt.Printf("  Bucket entries: %d\n", result.BucketEntries)
	fmt.Printf("  Duration:       %.2fs\n", result.Run.ExecutionTimeSeconds)
	return nil
}

func runFetchHistorical(ctx context.Context) error {
	if fetchStart > 0 {
		cfg.Historical.SeasonFrom = fetchStart
	}
	if fetchEnd > 0 {
		cfg.Historical.SeasonTo = fetchEnd
	}

	pipes, err := buildPipelines()
	if err != nil {
		return err
	}

	result, err := pipes.historical.Run(ctx, service.TriggerManual, nil)
	if err != nil {
		return err
	}

	fmt.Println("Historical fetch complete")
	fmt.Printf("  Run ID:   %s\n", result.Run.ID)
	fmt.Printf("  Status:   %s\n", result.Run.Status)
	fmt.Printf("  Seasons:  %d-%d (%d fetched)\n", result.Seasons[0], result.Seasons[len(result.Seasons)-1], len(result.Seasons))
	fmt.Printf("  Archived: %d rows (%d upserted)\n", result.Rows, result.Upserted)
	fmt.Printf("  Duration: %.2fs\n", result.Run.ExecutionTimeSeconds)
	return nil
}

func runStatus(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats, err := repos.Probability.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	fmt.Println("Probability table")
	fmt.Printf("  Teams:       %d (%d qualified, %d in progress)\n", stats.TotalTeams, stats.Qualified, stats.InProgress)
	fmt.Printf("  Average:     %.2f%%\n", stats.AvgProbability)
	fmt.Printf("  Last update: %s\n", formatTime(stats.LastUpdated))

	if len(stats.Confederations) > 0 {
		fmt.Println("\n  By confederation:")
		for _, cs := range stats.Confederations {
			fmt.Printf("    %-9s %3d teams  %2d qualified  avg %6.2f%%\n", cs.Confederation, cs.Teams, cs.Qualified, cs.AvgProbability)
		}
	}

	runs, err := repos.Run.GetRecent(ctx, "", cfg.Runs.RecentLimit)
	if err != nil {
		return fmt.Errorf("failed to load recent runs: %w", err)
	}

	fmt.Println("\nRecent runs")
	if len(runs) == 0 {
		fmt.Println("  (none)")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("  %s  %-19s %-8s processed=%-4d failed=%-3d %6.2fs  %s\n",
			run.StartedAt.Format("2006-01-02 15:04"),
			run.JobType,
			run.Status,
			run.RecordsProcessed,
			run.RecordsFailed,
			run.ExecutionTimeSeconds,
			run.TriggerSource,
		)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
