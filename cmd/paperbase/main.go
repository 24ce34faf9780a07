package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scilit/paperbase/internal/config"
	"github.com/scilit/paperbase/internal/database"
	"github.com/scilit/paperbase/internal/datagen"
	"github.com/scilit/paperbase/internal/logging"
	"github.com/scilit/paperbase/internal/maintenance"
	"github.com/scilit/paperbase/internal/schemawatch"
	"github.com/scilit/paperbase/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	dbPath         string
	poolSize       int
	acquireTimeout time.Duration
	disableWAL     bool
	cacheSizeKB    int
	synchronous    string
	explainQueries bool
	verbosity      int

	// serve flags
	port int
	bind string

	// seed flags
	seedAuthors  int
	seedPapers   int
	seedDatasets int
	seedValue    int64
)

func main() {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:   "paperbase",
		Short: "Paperbase - scientific literature store",
		Long:  `Paperbase manages an embedded SQLite store for scientific literature: schema bootstrap, pooled access, validation and query monitoring.`,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&dbPath, "db", "d", defaults.DatabasePath, "SQLite database path (or set DB_PATH env var)")
	pf.IntVar(&poolSize, "pool-size", defaults.PoolSize, "Number of pooled connections (1-20)")
	pf.DurationVar(&acquireTimeout, "acquire-timeout", defaults.AcquireTimeout, "Timeout waiting for an idle pooled connection")
	pf.BoolVar(&disableWAL, "no-wal", false, "Disable write-ahead logging")
	pf.IntVar(&cacheSizeKB, "cache-size", defaults.CacheSizeKB, "Per-connection page cache size in KB")
	pf.StringVar(&synchronous, "synchronous", defaults.Synchronous, "Durability mode: OFF, NORMAL or FULL")
	pf.BoolVar(&explainQueries, "explain", defaults.ExplainQueries, "Run a query-plan inspection pass before monitored queries")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagnostics server with scheduled maintenance",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", 8320, "Diagnostics server port (or set PORT env var)")
	serveCmd.Flags().StringVarP(&bind, "bind", "b", "127.0.0.1", "IP address to bind to")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the store with synthetic literature data",
		RunE:  runSeed,
	}
	seedCmd.Flags().IntVar(&seedAuthors, "authors", datagen.DefaultCounts().Authors, "Number of authors to generate")
	seedCmd.Flags().IntVar(&seedPapers, "papers", datagen.DefaultCounts().Papers, "Number of papers to generate")
	seedCmd.Flags().IntVar(&seedDatasets, "datasets", datagen.DefaultCounts().Datasets, "Number of datasets to generate")
	seedCmd.Flags().Int64Var(&seedValue, "seed", time.Now().UnixNano(), "Random seed (fixed value makes runs reproducible)")

	rootCmd.AddCommand(
		serveCmd,
		&cobra.Command{
			Use:   "init",
			Short: "Create the database and run the idempotent schema bootstrap",
			RunE:  runInit,
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the live schema against the expected catalog",
			RunE:  runValidate,
		},
		&cobra.Command{
			Use:   "info",
			Short: "Print full schema introspection as JSON",
			RunE:  runInfo,
		},
		seedCmd,
		&cobra.Command{
			Use:       "maintain [optimize|vacuum|checkpoint|integrity]",
			Short:     "Run a maintenance operation",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"optimize", "vacuum", "checkpoint", "integrity"},
			RunE:      runMaintain,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("paperbase %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildConfig assembles the immutable storage config from flags and env.
func buildConfig() (config.Config, error) {
	if dbPath == config.Default().DatabasePath {
		if envDB := os.Getenv("DB_PATH"); envDB != "" {
			dbPath = envDB
		}
	}

	cfg := config.Default()
	cfg.DatabasePath = dbPath
	cfg.PoolSize = poolSize
	cfg.AcquireTimeout = acquireTimeout
	cfg.EnableWAL = !disableWAL
	cfg.CacheSizeKB = cacheSizeKB
	cfg.Synchronous = synchronous
	cfg.ExplainQueries = explainQueries

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openManager(ctx context.Context) (*database.Manager, config.Config, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, config.Config{}, err
	}

	logging.Apply(verbosity, logging.FilePathForDB(cfg.DatabasePath))

	mgr, err := database.New(ctx, cfg)
	if err != nil {
		return nil, config.Config{}, err
	}
	return mgr, cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if envPort := os.Getenv("PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		if _, err := fmt.Sscanf(envPort, "%d", &port); err != nil {
			return fmt.Errorf("invalid PORT environment variable %q: %w", envPort, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr, cfg, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	log.Info().
		Str("version", version).
		Str("database", cfg.DatabasePath).
		Int("pool_size", cfg.PoolSize).
		Int("port", port).
		Msg("Starting Paperbase")

	if err := mgr.Initialize(ctx); err != nil {
		return err
	}

	validator := database.NewValidator(mgr)
	monitor := database.NewMonitor(mgr)

	report, err := validator.ValidateSchema(ctx)
	if err != nil {
		return err
	}
	if !report.Valid {
		log.Warn().Strs("issues", report.Issues).Msg("Schema validation reported issues")
	}

	scheduler := maintenance.New(mgr)
	if started, err := scheduler.Start(cfg); err != nil {
		return fmt.Errorf("failed to start maintenance scheduler: %w", err)
	} else if !started {
		log.Debug().Msg("Maintenance scheduler not started (no schedules configured)")
	}
	defer scheduler.Stop()

	watcher, err := schemawatch.New(mgr, validator)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize schema watcher")
	} else {
		if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start schema watcher")
		} else {
			defer watcher.Stop()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	server := web.NewServer(mgr, validator, monitor, port, bind)
	if err := server.Start(ctx); err != nil {
		return err
	}

	log.Info().Msg("Paperbase stopped")
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, _, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	return mgr.Initialize(ctx)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, _, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	report, err := database.NewValidator(mgr).ValidateSchema(ctx)
	if err != nil {
		return err
	}

	printJSON(report)
	if !report.Valid {
		return fmt.Errorf("schema validation failed with %d issue(s)", len(report.Issues))
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, _, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	info, err := database.NewValidator(mgr).GetSchemaInfo(ctx)
	if err != nil {
		return err
	}
	printJSON(info)
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, _, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if err := mgr.Initialize(ctx); err != nil {
		return err
	}

	gen := datagen.New(mgr, seedValue)
	summary, err := gen.Populate(ctx, datagen.Counts{
		Authors:  seedAuthors,
		Papers:   seedPapers,
		Datasets: seedDatasets,
	})
	if err != nil {
		return err
	}
	printJSON(summary)

	validation, err := gen.Validate(ctx)
	if err != nil {
		return err
	}
	if len(validation.Issues) > 0 {
		log.Warn().Strs("issues", validation.Issues).Msg("Generated data has integrity issues")
	}
	return nil
}

func runMaintain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	mgr, _, err := openManager(ctx)
	if err != nil {
		return err
	}
	defer mgr.Close()

	switch args[0] {
	case "optimize":
		return mgr.Optimize(ctx)
	case "vacuum":
		return mgr.Vacuum(ctx)
	case "checkpoint":
		return mgr.Checkpoint(ctx)
	case "integrity":
		return mgr.IntegrityCheck(ctx)
	default:
		return fmt.Errorf("unknown maintenance operation %q", args[0])
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to print result")
	}
}
