// Command borough-cleanup deletes school records whose DBN does not belong
// to one of the five NYC boroughs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nyc-kinder-workers/internal/common/aws"
	"nyc-kinder-workers/internal/common/config"
	"nyc-kinder-workers/internal/common/database"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/maintenance"
)

type options struct {
	configPath string
	batchSize  int
	dryRun     bool
	jsonOut    bool
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "borough-cleanup",
		Short: "Delete school records outside the five NYC boroughs",
		Long: `borough-cleanup reads every school DBN, classifies it by district and
deletes the ones that do not map to Manhattan, Bronx, Brooklyn, Queens or
Staten Island. Deletes run in sequential batches; the first failing batch
stops the run and earlier batches stay deleted. Running it again resumes
where it stopped and is a no-op once the table is clean.`,
		Example: `  borough-cleanup --dry-run
  borough-cleanup --config configs/config.yaml --batch-size 50 --json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.batchSize < 0 {
				return fmt.Errorf("--batch-size must be positive, got %d", opts.batchSize)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file (default: configs/config.yaml lookup)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Identifiers per delete statement (default: cleanup.batch_size)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would be deleted without deleting")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the run report as JSON on stdout")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "Abort the run after this long")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		return err
	}

	batchSize := cfg.Cleanup.BatchSize
	if opts.batchSize > 0 {
		batchSize = opts.batchSize
	}
	cleanerOpts := []maintenance.Option{maintenance.WithBatchSize(batchSize)}

	rc := database.NewRedis(cfg.Database.Redis)
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unavailable, cached scores will expire on their own", map[string]interface{}{"error": err})
	} else {
		cleanerOpts = append(cleanerOpts, maintenance.WithCacheInvalidator(maintenance.NewRedisInvalidator(rc.Client)))
	}

	if alerts := cfg.Notifications.Alerts; alerts.Enabled && !opts.dryRun {
		publisher, err := aws.NewPublisher(ctx, cfg.Notifications.AWS.Region, alerts.TopicARN)
		if err != nil {
			log.Warn("sns publisher unavailable", map[string]interface{}{"error": err})
		} else {
			cleanerOpts = append(cleanerOpts, maintenance.WithNotifier(publisher))
		}
	}

	cleaner := maintenance.NewCleaner(database.NewSchoolStore(pg.DB), log, cleanerOpts...)
	report, runErr := cleaner.Run(ctx, opts.dryRun)

	if opts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	return runErr
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
