package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	repository "github.com/okian/jci/internal/adapters/repository"
	service "github.com/okian/jci/internal/app"
	"github.com/okian/jci/internal/config"
	"github.com/okian/jci/pkg/logger"
)

var version = "dev"

// cli carries state shared by subcommands once the root command has loaded
// configuration.
type cli struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "jci",
		Short: "Job and task complexity indices from wages and task relatedness",
		Long: `jci computes a Job Complexity Index for every job and a Task Complexity
Index for every task, per region, from job wages and a job-task relatedness
table. Results are written as tables and stored for the read API.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (overrides JCI_CONFIG)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newRunCommand(c))
	cmd.AddCommand(newServeCommand(c))
	return cmd
}

// setup loads configuration and initializes logging.
func (c *cli) setup(ctx context.Context) error {
	path := c.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.LoadFrom(ctx, path)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithJSON(cfg.LogJSON)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// openStore opens the configured result store, or returns nil when storing
// is disabled.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.DatabasePath == "" {
		return nil, nil //nolint:nilnil // no store configured
	}
	store, err := repository.NewSQLiteStore(ctx, cfg.DatabasePath,
		repository.WithLogger(log.Named("store")),
		repository.WithMaxListLimit(cfg.MaxLeaderboardLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DatabasePath, err)
	}
	return store, nil
}

// newService builds the service from configuration.
func newService(cfg *config.Config, store repository.Store, log logger.Logger) *service.Service {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithRounds(cfg.Rounds),
		service.WithTolerance(cfg.Tolerance),
		service.WithFailFast(cfg.FailFast),
		service.WithSelection(service.Selection{
			IncludeNational: cfg.IncludeNational,
			NationalName:    cfg.NationalName,
			States:          cfg.States,
			Metros:          cfg.Metros,
			MaxStates:       cfg.MaxStates,
			MaxMetros:       cfg.MaxMetros,
		}),
		service.WithOutput(cfg.OutputDir, cfg.Compress),
	}
	if store != nil {
		opts = append(opts, service.WithStore(store))
	}
	return service.New(opts...)
}

func inputs(cfg *config.Config) service.Inputs {
	return service.Inputs{
		JobsPaths:       cfg.JobsPaths,
		RelatednessPath: cfg.RelatednessPath,
		JobMetaPath:     cfg.JobMetaPath,
		TaskMetaPath:    cfg.TaskMetaPath,
	}
}

func execute() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return newRootCommand().ExecuteContext(ctx)
}
