package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	service "github.com/okian/jci/internal/app"
	"github.com/okian/jci/internal/config"
	"github.com/okian/jci/pkg/logger"
)

// runFlags override configuration values when set on the command line.
type runFlags struct {
	jobs        []string
	relatedness string
	jobMeta     string
	taskMeta    string
	output      string
	compress    bool
	database    string
	rounds      int
	tolerance   float64
	failFast    bool
	workers     int
	states      []string
	metros      []string
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.jobs, "jobs", nil, "job tables (CSV, optionally .gz); repeatable")
	fs.StringVar(&f.relatedness, "relatedness", "", "job-task relatedness table")
	fs.StringVar(&f.jobMeta, "job-meta", "", "job metadata table")
	fs.StringVar(&f.taskMeta, "task-meta", "", "task metadata table")
	fs.StringVar(&f.output, "output", "", "output directory; empty string disables file output")
	fs.BoolVar(&f.compress, "compress", false, "gzip output tables")
	fs.StringVar(&f.database, "db", "", "sqlite result store; empty string disables storing")
	fs.IntVar(&f.rounds, "rounds", 0, "iteration rounds")
	fs.Float64Var(&f.tolerance, "tolerance", 0, "stop early once indices move less than this (changes results)")
	fs.BoolVar(&f.failFast, "fail-fast", false, "abort on the first region error")
	fs.IntVar(&f.workers, "workers", 0, "region workers")
	fs.StringSliceVar(&f.states, "states", nil, "states to compute, in order")
	fs.StringSliceVar(&f.metros, "metros", nil, "metros to compute, in order")
}

// apply copies every flag set on the command line into cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	set := map[string]func(){
		"jobs":        func() { cfg.JobsPaths = f.jobs },
		"relatedness": func() { cfg.RelatednessPath = f.relatedness },
		"job-meta":    func() { cfg.JobMetaPath = f.jobMeta },
		"task-meta":   func() { cfg.TaskMetaPath = f.taskMeta },
		"output":      func() { cfg.OutputDir = f.output },
		"compress":    func() { cfg.Compress = f.compress },
		"db":          func() { cfg.DatabasePath = f.database },
		"rounds":      func() { cfg.Rounds = f.rounds },
		"tolerance":   func() { cfg.Tolerance = f.tolerance },
		"fail-fast":   func() { cfg.FailFast = f.failFast },
		"workers":     func() { cfg.WorkerCount = f.workers },
		"states":      func() { cfg.States = f.states },
		"metros":      func() { cfg.Metros = f.metros },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if fn, ok := set[fl.Name]; ok {
			fn()
		}
	})
	return cfg.Validate()
}

func newRunCommand(c *cli) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute complexity indices for every selected region",
		Long: `Run loads the job and relatedness tables, computes every selected region
on a worker pool, writes job_complexity.csv, task_complexity.csv and
manifest.yaml to the output directory, and stores the run for the read API.

A region that fails is logged and skipped unless --fail-fast is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.apply(cmd.Flags(), c.cfg); err != nil {
				return err
			}
			_, err := runPipeline(cmd.Context(), c.cfg, logger.Get())
			return err
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// runPipeline executes one run with its own store handle.
func runPipeline(ctx context.Context, cfg *config.Config, log logger.Logger) (service.Result, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return service.Result{}, err
	}
	svc := newService(cfg, store, log)
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error(ctx, "close store", logger.Error(err))
		}
	}()

	res, err := svc.Execute(ctx, inputs(cfg))
	if err != nil {
		return service.Result{}, fmt.Errorf("run failed: %w", err)
	}
	for _, f := range res.Failures {
		log.Warn(ctx, "region skipped",
			logger.String("region_type", string(f.Region.Type)),
			logger.String("region_name", f.Region.Name),
			logger.Error(f.Err),
		)
	}
	return res, nil
}
