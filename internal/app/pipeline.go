package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/jci/internal/adapters/repository"
	"github.com/okian/jci/internal/adapters/tabular"
	"github.com/okian/jci/internal/domain/assembler"
	"github.com/okian/jci/internal/domain/complexity"
	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/pkg/logger"
	"github.com/okian/jci/pkg/metrics"
)

// Inputs names the input tables of a run. Metadata paths are optional.
type Inputs struct {
	JobsPaths       []string
	RelatednessPath string
	JobMetaPath     string
	TaskMetaPath    string
}

// Tables holds loaded input tables.
type Tables struct {
	Jobs        []model.JobRecord
	Relatedness []model.TaskRelatedness
	JobMeta     []model.JobMeta
	TaskMeta    []model.TaskMeta
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Jobs     []model.JobRow
	Tasks    []model.TaskRow
	Regions  []model.RegionResult
	Failures []Failure

	// Output files, empty when file output is disabled.
	JobsPath     string
	TasksPath    string
	ManifestPath string
}

// Load reads the input tables named by in.
func Load(in Inputs) (Tables, error) {
	var (
		t   Tables
		err error
	)
	if t.Relatedness, err = tabular.LoadRelatedness(in.RelatednessPath); err != nil {
		return Tables{}, err
	}
	if t.Jobs, err = tabular.LoadJobs(in.JobsPaths...); err != nil {
		return Tables{}, err
	}
	if in.JobMetaPath != "" {
		if t.JobMeta, err = tabular.LoadJobMeta(in.JobMetaPath); err != nil {
			return Tables{}, err
		}
	}
	if in.TaskMetaPath != "" {
		if t.TaskMeta, err = tabular.LoadTaskMeta(in.TaskMetaPath); err != nil {
			return Tables{}, err
		}
	}
	return t, nil
}

// Compute runs every selected region over loaded tables and joins metadata.
// It writes nothing.
func (s *Service) Compute(ctx context.Context, t Tables) (Result, error) { //nolint:gocritic // hugeParam: read only
	res := Result{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}

	engine, err := complexity.NewEngine(t.Relatedness, s.engineOptions()...)
	if err != nil {
		return Result{}, err
	}
	scopes := BuildScopes(t.Jobs, s.selection)
	s.logger.Info(ctx, "computing regions",
		logger.String("run_id", res.RunID),
		logger.Int("regions", len(scopes)),
		logger.Int("relatedness_jobs", engine.Jobs()),
		logger.Int("relatedness_tasks", engine.Tasks()),
		logger.Int("workers", s.workerCount),
	)

	runner := NewRunner(engine, s.workerCount, s.queueSize, s.failFast, s.logger.Named("runner"))
	rep, err := runner.Run(ctx, scopes)
	if err != nil {
		return Result{}, err
	}

	var scoped []model.JobRecord
	for _, sc := range scopes {
		scoped = append(scoped, sc.Jobs...)
	}
	asm := assembler.New(scoped, s.selection.CanonicalJobMeta(t.JobMeta), t.TaskMeta)
	res.Jobs = asm.Jobs(rep.Jobs())
	res.Tasks = asm.Tasks(rep.Tasks())
	res.Regions = rep.Results
	res.Failures = rep.Failures
	res.FinishedAt = time.Now().UTC()
	return res, nil
}

// Execute loads inputs, computes every region, writes the output tables and
// manifest, and stores the run.
func (s *Service) Execute(ctx context.Context, in Inputs) (Result, error) {
	start := time.Now()
	res, err := s.execute(ctx, in)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordRun("failure", latencyMs)
		metrics.RecordErrorByComponent("pipeline", failureReason(err))
		return Result{}, err
	}
	metrics.RecordRun("success", latencyMs)
	metrics.UpdateOutputRows("jobs", len(res.Jobs))
	metrics.UpdateOutputRows("tasks", len(res.Tasks))

	s.logger.Info(ctx, "run finished",
		logger.String("run_id", res.RunID),
		logger.Int("regions", len(res.Regions)),
		logger.Int("failures", len(res.Failures)),
		logger.Int("job_rows", len(res.Jobs)),
		logger.Int("task_rows", len(res.Tasks)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (s *Service) execute(ctx context.Context, in Inputs) (Result, error) {
	tables, err := Load(in)
	if err != nil {
		return Result{}, fmt.Errorf("load inputs: %w", err)
	}
	res, err := s.Compute(ctx, tables)
	if err != nil {
		return Result{}, err
	}
	if err := s.writeOutputs(&res); err != nil {
		return Result{}, err
	}
	if err := s.save(ctx, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) writeOutputs(res *Result) error {
	if s.outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	res.JobsPath = tabular.OutputPath(s.outputDir, tabular.JobOutput, s.compress)
	res.TasksPath = tabular.OutputPath(s.outputDir, tabular.TaskOutput, s.compress)
	res.ManifestPath = filepath.Join(s.outputDir, tabular.ManifestOutput)

	if err := tabular.WriteJobs(res.JobsPath, res.Jobs); err != nil {
		return err
	}
	if err := tabular.WriteTasks(res.TasksPath, res.Tasks); err != nil {
		return err
	}
	return tabular.WriteManifest(res.ManifestPath, s.manifest(res))
}

func (s *Service) manifest(res *Result) tabular.Manifest {
	m := tabular.Manifest{
		RunID:     res.RunID,
		StartedAt: res.StartedAt,
		Duration:  res.FinishedAt.Sub(res.StartedAt).String(),
		Rounds:    s.rounds,
		Tolerance: s.tolerance,
		Outputs: tabular.ManifestOutputs{
			Jobs:     filepath.Base(res.JobsPath),
			Tasks:    filepath.Base(res.TasksPath),
			JobRows:  len(res.Jobs),
			TaskRows: len(res.Tasks),
		},
	}
	for _, r := range res.Regions {
		m.Regions = append(m.Regions, tabular.ManifestRegion{
			Type:       string(r.Region.Type),
			Name:       r.Region.Name,
			Jobs:       r.Stats.Jobs,
			Tasks:      r.Stats.Tasks,
			NonZeros:   r.Stats.NonZeros,
			Rounds:     r.Stats.Rounds,
			Degenerate: r.Degenerate,
		})
	}
	for _, f := range res.Failures {
		m.Failures = append(m.Failures, tabular.ManifestFailure{
			Type:  string(f.Region.Type),
			Name:  f.Region.Name,
			Error: f.Err.Error(),
		})
	}
	return m
}

func (s *Service) save(ctx context.Context, res *Result) error {
	if s.store == nil {
		return nil
	}
	run := repository.Run{
		ID:         res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Rounds:     s.rounds,
		Tolerance:  s.tolerance,
		Regions:    len(res.Regions),
		Failures:   len(res.Failures),
		JobRows:    len(res.Jobs),
		TaskRows:   len(res.Tasks),
	}
	if err := s.store.SaveRun(ctx, run, res.Jobs, res.Tasks); err != nil {
		return fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	return nil
}
