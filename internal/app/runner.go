package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/jci/internal/adapters/mq/queue"
	"github.com/okian/jci/internal/adapters/mq/worker"
	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/pkg/logger"
	"github.com/okian/jci/pkg/metrics"
)

// Failure records a region that was skipped.
type Failure struct {
	Region model.Region
	Err    error
}

// Report is the combined output of a region run. Results keep the input
// order of the scopes and leave out failed regions.
type Report struct {
	Results  []model.RegionResult
	Failures []Failure
}

// Jobs concatenates the job rows of every result in order.
func (r Report) Jobs() []model.JobComplexity {
	var out []model.JobComplexity
	for _, res := range r.Results {
		out = append(out, res.Jobs...)
	}
	return out
}

// Tasks concatenates the task rows of every result in order.
func (r Report) Tasks() []model.TaskComplexity {
	var out []model.TaskComplexity
	for _, res := range r.Results {
		out = append(out, res.Tasks...)
	}
	return out
}

// scopeComputer rejects explicit regions that have no job rows before
// handing the scope to the engine.
type scopeComputer struct {
	next worker.Computer
}

func (c scopeComputer) Compute(ctx context.Context, scope model.RegionScope) (model.RegionResult, error) { //nolint:gocritic // hugeParam: matches worker.Computer
	if scope.Explicit && len(scope.Jobs) == 0 {
		region := scope.Region
		return model.RegionResult{Region: region}, &model.MissingInputError{Table: "jobs", Region: &region}
	}
	return c.next.Compute(ctx, scope)
}

// Runner computes region scopes on a worker pool.
type Runner struct {
	computer  worker.Computer
	workers   int
	queueSize int
	failFast  bool
	logger    logger.Logger
}

// NewRunner creates a runner over c. workers below 1 uses one worker per CPU.
func NewRunner(c worker.Computer, workers, queueSize int, failFast bool, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Get()
	}
	return &Runner{
		computer:  scopeComputer{next: c},
		workers:   workers,
		queueSize: queueSize,
		failFast:  failFast,
		logger:    log,
	}
}

// Run computes every scope. A failed region is logged and skipped unless the
// runner is fail fast, in which case the first failure aborts the run.
func (r *Runner) Run(ctx context.Context, scopes []model.RegionScope) (Report, error) {
	qopts := []queue.Option{}
	if r.queueSize > 0 {
		qopts = append(qopts, queue.WithCapacity(r.queueSize))
	}
	q := queue.NewInMemoryQueue(qopts...)
	pool := worker.NewPool(r.workers, q, r.computer, worker.WithName("region"), worker.WithLogger(r.logger))

	var (
		mu       sync.Mutex
		outcomes = make([]*worker.Outcome, len(scopes))
	)
	handle := func(ctx context.Context, o worker.Outcome) error { //nolint:gocritic // hugeParam: matches worker.Handler
		r.observe(ctx, o)
		if o.Err != nil && r.failFast {
			return fmt.Errorf("region %s: %w", o.Scope.Region, o.Err)
		}
		mu.Lock()
		outcomes[o.Index] = &o
		mu.Unlock()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() { _ = q.Close() }()
		for i, s := range scopes {
			if err := q.Push(gctx, queue.Task{Index: i, Scope: s}); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		return pool.Run(gctx, handle)
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	var rep Report
	for i, o := range outcomes {
		if o == nil {
			return Report{}, fmt.Errorf("region %s: no result", scopes[i].Region)
		}
		if o.Err != nil {
			rep.Failures = append(rep.Failures, Failure{Region: o.Scope.Region, Err: o.Err})
			continue
		}
		rep.Results = append(rep.Results, o.Result)
	}
	return rep, nil
}

func (r *Runner) observe(ctx context.Context, o worker.Outcome) { //nolint:gocritic // hugeParam: read only
	region := o.Scope.Region
	regionType := string(region.Type)
	latencyMs := float64(o.Elapsed.Microseconds()) / 1000

	if o.Err != nil {
		metrics.RecordRegionFailed(regionType, failureReason(o.Err))
		r.logger.Error(ctx, "region failed",
			logger.String("region_type", regionType),
			logger.String("region_name", region.Name),
			logger.Error(o.Err),
		)
		return
	}

	st := o.Result.Stats
	metrics.RecordRegionComputed(regionType, st.Jobs, st.Tasks, st.NonZeros, st.Rounds, latencyMs)
	if o.Result.Degenerate {
		metrics.RecordRegionDegenerate(regionType)
		r.logger.Warn(ctx, "degenerate region",
			logger.String("region_type", regionType),
			logger.String("region_name", region.Name),
			logger.Int("jobs", st.Jobs),
			logger.Int("tasks", st.Tasks),
		)
		return
	}
	r.logger.Info(ctx, "region computed",
		logger.String("region_type", regionType),
		logger.String("region_name", region.Name),
		logger.Int("jobs", st.Jobs),
		logger.Int("tasks", st.Tasks),
		logger.Int("nonzeros", st.NonZeros),
		logger.Int("rounds", st.Rounds),
		logger.Duration("elapsed", o.Elapsed),
	)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrMissingInput):
		return "missing_input"
	case errors.Is(err, model.ErrMissingWage):
		return "missing_wage"
	case errors.Is(err, model.ErrInvalidWeight):
		return "invalid_weight"
	case errors.Is(err, model.ErrSchema):
		return "schema"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
