// Package worker computes queued region tasks in parallel.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/jci/internal/adapters/mq/queue"
	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/pkg/logger"
	"github.com/okian/jci/pkg/metrics"
)

// Computer computes one region scope.
type Computer interface {
	Compute(ctx context.Context, scope model.RegionScope) (model.RegionResult, error)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
}

// Outcome is the result of one task. Err is set when the computation failed.
type Outcome struct {
	Index   int
	Scope   model.RegionScope
	Result  model.RegionResult
	Err     error
	Elapsed time.Duration
}

// Handler receives outcomes. It is called from several workers at once; a
// non-nil return cancels the remaining work.
type Handler func(ctx context.Context, o Outcome) error

// Worker pulls tasks from a shared channel and computes them.
type Worker struct {
	name     string
	computer Computer
	logger   logger.Logger
}

func newWorker(name string, c Computer, log logger.Logger) *Worker {
	return &Worker{name: name, computer: c, logger: log.Named(name)}
}

// Run processes tasks until the channel closes, ctx is done or handle fails.
func (w *Worker) Run(ctx context.Context, tasks <-chan queue.Task, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-tasks:
			if !ok {
				// the forwarder also closes the channel on cancellation
				return ctx.Err()
			}
			if err := handle(ctx, w.process(ctx, t)); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, t queue.Task) Outcome { //nolint:gocritic // hugeParam: task received by value from the channel
	metrics.AddWorkerBusy(1)
	start := time.Now()
	defer func() {
		metrics.AddWorkerBusy(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	res, err := w.computer.Compute(ctx, t.Scope)
	o := Outcome{Index: t.Index, Scope: t.Scope, Result: res, Err: err, Elapsed: time.Since(start)}
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Debug(ctx, "region task failed",
			logger.Int("index", t.Index),
			logger.String("region", t.Scope.Region.String()),
			logger.Error(err),
		)
	}
	return o
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	name    string
	logger  logger.Logger
}

// NewPool creates a pool of size workers. A size below 1 uses one worker per CPU.
func NewPool(size int, q Queue, c Computer, opts ...Option) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		queue:  q,
		name:   "worker",
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.workers = make([]*Worker, size)
	for i := range p.workers {
		p.workers[i] = newWorker(p.name+"-"+strconv.Itoa(i), c, p.logger)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Run starts every worker and blocks until the queue is closed and drained,
// ctx is cancelled, or a handler returns an error. The first error is returned.
func (p *Pool) Run(ctx context.Context, handle Handler) error {
	g, gctx := errgroup.WithContext(ctx)
	tasks := p.queue.Dequeue(gctx)

	metrics.UpdateWorkerActiveCount(len(p.workers))
	defer metrics.UpdateWorkerActiveCount(0)

	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			return w.Run(gctx, tasks, handle)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s pool: %w", p.name, err)
	}
	return nil
}
