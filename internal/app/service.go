// Package service runs the complexity pipeline and serves reads over the
// stored results for the HTTP API.
package service

import (
	"context"
	"runtime"

	repository "github.com/okian/jci/internal/adapters/repository"
	"github.com/okian/jci/internal/domain/complexity"
	"github.com/okian/jci/pkg/logger"
)

// Service wires loading, computation, output and storage.
type Service struct {
	// Configuration
	workerCount int
	queueSize   int
	rounds      int
	tolerance   float64
	failFast    bool
	selection   Selection
	outputDir   string
	compress    bool

	// store is optional; without it runs are not persisted and reads fail.
	store repository.Store

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of region workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the region queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRounds sets the number of iteration rounds.
func WithRounds(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.rounds = n
		}
	}
}

// WithTolerance enables early stopping. 0 keeps the fixed round count.
func WithTolerance(tol float64) Option {
	return func(s *Service) {
		if tol >= 0 {
			s.tolerance = tol
		}
	}
}

// WithFailFast aborts a run on the first region error.
func WithFailFast(enabled bool) Option {
	return func(s *Service) {
		s.failFast = enabled
	}
}

// WithSelection sets which regions are computed.
func WithSelection(sel Selection) Option {
	return func(s *Service) {
		s.selection = sel
	}
}

// WithOutput sets the directory for output tables and the manifest. An empty
// dir disables file output.
func WithOutput(dir string, compress bool) Option {
	return func(s *Service) {
		s.outputDir = dir
		s.compress = compress
	}
}

// WithStore sets the result store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		rounds:      complexity.DefaultRounds,
		selection:   DefaultSelection(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

func (s *Service) engineOptions() []complexity.Option {
	opts := []complexity.Option{complexity.WithRounds(s.rounds)}
	if s.tolerance > 0 {
		opts = append(opts, complexity.WithTolerance(s.tolerance))
	}
	return opts
}

// Close releases the store.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Ready reports whether the service can serve reads.
func (s *Service) Ready(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	_, err := s.store.LatestRun(ctx)
	return err == nil
}
