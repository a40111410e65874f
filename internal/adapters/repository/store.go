// Package repository stores computed complexity runs and serves reads over
// the latest one.
package repository

import (
	"context"
	"time"

	"github.com/okian/jci/internal/domain/model"
)

// Run describes one stored pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Rounds     int
	Tolerance  float64
	Regions    int
	Failures   int
	JobRows    int
	TaskRows   int
}

// Entry is a ranked job row.
type Entry struct {
	Rank int
	Job  model.JobRow
}

// Filter narrows a row listing. Zero fields match everything.
type Filter struct {
	RegionType model.RegionType
	RegionName string
	ID         string // job_id or task_id
	Limit      int
	Offset     int
}

// RegionCount is one entry of the region catalog.
type RegionCount struct {
	Region model.Region
	Jobs   int
	Tasks  int
}

// Store provides read/write access to computed runs. Reads target the most
// recently finished run.
type Store interface {
	// SaveRun stores a run and its rows atomically.
	SaveRun(ctx context.Context, run Run, jobs []model.JobRow, tasks []model.TaskRow) error

	// LatestRun returns the most recent run, or ErrNotFound.
	LatestRun(ctx context.Context) (Run, error)

	Jobs(ctx context.Context, f Filter) ([]model.JobRow, error)
	Tasks(ctx context.Context, f Filter) ([]model.TaskRow, error)

	// TopJobs returns the n most complex jobs of a region ordered by JCI
	// desc, then job_id. Equal JCI values share a rank.
	TopJobs(ctx context.Context, region model.Region, n int) ([]Entry, error)

	// Rank returns a job's rank within a region. Returns ErrNotFound if the
	// job is not in the region.
	Rank(ctx context.Context, region model.Region, jobID string) (Entry, error)

	// Regions lists the regions of the latest run in output order.
	Regions(ctx context.Context) ([]RegionCount, error)

	// Count returns the number of job rows in the latest run.
	Count(ctx context.Context) int

	Close() error
}
