package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/okian/jci/internal/domain/model"
	"github.com/okian/jci/pkg/logger"
	"github.com/okian/jci/pkg/metrics"
)

const defaultMaxList = 10000

type runRecord struct {
	ID         string  `db:"id"`
	StartedAt  int64   `db:"started_at"`
	FinishedAt int64   `db:"finished_at"`
	Rounds     int     `db:"rounds"`
	Tolerance  float64 `db:"tolerance"`
	Regions    int     `db:"regions"`
	Failures   int     `db:"failures"`
	JobRows    int     `db:"job_rows"`
	TaskRows   int     `db:"task_rows"`
}

func (r runRecord) toRun() Run {
	return Run{
		ID:         r.ID,
		StartedAt:  time.UnixMilli(r.StartedAt).UTC(),
		FinishedAt: time.UnixMilli(r.FinishedAt).UTC(),
		Rounds:     r.Rounds,
		Tolerance:  r.Tolerance,
		Regions:    r.Regions,
		Failures:   r.Failures,
		JobRows:    r.JobRows,
		TaskRows:   r.TaskRows,
	}
}

type jobRecord struct {
	RunID      string  `db:"run_id"`
	Seq        int     `db:"seq"`
	JobID      string  `db:"job_id"`
	RegionType string  `db:"region_type"`
	RegionName string  `db:"region_name"`
	JCI        float64 `db:"jci"`
	Wage       float64 `db:"wage"`
	Title      *string `db:"title"`
	Employment *int64  `db:"employment"`
	GroupName  *string `db:"group_name"`
}

func (r jobRecord) toRow() model.JobRow {
	return model.JobRow{
		JobComplexity: model.JobComplexity{
			JobID:  r.JobID,
			JCI:    r.JCI,
			Wage:   r.Wage,
			Region: model.Region{Type: model.RegionType(r.RegionType), Name: r.RegionName},
		},
		Title:      r.Title,
		Employment: r.Employment,
		GroupName:  r.GroupName,
	}
}

type taskRecord struct {
	RunID      string  `db:"run_id"`
	Seq        int     `db:"seq"`
	TaskID     string  `db:"task_id"`
	RegionType string  `db:"region_type"`
	RegionName string  `db:"region_name"`
	TCI        float64 `db:"tci"`
	AvgWage    float64 `db:"avg_wage"`
	Title      *string `db:"title"`
	GroupID    *string `db:"group_id"`
	GroupName  *string `db:"group_name"`
}

func (r taskRecord) toRow() model.TaskRow {
	return model.TaskRow{
		TaskComplexity: model.TaskComplexity{
			TaskID:  r.TaskID,
			TCI:     r.TCI,
			AvgWage: r.AvgWage,
			Region:  model.Region{Type: model.RegionType(r.RegionType), Name: r.RegionName},
		},
		Title:     r.Title,
		GroupID:   r.GroupID,
		GroupName: r.GroupName,
	}
}

// SQLiteStore implements Store on a sqlite database.
type SQLiteStore struct {
	db      *sqlx.DB
	maxList int
	logger  logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. Use ":memory:" for a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one connection: sqlite has a single writer and ":memory:" is per connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, maxList: defaultMaxList, logger: logger.Get().Named("store")}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// SaveRun stores the run and its rows in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, jobs []model.JobRow, tasks []model.TaskRow) (err error) {
	defer observe("save_run", time.Now())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rec := runRecord{
		ID:         run.ID,
		StartedAt:  run.StartedAt.UnixMilli(),
		FinishedAt: run.FinishedAt.UnixMilli(),
		Rounds:     run.Rounds,
		Tolerance:  run.Tolerance,
		Regions:    run.Regions,
		Failures:   run.Failures,
		JobRows:    len(jobs),
		TaskRows:   len(tasks),
	}
	if _, err = tx.NamedExecContext(ctx, insertRun, rec); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	jobStmt, err := tx.PrepareNamedContext(ctx, insertJob)
	if err != nil {
		return fmt.Errorf("prepare job insert: %w", err)
	}
	defer jobStmt.Close() //nolint:errcheck
	for i, j := range jobs {
		r := jobRecord{
			RunID: run.ID, Seq: i, JobID: j.JobID,
			RegionType: string(j.Region.Type), RegionName: j.Region.Name,
			JCI: j.JCI, Wage: j.Wage,
			Title: j.Title, Employment: j.Employment, GroupName: j.GroupName,
		}
		if _, err = jobStmt.ExecContext(ctx, r); err != nil {
			return fmt.Errorf("insert job %s/%s: %w", j.Region, j.JobID, err)
		}
	}

	taskStmt, err := tx.PrepareNamedContext(ctx, insertTask)
	if err != nil {
		return fmt.Errorf("prepare task insert: %w", err)
	}
	defer taskStmt.Close() //nolint:errcheck
	for i, t := range tasks {
		r := taskRecord{
			RunID: run.ID, Seq: i, TaskID: t.TaskID,
			RegionType: string(t.Region.Type), RegionName: t.Region.Name,
			TCI: t.TCI, AvgWage: t.AvgWage,
			Title: t.Title, GroupID: t.GroupID, GroupName: t.GroupName,
		}
		if _, err = taskStmt.ExecContext(ctx, r); err != nil {
			return fmt.Errorf("insert task %s/%s: %w", t.Region, t.TaskID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	metrics.UpdateStoreRows("job_complexity", len(jobs))
	metrics.UpdateStoreRows("task_complexity", len(tasks))
	s.logger.Info(ctx, "run stored",
		logger.String("run_id", run.ID),
		logger.Int("jobs", len(jobs)),
		logger.Int("tasks", len(tasks)),
	)
	return nil
}

func (s *SQLiteStore) latest(ctx context.Context) (runRecord, error) {
	var r runRecord
	err := s.db.GetContext(ctx, &r, `SELECT * FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNoRun
	}
	if err != nil {
		return r, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recent run.
func (s *SQLiteStore) LatestRun(ctx context.Context) (Run, error) {
	defer observe("latest_run", time.Now())
	r, err := s.latest(ctx)
	if err != nil {
		return Run{}, err
	}
	return r.toRun(), nil
}

// where builds the filter clause shared by the listings.
func (s *SQLiteStore) where(runID, idCol string, f Filter) (string, []any) {
	conds := []string{"run_id = ?"}
	args := []any{runID}
	if f.RegionType != "" {
		conds = append(conds, "region_type = ?")
		args = append(args, string(f.RegionType))
	}
	if f.RegionName != "" {
		conds = append(conds, "region_name = ?")
		args = append(args, f.RegionName)
	}
	if f.ID != "" {
		conds = append(conds, idCol+" = ?")
		args = append(args, f.ID)
	}
	return strings.Join(conds, " AND "), args
}

func (s *SQLiteStore) page(f Filter) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 || limit > s.maxList {
		limit = s.maxList
	}
	return limit, max(f.Offset, 0)
}

// Jobs lists job rows of the latest run in output order.
func (s *SQLiteStore) Jobs(ctx context.Context, f Filter) ([]model.JobRow, error) {
	defer observe("jobs", time.Now())
	run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	cond, args := s.where(run.ID, "job_id", f)
	limit, offset := s.page(f)
	var recs []jobRecord
	q := `SELECT * FROM job_complexity WHERE ` + cond + ` ORDER BY seq LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &recs, q, append(args, limit, offset)...); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]model.JobRow, len(recs))
	for i, r := range recs {
		out[i] = r.toRow()
	}
	return out, nil
}

// Tasks lists task rows of the latest run in output order.
func (s *SQLiteStore) Tasks(ctx context.Context, f Filter) ([]model.TaskRow, error) {
	defer observe("tasks", time.Now())
	run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	cond, args := s.where(run.ID, "task_id", f)
	limit, offset := s.page(f)
	var recs []taskRecord
	q := `SELECT * FROM task_complexity WHERE ` + cond + ` ORDER BY seq LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &recs, q, append(args, limit, offset)...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]model.TaskRow, len(recs))
	for i, r := range recs {
		out[i] = r.toRow()
	}
	return out, nil
}

// TopJobs returns the n most complex jobs of a region.
func (s *SQLiteStore) TopJobs(ctx context.Context, region model.Region, n int) ([]Entry, error) {
	defer observe("top_jobs", time.Now())
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	var recs []jobRecord
	err = s.db.SelectContext(ctx, &recs, `
		SELECT * FROM job_complexity
		WHERE run_id = ? AND region_type = ? AND region_name = ?
		ORDER BY jci DESC, job_id ASC
		LIMIT ?`, run.ID, string(region.Type), region.Name, n)
	if err != nil {
		return nil, fmt.Errorf("top jobs %s: %w", region, err)
	}
	out := make([]Entry, len(recs))
	for i, r := range recs {
		out[i] = Entry{Job: r.toRow()}
	}
	assignRanksWithTies(out)
	return out, nil
}

// assignRanksWithTies gives equal JCI values the same rank and the next
// distinct value the next rank. Entries must be sorted by JCI desc.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Job.JCI != entries[i-1].Job.JCI {
			rank++
		}
		entries[i].Rank = rank
	}
}

// Rank returns the rank of one job within a region.
func (s *SQLiteStore) Rank(ctx context.Context, region model.Region, jobID string) (Entry, error) {
	defer observe("rank", time.Now())
	run, err := s.latest(ctx)
	if err != nil {
		return Entry{}, err
	}
	var rec jobRecord
	err = s.db.GetContext(ctx, &rec, `
		SELECT * FROM job_complexity
		WHERE run_id = ? AND region_type = ? AND region_name = ? AND job_id = ?
		ORDER BY seq LIMIT 1`, run.ID, string(region.Type), region.Name, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("job %q in %s: %w", jobID, region, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("rank %s: %w", jobID, err)
	}
	var above int
	err = s.db.GetContext(ctx, &above, `
		SELECT COUNT(DISTINCT jci) FROM job_complexity
		WHERE run_id = ? AND region_type = ? AND region_name = ? AND jci > ?`,
		run.ID, string(region.Type), region.Name, rec.JCI)
	if err != nil {
		return Entry{}, fmt.Errorf("rank %s: %w", jobID, err)
	}
	return Entry{Rank: above + 1, Job: rec.toRow()}, nil
}

// Regions lists the latest run's regions with their row counts.
func (s *SQLiteStore) Regions(ctx context.Context) ([]RegionCount, error) {
	defer observe("regions", time.Now())
	run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	type count struct {
		RegionType string `db:"region_type"`
		RegionName string `db:"region_name"`
		N          int    `db:"n"`
	}
	var jobs, tasks []count
	q := `SELECT region_type, region_name, COUNT(*) AS n FROM %s WHERE run_id = ?
		GROUP BY region_type, region_name ORDER BY MIN(seq)`
	if err := s.db.SelectContext(ctx, &jobs, fmt.Sprintf(q, "job_complexity"), run.ID); err != nil {
		return nil, fmt.Errorf("region catalog: %w", err)
	}
	if err := s.db.SelectContext(ctx, &tasks, fmt.Sprintf(q, "task_complexity"), run.ID); err != nil {
		return nil, fmt.Errorf("region catalog: %w", err)
	}

	taskCount := make(map[model.Region]int, len(tasks))
	for _, c := range tasks {
		taskCount[model.Region{Type: model.RegionType(c.RegionType), Name: c.RegionName}] = c.N
	}
	out := make([]RegionCount, len(jobs))
	for i, c := range jobs {
		r := model.Region{Type: model.RegionType(c.RegionType), Name: c.RegionName}
		out[i] = RegionCount{Region: r, Jobs: c.N, Tasks: taskCount[r]}
	}
	return out, nil
}

// Count returns the number of job rows in the latest run, or 0 without a run.
func (s *SQLiteStore) Count(ctx context.Context) int {
	r, err := s.latest(ctx)
	if err != nil {
		return 0
	}
	return r.JobRows
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
