package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/jci/internal/domain/model"
)

// Table names used in errors.
const (
	JobsTable        = "jobs"
	RelatednessTable = "relatedness"
	JobMetaTable     = "job_metadata"
	TaskMetaTable    = "task_metadata"
)

// Column names.
const (
	ColJobID      = "job_id"
	ColTaskID     = "task_id"
	ColWage       = "wage"
	ColEmployment = "employment"
	ColRegionType = "region_type"
	ColRegionName = "region_name"
	ColWeight     = "weight"
	ColTitle      = "title"
	ColGroupID    = "group_id"
	ColGroupName  = "group_name"
)

// suppressed reports whether a cell uses one of the upstream markers for a
// withheld or unavailable estimate.
func suppressed(s string) bool {
	switch s {
	case "", "*", "**", "#":
		return true
	}
	return false
}

// parseWage returns NaN for a suppressed wage. Thousands separators are allowed.
func parseWage(s string) (float64, error) {
	if suppressed(s) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: wage %q", ErrInvalidValue, s)
	}
	return v, nil
}

func parseEmployment(s string) (int64, error) {
	if suppressed(s) {
		return model.UnknownEmployment, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: employment %q", ErrInvalidValue, s)
	}
	return int64(f), nil
}

// LoadJobs reads one or more job tables and concatenates their records in
// file order. Each file may hold any mix of regions.
func LoadJobs(paths ...string) ([]model.JobRecord, error) {
	if len(paths) == 0 {
		return nil, &model.MissingInputError{Table: JobsTable}
	}
	var out []model.JobRecord
	for _, p := range paths {
		recs, err := loadJobs(p)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	if len(out) == 0 {
		return nil, &model.MissingInputError{Table: JobsTable}
	}
	return out, nil
}

func loadJobs(path string) ([]model.JobRecord, error) {
	t, err := readTable(JobsTable, path, []string{ColJobID, ColWage, ColRegionType, ColRegionName})
	if err != nil {
		return nil, err
	}
	out := make([]model.JobRecord, 0, len(t.rows))
	for i, r := range t.rows {
		id := t.get(r, ColJobID)
		if id == "" {
			return nil, t.rowErr(i, ErrEmptyID)
		}
		wage, err := parseWage(t.get(r, ColWage))
		if err != nil {
			return nil, t.rowErr(i, err)
		}
		emp, err := parseEmployment(t.get(r, ColEmployment))
		if err != nil {
			return nil, t.rowErr(i, err)
		}
		rt, err := model.ParseRegionType(t.get(r, ColRegionType))
		if err != nil {
			return nil, t.rowErr(i, fmt.Errorf("%w: %w", ErrInvalidValue, err))
		}
		out = append(out, model.JobRecord{
			JobID:      id,
			Wage:       wage,
			Employment: emp,
			Region:     model.Region{Type: rt, Name: t.get(r, ColRegionName)},
		})
	}
	return out, nil
}

// LoadRelatedness reads the shared job-task relatedness table. Weights are
// parsed as written; their validity is checked when a region's matrix is built.
func LoadRelatedness(path string) ([]model.TaskRelatedness, error) {
	t, err := readTable(RelatednessTable, path, []string{ColJobID, ColTaskID, ColWeight})
	if err != nil {
		return nil, err
	}
	out := make([]model.TaskRelatedness, 0, len(t.rows))
	for i, r := range t.rows {
		job, task := t.get(r, ColJobID), t.get(r, ColTaskID)
		if job == "" || task == "" {
			return nil, t.rowErr(i, ErrEmptyID)
		}
		w, err := strconv.ParseFloat(t.get(r, ColWeight), 64)
		if err != nil {
			return nil, t.rowErr(i, fmt.Errorf("%w: weight %q", ErrInvalidValue, t.get(r, ColWeight)))
		}
		out = append(out, model.TaskRelatedness{JobID: job, TaskID: task, Weight: w})
	}
	if len(out) == 0 {
		return nil, &model.MissingInputError{Table: RelatednessTable}
	}
	return out, nil
}

// LoadJobMeta reads job metadata. Rows without region columns (or with blank
// ones) apply to every region.
func LoadJobMeta(path string) ([]model.JobMeta, error) {
	t, err := readTable(JobMetaTable, path, []string{ColJobID, ColTitle})
	if err != nil {
		return nil, err
	}
	out := make([]model.JobMeta, 0, len(t.rows))
	for i, r := range t.rows {
		id := t.get(r, ColJobID)
		if id == "" {
			return nil, t.rowErr(i, ErrEmptyID)
		}
		m := model.JobMeta{JobID: id, Title: t.get(r, ColTitle), GroupName: t.get(r, ColGroupName)}
		if rt := t.get(r, ColRegionType); rt != "" {
			typ, err := model.ParseRegionType(rt)
			if err != nil {
				return nil, t.rowErr(i, fmt.Errorf("%w: %w", ErrInvalidValue, err))
			}
			m.Region = model.Region{Type: typ, Name: t.get(r, ColRegionName)}
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadTaskMeta reads task metadata.
func LoadTaskMeta(path string) ([]model.TaskMeta, error) {
	t, err := readTable(TaskMetaTable, path, []string{ColTaskID, ColTitle})
	if err != nil {
		return nil, err
	}
	out := make([]model.TaskMeta, 0, len(t.rows))
	for i, r := range t.rows {
		id := t.get(r, ColTaskID)
		if id == "" {
			return nil, t.rowErr(i, ErrEmptyID)
		}
		out = append(out, model.TaskMeta{
			TaskID:    id,
			Title:     t.get(r, ColTitle),
			GroupID:   t.get(r, ColGroupID),
			GroupName: t.get(r, ColGroupName),
		})
	}
	return out, nil
}
