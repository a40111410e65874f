// Package types contains the JSON shapes served by the HTTP API.
package types

import "time"

// Entry represents a leaderboard entry.
type Entry struct {
	Rank       int     `json:"rank"`
	JobID      string  `json:"job_id"`
	Title      *string `json:"title,omitempty"`
	JCI        float64 `json:"jci"`
	Wage       float64 `json:"wage"`
	RegionType string  `json:"region_type"`
	RegionName string  `json:"region_name"`
}

// Job is one job complexity row.
type Job struct {
	JobID      string  `json:"job_id"`
	JCI        float64 `json:"jci"`
	Wage       float64 `json:"wage"`
	RegionType string  `json:"region_type"`
	RegionName string  `json:"region_name"`
	Title      *string `json:"title"`
	Employment *int64  `json:"employment"`
	GroupName  *string `json:"group_name"`
}

// Task is one task complexity row.
type Task struct {
	TaskID     string  `json:"task_id"`
	TCI        float64 `json:"tci"`
	AvgWage    float64 `json:"avg_wage"`
	RegionType string  `json:"region_type"`
	RegionName string  `json:"region_name"`
	Title      *string `json:"title"`
	GroupID    *string `json:"group_id"`
	GroupName  *string `json:"group_name"`
}

// Region is one entry of the region catalog.
type Region struct {
	Name  string `json:"name"`
	Jobs  int    `json:"jobs"`
	Tasks int    `json:"tasks"`
}

// Catalog lists region types in national, state, metro order and the regions of each.
type Catalog struct {
	RegionTypes []string            `json:"region_types"`
	Regions     map[string][]Region `json:"regions"`
}

// Stats summarizes the latest run.
type Stats struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Rounds     int       `json:"rounds"`
	Regions    int       `json:"regions"`
	Failures   int       `json:"failures"`
	JobRows    int       `json:"job_rows"`
	TaskRows   int       `json:"task_rows"`
}
