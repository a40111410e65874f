// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// RegionType classifies the geographic scope of a job table.
type RegionType string

// Supported region types.
const (
	National RegionType = "National"
	State    RegionType = "State"
	Metro    RegionType = "Metro"
)

// UnknownEmployment marks a job record whose employment count was not reported.
const UnknownEmployment int64 = -1

// ParseRegionType maps the spellings found in upstream tables onto a RegionType.
func ParseRegionType(s string) (RegionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "national", "us", "nation":
		return National, nil
	case "state":
		return State, nil
	case "metro", "metropolitan", "msa":
		return Metro, nil
	default:
		return "", fmt.Errorf("unknown region type %q", s)
	}
}

// Rank orders region types national, state, metro.
func (t RegionType) Rank() int {
	switch t {
	case National:
		return 0
	case State:
		return 1
	case Metro:
		return 2
	default:
		return 3
	}
}

// Region identifies one region scope.
type Region struct {
	Type RegionType
	Name string
}

func (r Region) String() string {
	return string(r.Type) + "/" + r.Name
}

// JobRecord is one row of a region's job table.
type JobRecord struct {
	JobID      string // SOC code
	Wage       float64
	Employment int64
	Region     Region
}

// TaskRelatedness is one (job, task, weight) triplet. The table is shared by all regions.
type TaskRelatedness struct {
	JobID  string
	TaskID string
	Weight float64 // RCA value, >= 0
}

// RegionScope is the unit of work for the region runner.
type RegionScope struct {
	Region Region
	Jobs   []JobRecord

	// Explicit marks a region the caller asked for by name. An explicit region
	// without job rows is an upstream failure rather than an empty contribution.
	Explicit bool
}

// JobComplexity is a computed job-side row.
type JobComplexity struct {
	JobID  string
	JCI    float64
	Wage   float64
	Region Region
}

// TaskComplexity is a computed task-side row. AvgWage is the iteration seed.
type TaskComplexity struct {
	TaskID  string
	TCI     float64
	AvgWage float64
	Region  Region
}

// RegionStats describes the matrix a region was computed from.
type RegionStats struct {
	Jobs     int
	Tasks    int
	NonZeros int
	Rounds   int
}

// RegionResult is the output of one region computation.
type RegionResult struct {
	Region     Region
	Jobs       []JobComplexity
	Tasks      []TaskComplexity
	Stats      RegionStats
	Degenerate bool // empty filtered matrix
}

// JobMeta carries descriptive job fields. Region is zero for region-independent metadata.
type JobMeta struct {
	JobID     string
	Title     string
	GroupName string
	Region    Region
}

// TaskMeta carries descriptive task fields.
type TaskMeta struct {
	TaskID    string
	Title     string
	GroupID   string
	GroupName string
}

// JobRow is a job complexity row joined with metadata. Nil pointers mean no metadata match.
type JobRow struct {
	JobComplexity
	Title      *string
	Employment *int64
	GroupName  *string
}

// TaskRow is a task complexity row joined with metadata.
type TaskRow struct {
	TaskComplexity
	Title     *string
	GroupID   *string
	GroupName *string
}
