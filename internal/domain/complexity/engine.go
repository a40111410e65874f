package complexity

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/jci/internal/domain/model"
)

// Engine computes complexity for any number of regions over one relatedness
// table. The table is interned once and only read afterwards, so Compute is
// safe for concurrent use.
type Engine struct {
	idx  *index
	opts []Option
}

// NewEngine prepares rel for repeated region computations.
func NewEngine(rel []model.TaskRelatedness, opts ...Option) (*Engine, error) {
	if len(rel) == 0 {
		return nil, &model.MissingInputError{Table: "relatedness"}
	}
	return &Engine{idx: newIndex(rel), opts: opts}, nil
}

// Tasks returns the number of distinct tasks in the relatedness table.
func (e *Engine) Tasks() int { return len(e.idx.taskIDs) }

// Jobs returns the number of distinct jobs in the relatedness table.
func (e *Engine) Jobs() int { return len(e.idx.jobIDs) }

// Matrix builds the relatedness matrix restricted to the given job records.
func (e *Engine) Matrix(jobs []model.JobRecord) (*Matrix, error) {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.JobID
	}
	return e.idx.build(e.idx.scope(ids))
}

// Compute runs the full computation for one region scope. A scope whose
// filtered matrix is empty returns an empty, degenerate result.
func (e *Engine) Compute(ctx context.Context, scope model.RegionScope) (model.RegionResult, error) {
	res := model.RegionResult{Region: scope.Region}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("compute %s: %w", scope.Region, err)
	}

	m, err := e.Matrix(scope.Jobs)
	if err != nil {
		return res, fmt.Errorf("build matrix for %s: %w", scope.Region, err)
	}
	res.Stats = model.RegionStats{Jobs: m.Rows(), Tasks: m.Cols(), NonZeros: m.NonZeros()}
	if m.Rows() == 0 || m.Cols() == 0 {
		res.Degenerate = true
		return res, nil
	}

	wages, err := alignWages(m, scope)
	if err != nil {
		return res, err
	}

	nj, nt := Degrees(m)
	seed := SeedTasks(m, wages, nt)
	out := Iterate(m, nj, nt, wages, seed, e.opts...)
	res.Stats.Rounds = out.Rounds

	res.Jobs = make([]model.JobComplexity, m.Rows())
	for i, id := range m.jobs {
		res.Jobs[i] = model.JobComplexity{JobID: id, JCI: out.JCI[i], Wage: wages[i], Region: scope.Region}
	}
	res.Tasks = make([]model.TaskComplexity, m.Cols())
	for t, id := range m.tasks {
		res.Tasks[t] = model.TaskComplexity{TaskID: id, TCI: out.TCI[t], AvgWage: seed[t], Region: scope.Region}
	}
	return res, nil
}

// alignWages orders the scope's wages by matrix row. The first record of a
// job wins when a region lists it more than once.
func alignWages(m *Matrix, scope model.RegionScope) ([]float64, error) {
	byJob := make(map[string]float64, len(scope.Jobs))
	for _, j := range scope.Jobs {
		if _, ok := byJob[j.JobID]; !ok {
			byJob[j.JobID] = j.Wage
		}
	}
	wages := make([]float64, m.Rows())
	for i, id := range m.jobs {
		w, ok := byJob[id]
		if !ok || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, &model.MissingWageError{JobID: id, Region: scope.Region}
		}
		wages[i] = w
	}
	return wages, nil
}
