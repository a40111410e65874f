// Package complexity computes the job complexity index (JCI) and the task
// complexity index (TCI) over a sparse job-by-task relatedness matrix.
package complexity

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/jci/internal/domain/model"
)

// Matrix is a job-by-task relatedness matrix in compressed sparse row form.
//
// Rows follow the first appearance of each job in the filtered triplets and
// columns the first appearance of each task. Column indices ascend within a
// row. Explicit zero weights are not stored, but their job and task still
// occupy a row and a column.
type Matrix struct {
	jobs     []string
	tasks    []string
	rowPtr   []int
	colIdx   []int
	vals     []float64
	triplets int
}

// Rows returns the number of jobs.
func (m *Matrix) Rows() int { return len(m.jobs) }

// Cols returns the number of tasks.
func (m *Matrix) Cols() int { return len(m.tasks) }

// NonZeros returns the number of stored entries.
func (m *Matrix) NonZeros() int { return len(m.vals) }

// Triplets returns the number of relatedness triplets that survived the job filter.
func (m *Matrix) Triplets() int { return m.triplets }

// JobIDs returns the row labels.
func (m *Matrix) JobIDs() []string { return append([]string(nil), m.jobs...) }

// TaskIDs returns the column labels.
func (m *Matrix) TaskIDs() []string { return append([]string(nil), m.tasks...) }

// At returns M[i,j], or 0 when no entry is stored.
func (m *Matrix) At(i, j int) float64 {
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	cols := m.colIdx[lo:hi]
	k := sort.SearchInts(cols, j)
	if k < len(cols) && cols[k] == j {
		return m.vals[lo+k]
	}
	return 0
}

// Scale returns a copy of m with every weight multiplied by c.
func (m *Matrix) Scale(c float64) *Matrix {
	out := &Matrix{
		jobs:     m.jobs,
		tasks:    m.tasks,
		rowPtr:   m.rowPtr,
		colIdx:   m.colIdx,
		vals:     make([]float64, len(m.vals)),
		triplets: m.triplets,
	}
	for p, v := range m.vals {
		out.vals[p] = v * c
	}
	return out
}

// mulVec sets out[i] = Σ_t M[i,t]·x[t].
func (m *Matrix) mulVec(x, out []float64) {
	for i := range m.jobs {
		var s float64
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			// explicit conversion keeps the product rounded before the add (no FMA)
			s += float64(m.vals[p] * x[m.colIdx[p]])
		}
		out[i] = s
	}
}

// mulTransVec sets out[t] = Σ_i M[i,t]·x[i], accumulating rows in ascending order.
func (m *Matrix) mulTransVec(x, out []float64) {
	clear(out)
	for i := range m.jobs {
		xi := x[i]
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			out[m.colIdx[p]] += float64(m.vals[p] * xi)
		}
	}
}

// BuildMatrix builds the matrix of triplets whose job is in validJobs.
func BuildMatrix(rel []model.TaskRelatedness, validJobs []string) (*Matrix, error) {
	idx := newIndex(rel)
	return idx.build(idx.scope(validJobs))
}

// index interns the relatedness table once so each region only pays for the
// job filter and a column compaction.
type index struct {
	jobIDs  []string
	taskIDs []string
	jobOf   map[string]int
	trJob   []int
	trTask  []int
	trW     []float64
}

func newIndex(rel []model.TaskRelatedness) *index {
	x := &index{
		jobOf:  make(map[string]int),
		trJob:  make([]int, len(rel)),
		trTask: make([]int, len(rel)),
		trW:    make([]float64, len(rel)),
	}
	taskOf := make(map[string]int)
	for k, r := range rel {
		j, ok := x.jobOf[r.JobID]
		if !ok {
			j = len(x.jobIDs)
			x.jobOf[r.JobID] = j
			x.jobIDs = append(x.jobIDs, r.JobID)
		}
		t, ok := taskOf[r.TaskID]
		if !ok {
			t = len(x.taskIDs)
			taskOf[r.TaskID] = t
			x.taskIDs = append(x.taskIDs, r.TaskID)
		}
		x.trJob[k], x.trTask[k], x.trW[k] = j, t, r.Weight
	}
	return x
}

// scope marks the interned jobs present in jobIDs. Unknown ids are ignored.
func (x *index) scope(jobIDs []string) []bool {
	in := make([]bool, len(x.jobIDs))
	for _, id := range jobIDs {
		if j, ok := x.jobOf[id]; ok {
			in[j] = true
		}
	}
	return in
}

// build filters the triplets to in-scope jobs and assembles the CSR matrix.
func (x *index) build(inScope []bool) (*Matrix, error) {
	jobLocal := fill(len(x.jobIDs), -1)
	taskLocal := fill(len(x.taskIDs), -1)

	var (
		jobs, tasks []string
		rows, cols  []int
		vals        []float64
	)
	for k, j := range x.trJob {
		if !inScope[j] {
			continue
		}
		w := x.trW[k]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: job %q task %q weight %v", model.ErrInvalidWeight, x.jobIDs[j], x.taskIDs[x.trTask[k]], w)
		}
		if jobLocal[j] < 0 {
			jobLocal[j] = len(jobs)
			jobs = append(jobs, x.jobIDs[j])
		}
		t := x.trTask[k]
		if taskLocal[t] < 0 {
			taskLocal[t] = len(tasks)
			tasks = append(tasks, x.taskIDs[t])
		}
		rows = append(rows, jobLocal[j])
		cols = append(cols, taskLocal[t])
		vals = append(vals, w)
	}
	return newCSR(jobs, tasks, rows, cols, vals), nil
}

// newCSR converts coordinate arrays into CSR. For a repeated (row, col) pair
// the later value wins; zero values are then dropped.
func newCSR(jobs, tasks []string, rows, cols []int, vals []float64) *Matrix {
	nr := len(jobs)
	start := make([]int, nr+1)
	for _, r := range rows {
		start[r+1]++
	}
	for i := 0; i < nr; i++ {
		start[i+1] += start[i]
	}
	// stable bucket by row, keeping input order inside a row
	order := make([]int, len(rows))
	next := append([]int(nil), start[:nr]...)
	for k, r := range rows {
		order[next[r]] = k
		next[r]++
	}

	m := &Matrix{
		jobs:     jobs,
		tasks:    tasks,
		rowPtr:   make([]int, nr+1),
		colIdx:   make([]int, 0, len(rows)),
		vals:     make([]float64, 0, len(rows)),
		triplets: len(rows),
	}
	seenRow := fill(len(tasks), -1)
	slot := make([]int, len(tasks))
	for i := 0; i < nr; i++ {
		lo := len(m.colIdx)
		for _, k := range order[start[i]:start[i+1]] {
			c := cols[k]
			if seenRow[c] == i {
				m.vals[slot[c]] = vals[k]
				continue
			}
			seenRow[c], slot[c] = i, len(m.colIdx)
			m.colIdx = append(m.colIdx, c)
			m.vals = append(m.vals, vals[k])
		}

		sort.Sort(rowEntries{cols: m.colIdx[lo:], vals: m.vals[lo:]})

		w := lo
		for p := lo; p < len(m.vals); p++ {
			if m.vals[p] == 0 {
				continue
			}
			m.colIdx[w], m.vals[w] = m.colIdx[p], m.vals[p]
			w++
		}
		m.colIdx, m.vals = m.colIdx[:w], m.vals[:w]
		m.rowPtr[i+1] = w
	}
	return m
}

type rowEntries struct {
	cols []int
	vals []float64
}

func (r rowEntries) Len() int           { return len(r.cols) }
func (r rowEntries) Less(a, b int) bool { return r.cols[a] < r.cols[b] }
func (r rowEntries) Swap(a, b int) {
	r.cols[a], r.cols[b] = r.cols[b], r.cols[a]
	r.vals[a], r.vals[b] = r.vals[b], r.vals[a]
}

func fill(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}
