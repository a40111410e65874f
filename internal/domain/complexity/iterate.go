package complexity

import "math"

// Degrees returns the row sums nj and column sums nt of m.
//
// A sum that is exactly zero is replaced by 1 so a job without tasks (or a
// task without jobs) gets complexity 0 instead of NaN.
func Degrees(m *Matrix) (nj, nt []float64) {
	ones := make([]float64, max(m.Rows(), m.Cols()))
	for i := range ones {
		ones[i] = 1
	}
	nj = make([]float64, m.Rows())
	nt = make([]float64, m.Cols())
	m.mulVec(ones[:m.Cols()], nj)
	m.mulTransVec(ones[:m.Rows()], nt)
	guardZero(nj)
	guardZero(nt)
	return nj, nt
}

func guardZero(d []float64) {
	for i, v := range d {
		if v == 0 {
			d[i] = 1
		}
	}
}

// SeedTasks returns the initial task complexity: the sum of wages of the jobs
// with a nonzero relation to the task, divided by the task degree.
func SeedTasks(m *Matrix, wages, nt []float64) []float64 {
	kt := make([]float64, m.Cols())
	for i := 0; i < m.Rows(); i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			kt[m.colIdx[p]] += wages[i]
		}
	}
	for t := range kt {
		kt[t] /= nt[t]
	}
	return kt
}

// Indices holds the iteration output.
type Indices struct {
	JCI       []float64
	TCI       []float64
	Rounds    int  // rounds actually run
	Converged bool // stopped early under WithTolerance
}

// Iterate runs the coupled recurrence
//
//	kj'[i] = (1/nj[i]) Σ_t M[i,t]·kt[t]
//	kt'[t] = (1/nt[t]) Σ_i M[i,t]·kj[i]
//
// from (kj0, kt0). Both sides of a round read the previous round's vectors.
// Inputs are not modified.
func Iterate(m *Matrix, nj, nt, kj0, kt0 []float64, opts ...Option) Indices {
	s := newSettings(opts)

	invJ := reciprocal(nj)
	invT := reciprocal(nt)

	kj := append([]float64(nil), kj0...)
	kt := append([]float64(nil), kt0...)
	nextJ := make([]float64, len(kj))
	nextT := make([]float64, len(kt))

	out := Indices{}
	for r := 0; r < s.rounds; r++ {
		m.mulVec(kt, nextJ)
		m.mulTransVec(kj, nextT)
		for i := range nextJ {
			nextJ[i] *= invJ[i]
		}
		for t := range nextT {
			nextT[t] *= invT[t]
		}
		out.Rounds++

		settled := s.tolerance > 0 && maxDelta(kj, nextJ) <= s.tolerance && maxDelta(kt, nextT) <= s.tolerance
		kj, nextJ = nextJ, kj
		kt, nextT = nextT, kt
		if settled {
			out.Converged = true
			break
		}
	}
	out.JCI, out.TCI = kj, kt
	return out
}

func reciprocal(d []float64) []float64 {
	inv := make([]float64, len(d))
	for i, v := range d {
		inv[i] = 1 / v
	}
	return inv
}

func maxDelta(a, b []float64) float64 {
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}
