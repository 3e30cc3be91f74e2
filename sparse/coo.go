// Package sparse provides the triplet sparse matrix and
// the regularized iterative least-squares solver used by
// the model update step.
package sparse

import "fmt"

// A Matrix is a sparse matrix in coordinate (triplet)
// form. Entries are appended one at a time; duplicate
// (row, col) entries are implicitly summed, matching the
// usual COO convention.
type Matrix struct {
	nrows, ncols int

	rows, cols []int
	vals       []float64
}

// New creates an empty nrows by ncols matrix.
func New(nrows, ncols int) *Matrix {
	if nrows < 0 || ncols < 0 {
		panic("negative matrix dimension")
	}
	return &Matrix{nrows: nrows, ncols: ncols}
}

// Dims returns the matrix dimensions.
func (m *Matrix) Dims() (nrows, ncols int) {
	return m.nrows, m.ncols
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.vals)
}

// Append adds the entry (row, col) = val.
func (m *Matrix) Append(row, col int, val float64) {
	if row < 0 || row >= m.nrows || col < 0 || col >= m.ncols {
		panic(fmt.Sprintf("entry (%d, %d) outside %dx%d matrix", row, col, m.nrows, m.ncols))
	}
	m.rows = append(m.rows, row)
	m.cols = append(m.cols, col)
	m.vals = append(m.vals, val)
}

// Clone returns a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{
		nrows: m.nrows,
		ncols: m.ncols,
		rows:  make([]int, len(m.rows)),
		cols:  make([]int, len(m.cols)),
		vals:  make([]float64, len(m.vals)),
	}
	copy(out.rows, m.rows)
	copy(out.cols, m.cols)
	copy(out.vals, m.vals)
	return out
}

// Entry returns the i-th stored triplet.
func (m *Matrix) Entry(i int) (row, col int, val float64) {
	return m.rows[i], m.cols[i], m.vals[i]
}

// RowSums returns the sum of stored values in each row.
func (m *Matrix) RowSums() []float64 {
	out := make([]float64, m.nrows)
	for i, r := range m.rows {
		out[r] += m.vals[i]
	}
	return out
}

// MulVec computes y = A x.
func (m *Matrix) MulVec(x []float64) []float64 {
	if len(x) != m.ncols {
		panic(fmt.Sprintf("vector length %d, want %d", len(x), m.ncols))
	}
	y := make([]float64, m.nrows)
	for i, v := range m.vals {
		y[m.rows[i]] += v * x[m.cols[i]]
	}
	return y
}

// MulTransVec computes y = A' x.
func (m *Matrix) MulTransVec(x []float64) []float64 {
	if len(x) != m.nrows {
		panic(fmt.Sprintf("vector length %d, want %d", len(x), m.nrows))
	}
	y := make([]float64, m.ncols)
	for i, v := range m.vals {
		y[m.cols[i]] += v * x[m.rows[i]]
	}
	return y
}
