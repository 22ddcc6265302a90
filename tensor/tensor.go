// Copyright 2025 rescal Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tensor provides sparse square matrices used as the frontal slices
// of a multi-relational adjacency tensor.
package tensor

import (
	"sort"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a sparse square matrix in compressed sparse row layout. Rows are
// sorted by column index and duplicate coordinates are merged at construction.
// A Matrix is immutable after construction and safe for concurrent reads.
type Matrix struct {
	n      int
	rowPtr []int
	colInd []int
	values []float64
}

type coordinate struct {
	row, col int
	value    float64
}

// NewCOO creates an n x n sparse matrix from coordinate triples. The value of
// entry (rows[i], cols[i]) is values[i], or 1 for every triple if values is
// nil. Triples may occur in arbitrary order and duplicate coordinates are
// summed, matching the usual COO construction semantics.
func NewCOO(n int, rows, cols []int, values []float64) (*Matrix, error) {
	if n < 1 {
		return nil, errors.Errorf("matrix dimension must be positive, got %d", n)
	}
	if len(rows) != len(cols) {
		return nil, errors.Errorf("row and column index counts mismatch: %d vs %d", len(rows), len(cols))
	}
	if values != nil && len(values) != len(rows) {
		return nil, errors.Errorf("value count mismatch: %d values for %d coordinates", len(values), len(rows))
	}
	coords := make([]coordinate, len(rows))
	for i := range rows {
		if rows[i] < 0 || rows[i] >= n || cols[i] < 0 || cols[i] >= n {
			return nil, errors.Errorf("coordinate (%d, %d) out of bounds for %dx%d matrix", rows[i], cols[i], n, n)
		}
		v := 1.0
		if values != nil {
			v = values[i]
		}
		coords[i] = coordinate{row: rows[i], col: cols[i], value: v}
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].row != coords[j].row {
			return coords[i].row < coords[j].row
		}
		return coords[i].col < coords[j].col
	})
	m := &Matrix{
		n:      n,
		rowPtr: make([]int, n+1),
		colInd: make([]int, 0, len(coords)),
		values: make([]float64, 0, len(coords)),
	}
	counts := make([]int, n)
	prevRow, prevCol := -1, -1
	for _, c := range coords {
		if c.row == prevRow && c.col == prevCol {
			m.values[len(m.values)-1] += c.value
			continue
		}
		m.colInd = append(m.colInd, c.col)
		m.values = append(m.values, c.value)
		counts[c.row]++
		prevRow, prevCol = c.row, c.col
	}
	for i := 0; i < n; i++ {
		m.rowPtr[i+1] = m.rowPtr[i] + counts[i]
	}
	return m, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (rows, cols int) {
	return m.n, m.n
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.values)
}

// NonZeros calls fn for every stored entry in row-major order.
func (m *Matrix) NonZeros(fn func(i, j int, v float64)) {
	for i := 0; i < m.n; i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			fn(i, m.colInd[p], m.values[p])
		}
	}
}

// SquaredFrobenius returns the sum of the diagonal of M*Mᵗ, i.e. the squared
// Frobenius norm, computed from the stored entries alone.
func (m *Matrix) SquaredFrobenius() float64 {
	var sum float64
	for _, v := range m.values {
		sum += v * v
	}
	return sum
}

// MulTo computes dst = M*b. dst must be n x c where c is the column count
// of b.
func (m *Matrix) MulTo(dst *mat.Dense, b mat.Matrix) {
	br, bc := b.Dims()
	dr, dc := dst.Dims()
	if br != m.n || dr != m.n || dc != bc {
		panic(mat.ErrShape)
	}
	dst.Zero()
	for i := 0; i < m.n; i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			j, v := m.colInd[p], m.values[p]
			for k := 0; k < bc; k++ {
				dst.Set(i, k, dst.At(i, k)+v*b.At(j, k))
			}
		}
	}
}

// TMulTo computes dst = Mᵗ*b. dst must be n x c where c is the column count
// of b.
func (m *Matrix) TMulTo(dst *mat.Dense, b mat.Matrix) {
	br, bc := b.Dims()
	dr, dc := dst.Dims()
	if br != m.n || dr != m.n || dc != bc {
		panic(mat.ErrShape)
	}
	dst.Zero()
	for i := 0; i < m.n; i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			j, v := m.colInd[p], m.values[p]
			for k := 0; k < bc; k++ {
				dst.Set(j, k, dst.At(j, k)+v*b.At(i, k))
			}
		}
	}
}

// Dot returns the elementwise inner product of M with a dense matrix of the
// same shape, summing only over the stored entries of M.
func (m *Matrix) Dot(b mat.Matrix) float64 {
	br, bc := b.Dims()
	if br != m.n || bc != m.n {
		panic(mat.ErrShape)
	}
	var sum float64
	for i := 0; i < m.n; i++ {
		for p := m.rowPtr[i]; p < m.rowPtr[i+1]; p++ {
			sum += m.values[p] * b.At(i, m.colInd[p])
		}
	}
	return sum
}

// At returns the value of the entry at (i, j).
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.n || j < 0 || j >= m.n {
		panic(mat.ErrRowAccess)
	}
	row := m.colInd[m.rowPtr[i]:m.rowPtr[i+1]]
	p := sort.SearchInts(row, j)
	if p < len(row) && row[p] == j {
		return m.values[m.rowPtr[i]+p]
	}
	return 0
}
