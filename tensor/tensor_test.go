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

package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func toDense(m *Matrix) *mat.Dense {
	n, _ := m.Dims()
	dense := mat.NewDense(n, n, nil)
	m.NonZeros(func(i, j int, v float64) {
		dense.Set(i, j, dense.At(i, j)+v)
	})
	return dense
}

func TestNewCOO(t *testing.T) {
	m, err := NewCOO(3, []int{0, 2, 0, 1}, []int{1, 2, 1, 0}, nil)
	require.NoError(t, err)
	rows, cols := m.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)
	// duplicate (0, 1) is summed
	assert.Equal(t, 3, m.NNZ())
	assert.Equal(t, 2.0, m.At(0, 1))
	assert.Equal(t, 1.0, m.At(1, 0))
	assert.Equal(t, 1.0, m.At(2, 2))
	assert.Equal(t, 0.0, m.At(1, 1))
}

func TestNewCOO_Values(t *testing.T) {
	m, err := NewCOO(2, []int{0, 1, 0}, []int{0, 1, 0}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 4.0, m.At(0, 0))
	assert.Equal(t, 2.0, m.At(1, 1))
}

func TestNewCOO_Errors(t *testing.T) {
	_, err := NewCOO(0, nil, nil, nil)
	assert.Error(t, err)
	_, err = NewCOO(2, []int{0}, []int{0, 1}, nil)
	assert.Error(t, err)
	_, err = NewCOO(2, []int{0}, []int{0}, []float64{1, 2})
	assert.Error(t, err)
	_, err = NewCOO(2, []int{2}, []int{0}, nil)
	assert.Error(t, err)
	_, err = NewCOO(2, []int{0}, []int{-1}, nil)
	assert.Error(t, err)
}

func TestNonZeros(t *testing.T) {
	m, err := NewCOO(3, []int{1, 0, 1}, []int{2, 1, 0}, nil)
	require.NoError(t, err)
	var triples [][3]float64
	m.NonZeros(func(i, j int, v float64) {
		triples = append(triples, [3]float64{float64(i), float64(j), v})
	})
	// row-major order
	assert.Equal(t, [][3]float64{{0, 1, 1}, {1, 0, 1}, {1, 2, 1}}, triples)
}

func TestMulTo(t *testing.T) {
	m, err := NewCOO(3, []int{0, 1, 2, 2}, []int{1, 2, 0, 2}, nil)
	require.NoError(t, err)
	b := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := mat.NewDense(3, 2, nil)
	m.MulTo(got, b)
	want := mat.NewDense(3, 2, nil)
	want.Mul(toDense(m), b)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestTMulTo(t *testing.T) {
	m, err := NewCOO(3, []int{0, 1, 2, 2}, []int{1, 2, 0, 2}, nil)
	require.NoError(t, err)
	b := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	got := mat.NewDense(3, 2, nil)
	m.TMulTo(got, b)
	want := mat.NewDense(3, 2, nil)
	want.Mul(toDense(m).T(), b)
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
}

func TestDot(t *testing.T) {
	m, err := NewCOO(2, []int{0, 1}, []int{1, 0}, nil)
	require.NoError(t, err)
	b := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.InDelta(t, 5.0, m.Dot(b), 1e-12)
}

func TestSquaredFrobenius(t *testing.T) {
	m, err := NewCOO(3, []int{0, 1, 2}, []int{1, 2, 0}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 14.0, m.SquaredFrobenius(), 1e-12)
	// adjacency matrices: the squared norm equals the number of edges
	adj, err := NewCOO(4, []int{0, 1, 2, 3}, []int{1, 2, 3, 0}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, adj.SquaredFrobenius(), 1e-12)
}
