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

package rescal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/rescal-io/rescal/base"
	"github.com/rescal-io/rescal/tensor"
)

// countingSlice records how often any of its methods is called.
type countingSlice struct {
	n     int
	calls *int
}

func (s countingSlice) Dims() (int, int) {
	*s.calls++
	return s.n, s.n
}

func (s countingSlice) NNZ() int {
	*s.calls++
	return 0
}

func (s countingSlice) NonZeros(func(i, j int, v float64)) {
	*s.calls++
}

func (s countingSlice) MulTo(*mat.Dense, mat.Matrix) {
	*s.calls++
}

func (s countingSlice) TMulTo(*mat.Dense, mat.Matrix) {
	*s.calls++
}

func (s countingSlice) Dot(mat.Matrix) float64 {
	*s.calls++
	return 0
}

func (s countingSlice) SquaredFrobenius() float64 {
	*s.calls++
	return 0
}

// randomGraphSlices builds sparse binary adjacency slices of a random
// multi-relational graph.
func randomGraphSlices(t *testing.T, n, k int, density float64, seed int64) []Slice {
	rng := base.NewRandomGenerator(seed)
	slices := make([]Slice, k)
	for s := 0; s < k; s++ {
		var rows, cols []int
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j && rng.Float64() < density {
					rows = append(rows, i)
					cols = append(cols, j)
				}
			}
		}
		m, err := tensor.NewCOO(n, rows, cols, nil)
		require.NoError(t, err)
		slices[s] = m
	}
	return slices
}

// exactRankSlices builds dense slices X_k = A*R_k*Aᵗ from known factors, so
// a rank-r factorization can reach a near-zero residual.
func exactRankSlices(n, rank, k int, seed int64) []Slice {
	rng := base.NewRandomGenerator(seed)
	a := mat.NewDense(n, rank, rng.UniformMatrix64(n, rank, 0, 1))
	slices := make([]Slice, k)
	for s := 0; s < k; s++ {
		r := mat.NewDense(rank, rank, rng.UniformMatrix64(rank, rank, 0, 1))
		ar := mat.NewDense(n, rank, nil)
		ar.Mul(a, r)
		x := mat.NewDense(n, n, nil)
		x.Mul(ar, a.T())
		slices[s] = denseSlice{m: x}
	}
	return slices
}

func TestFactorize_RejectsUnknownOption(t *testing.T) {
	calls := 0
	slices := []Slice{countingSlice{n: 4, calls: &calls}}
	_, err := Factorize(slices, 2, Params{ParamName("Momentum"): 0.9}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
	// rejection must happen before the data is touched
	assert.Zero(t, calls)
}

func TestFactorize_RejectsBadOptionValues(t *testing.T) {
	calls := 0
	slices := []Slice{countingSlice{n: 4, calls: &calls}}
	for _, params := range []Params{
		{Init: "qr"},
		{Lmbda: -1.0},
		{MaxIter: 0},
		{Conv: 0.0},
	} {
		_, err := Factorize(slices, 2, params, nil)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
	assert.Zero(t, calls)
}

func TestCheckSlices(t *testing.T) {
	_, err := Factorize(nil, 2, nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	square, err := tensor.NewCOO(3, []int{0}, []int{1}, nil)
	require.NoError(t, err)
	smaller, err := tensor.NewCOO(2, []int{0}, []int{1}, nil)
	require.NoError(t, err)
	_, err = Factorize([]Slice{square, smaller}, 2, nil, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Factorize([]Slice{square}, 4, nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = Factorize([]Slice{square}, 0, nil, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFactorize_ExactRank(t *testing.T) {
	const (
		n    = 20
		rank = 3
	)
	slices := exactRankSlices(n, rank, 3, 42)
	result, err := Factorize(slices, rank, Params{RandomState: int64(1)}, nil)
	require.NoError(t, err)
	// the tensor has exact rank 3, so the residual collapses
	assert.Less(t, result.Objective, 1e-3)
	assert.Less(t, result.Iterations, defaultMaxIter)
	rows, cols := result.A.Dims()
	assert.Equal(t, n, rows)
	assert.Equal(t, rank, cols)
	require.Len(t, result.R, 3)
	for _, r := range result.R {
		rows, cols = r.Dims()
		assert.Equal(t, rank, rows)
		assert.Equal(t, rank, cols)
	}
	assert.Len(t, result.IterationTimes, result.Iterations)
}

func TestFactorize_SparseGraph(t *testing.T) {
	slices := randomGraphSlices(t, 12, 2, 0.2, 7)
	result, err := Factorize(slices, 4, Params{Lmbda: 0.1, MaxIter: 50}, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Objective, 0.0)
	assert.GreaterOrEqual(t, result.Iterations, 1)
	assert.LessOrEqual(t, result.Iterations, 50)
	assert.Len(t, result.IterationTimes, result.Iterations)
}

func TestFactorize_ObjectiveNonIncreasing(t *testing.T) {
	slices := randomGraphSlices(t, 12, 2, 0.2, 7)
	short, err := Factorize(slices, 3, Params{MaxIter: 1}, nil)
	require.NoError(t, err)
	long, err := Factorize(slices, 3, Params{MaxIter: 25}, nil)
	require.NoError(t, err)
	// alternating least squares never increases the objective
	assert.LessOrEqual(t, long.Objective, short.Objective+1e-8)
}

func TestFactorize_Deterministic(t *testing.T) {
	slices := randomGraphSlices(t, 10, 2, 0.25, 3)
	params := Params{Init: InitRandom, RandomState: int64(11), MaxIter: 20}
	first, err := Factorize(slices, 3, params, nil)
	require.NoError(t, err)
	second, err := Factorize(slices, 3, params, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Objective, second.Objective)
	assert.True(t, mat.Equal(first.A, second.A))
}

func TestFactorize_NoProjection(t *testing.T) {
	slices := exactRankSlices(16, 2, 2, 9)
	result, err := Factorize(slices, 2, Params{Proj: false}, nil)
	require.NoError(t, err)
	assert.Less(t, result.Objective, 1e-3)
}
