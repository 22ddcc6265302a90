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
	"math"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rescal-io/rescal/base"
	"github.com/rescal-io/rescal/tensor"
)

const (
	eigsMaxIter = 100
	eigsTol     = 1e-9
)

// initFactor produces the initial shared factor matrix. Random initialization
// draws uniform values in [0, 1). Eigenvector initialization starts from the
// dominant eigenvectors of the symmetrized sum of all slices: entities that
// participate similarly across relations start with similar latent vectors,
// which cuts the iteration count considerably compared to random noise.
func initFactor(slices []Slice, n, rank int, ainit string, rng base.RandomGenerator) (*mat.Dense, error) {
	switch ainit {
	case InitRandom:
		return mat.NewDense(n, rank, rng.UniformMatrix64(n, rank, 0, 1)), nil
	case InitNVecs:
		s, err := symmetrizedSum(slices, n)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return topEigenvectors(s, rank, rng)
	default:
		return nil, configErrorf("unknown init option %q", ainit)
	}
}

// symmetrizedSum accumulates S = Σ_k (X_k + X_kᵗ) as sparse triples, never
// densifying any slice.
func symmetrizedSum(slices []Slice, n int) (*tensor.Matrix, error) {
	nnz := 0
	for _, s := range slices {
		nnz += s.NNZ()
	}
	rows := make([]int, 0, 2*nnz)
	cols := make([]int, 0, 2*nnz)
	vals := make([]float64, 0, 2*nnz)
	for _, s := range slices {
		s.NonZeros(func(i, j int, v float64) {
			rows = append(rows, i, j)
			cols = append(cols, j, i)
			vals = append(vals, v, v)
		})
	}
	m, err := tensor.NewCOO(n, rows, cols, vals)
	return m, errors.Trace(err)
}

// topEigenvectors computes the eigenvectors of the rank largest-magnitude
// eigenvalues of the sparse symmetric matrix s by blocked subspace iteration,
// touching s only through sparse matrix products. A Rayleigh-Ritz step
// rotates the converged basis onto the eigenvectors.
func topEigenvectors(s *tensor.Matrix, rank int, rng base.RandomGenerator) (*mat.Dense, error) {
	n, _ := s.Dims()
	q := mat.NewDense(n, rank, rng.NormalVector64(n*rank, 0, 1))
	y := mat.NewDense(n, rank, nil)
	t := mat.NewDense(rank, rank, nil)
	ritz := make([]float64, rank)
	prev := make([]float64, rank)
	for it := 0; it < eigsMaxIter; it++ {
		s.MulTo(y, q)
		// orthonormalize the iterated block
		var svd mat.SVD
		if !svd.Factorize(y, mat.SVDThin) {
			return nil, numericalErrorf("eigenvector initialization: SVD failed")
		}
		svd.UTo(q)
		// Ritz estimates on the current subspace
		s.MulTo(y, q)
		t.Mul(q.T(), y)
		for i := range ritz {
			ritz[i] = t.At(i, i)
		}
		if it > 0 && floats.Distance(ritz, prev, math.Inf(1)) < eigsTol*(1+floats.Norm(ritz, math.Inf(1))) {
			break
		}
		copy(prev, ritz)
	}
	// Rayleigh-Ritz: diagonalize the projected problem and rotate the basis.
	s.MulTo(y, q)
	t.Mul(q.T(), y)
	sym := mat.NewSymDense(rank, nil)
	for i := 0; i < rank; i++ {
		for j := i; j < rank; j++ {
			sym.SetSym(i, j, 0.5*(t.At(i, j)+t.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, numericalErrorf("eigenvector initialization: eigendecomposition failed")
	}
	var w mat.Dense
	eig.VectorsTo(&w)
	a := mat.NewDense(n, rank, nil)
	a.Mul(q, &w)
	return a, nil
}
