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

// Package rescal factors a three-way adjacency tensor X such that each
// frontal slice is approximated as X_k = A * R_k * Aᵗ, where A holds shared
// latent embeddings of the entities and R_k models the interaction of those
// embeddings under relation k. The factors are estimated by alternating
// least squares.
//
// For a full description of the algorithm see:
//
//	Maximilian Nickel, Volker Tresp, Hans-Peter Kriegel,
//	"A Three-Way Model for Collective Learning on Multi-Relational Data",
//	ICML 2011, Bellevue, WA, USA
package rescal

import (
	"fmt"
	"math"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/rescal-io/rescal/base"
	"github.com/rescal-io/rescal/base/log"
)

// Slice is one frontal slice of the tensor: a read-only sparse square
// adjacency matrix over the shared entity set. The factorization never
// mutates a slice, so implementations are safe to share across concurrent
// restarts.
type Slice interface {
	// Dims returns the number of rows and columns.
	Dims() (rows, cols int)
	// NNZ returns the number of stored entries.
	NNZ() int
	// NonZeros calls fn for every stored entry.
	NonZeros(fn func(i, j int, v float64))
	// MulTo computes dst = X*b.
	MulTo(dst *mat.Dense, b mat.Matrix)
	// TMulTo computes dst = Xᵗ*b.
	TMulTo(dst *mat.Dense, b mat.Matrix)
	// Dot returns the elementwise inner product with a dense matrix of the
	// same shape.
	Dot(b mat.Matrix) float64
	// SquaredFrobenius returns the squared Frobenius norm.
	SquaredFrobenius() float64
}

// FitConfig carries runtime options of a factorization: they affect logging
// and scheduling but never the estimated factors.
type FitConfig struct {
	Jobs    int // number of workers for random restarts
	Verbose int // log every Verbose iterations, 0 disables iteration logs
}

// NewFitConfig creates the default runtime options.
func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 10,
	}
}

func (config *FitConfig) SetJobs(nJobs int) *FitConfig {
	config.Jobs = nJobs
	return config
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// Result is the immutable outcome of one factorization run.
type Result struct {
	// A is the n x rank shared factor matrix of latent entity embeddings.
	A *mat.Dense
	// R holds one rank x rank core matrix per relation slice.
	R []*mat.Dense
	// Objective is the final value of the regularized reconstruction error.
	Objective float64
	// Iterations is the number of completed ALS iterations.
	Iterations int
	// IterationTimes records the wall-clock cost of each iteration.
	IterationTimes []time.Duration
}

// Factorize estimates the shared factor matrix A and the per-relation core
// matrices R_k for the given tensor slices by alternating least squares.
// Options are validated before any linear algebra is performed.
func Factorize(slices []Slice, rank int, params Params, config *FitConfig) (*Result, error) {
	config = config.LoadDefaultIfNil()
	if err := params.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	ainit := params.GetString(Init, defaultInit)
	proj := params.GetBool(Proj, defaultProj)
	maxIter := params.GetInt(MaxIter, defaultMaxIter)
	conv := params.GetFloat64(Conv, defaultConv)
	lmbda := params.GetFloat64(Lmbda, defaultLmbda)
	rng := base.NewRandomGenerator(params.GetInt64(RandomState, 0))
	n, err := checkSlices(slices, rank)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("factorize tensor",
		zap.Int("entities", n), zap.Int("slices", len(slices)), zap.Int("rank", rank),
		zap.String("init", ainit), zap.Bool("proj", proj),
		zap.Int("max_iter", maxIter), zap.Float64("conv", conv), zap.Float64("lmbda", lmbda))
	// precompute norms of X
	normX := lo.Map(slices, func(s Slice, _ int) float64 { return s.SquaredFrobenius() })
	sumNormX := lo.Sum(normX)
	// initialize A
	A, err := initFactor(slices, n, rank, ainit, rng)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// solveCore recomputes all core matrices for the current A, optionally
	// shrinking the subproblem to rank-sized matrices first.
	solveCore := func(A *mat.Dense) ([]*mat.Dense, error) {
		if proj {
			q, a2, err := orthoFactor(A)
			if err != nil {
				return nil, errors.Trace(err)
			}
			return updateR(projectSlices(slices, q), a2, lmbda)
		}
		return updateR(slices, A, lmbda)
	}
	R, err := solveCore(A)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// compute factorization
	var f, fit, fitold float64
	iterations := 0
	iterationTimes := make([]time.Duration, 0, maxIter)
	for it := 0; it < maxIter; it++ {
		tic := time.Now()
		fitold = fit
		if A, err = updateA(slices, A, R, lmbda); err != nil {
			return nil, errors.Trace(err)
		}
		if R, err = solveCore(A); err != nil {
			return nil, errors.Trace(err)
		}
		f = objective(slices, normX, A, R, lmbda)
		if sumNormX > 0 {
			fit = 1 - f/sumNormX
		} else {
			// empty tensor, keep the fit finite
			fit = 1 - f
		}
		fitchange := math.Abs(fitold - fit)
		iterationTimes = append(iterationTimes, time.Since(tic))
		iterations = it + 1
		if config.Verbose > 0 && it%config.Verbose == 0 {
			log.Logger().Debug(fmt.Sprintf("iteration %d", it),
				zap.Float64("fit", fit), zap.Float64("delta", fitchange),
				zap.Duration("elapsed", iterationTimes[len(iterationTimes)-1]))
		}
		// The fit of the first two iterations has no meaningful predecessor,
		// so the convergence check starts at the third.
		if it > 1 && fitchange < conv {
			break
		}
	}
	return &Result{
		A:              A,
		R:              R,
		Objective:      f,
		Iterations:     iterations,
		IterationTimes: iterationTimes,
	}, nil
}

// checkSlices verifies that all slices are square matrices of the same
// dimension and that the requested rank fits. It returns the shared entity
// dimension.
func checkSlices(slices []Slice, rank int) (int, error) {
	if len(slices) == 0 {
		return 0, configErrorf("no tensor slices")
	}
	n, _ := slices[0].Dims()
	for k, s := range slices {
		rows, cols := s.Dims()
		if rows != cols {
			return 0, shapeErrorf("slice %d is %dx%d, want square", k, rows, cols)
		}
		if rows != n {
			return 0, shapeErrorf("slice %d is %dx%d, want %dx%d", k, rows, cols, n, n)
		}
	}
	if rank < 1 || rank > n {
		return 0, configErrorf("rank %d out of range [1, %d]", rank, n)
	}
	return n, nil
}

// objective computes the regularized reconstruction error
//
//	f = 0.5 * (lmbda*‖A‖² + Σ_k(‖X_k‖² + ‖A R_k Aᵗ‖² - 2*⟨X_k, A R_k Aᵗ⟩ + lmbda*‖R_k‖²))
func objective(slices []Slice, normX []float64, A *mat.Dense, R []*mat.Dense, lmbda float64) float64 {
	n, rank := A.Dims()
	normA := mat.Norm(A, 2)
	f := lmbda * normA * normA
	ar := mat.NewDense(n, rank, nil)
	arat := mat.NewDense(n, n, nil)
	for k, Xk := range slices {
		ar.Mul(A, R[k])
		arat.Mul(ar, A.T())
		normARAt := mat.Norm(arat, 2)
		normR := mat.Norm(R[k], 2)
		f += normX[k] + normARAt*normARAt - 2*Xk.Dot(arat) + lmbda*normR*normR
	}
	return 0.5 * f
}
