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

	"gonum.org/v1/gonum/mat"
)

// updateA solves one ridge-regularized least-squares step for the shared
// factor matrix, aggregating evidence from every relation:
//
//	F = Σ_k X_k*(A*R_kᵗ) + X_kᵗ*(A*R_k)
//	E = Σ_k R_k*(AᵗA)*R_kᵗ + R_kᵗ*(AᵗA)*R_k
//	A_new = F * (lmbda*I + E)⁻¹
//
// The current A contributes only its shape and AᵗA.
func updateA(slices []Slice, A *mat.Dense, R []*mat.Dense, lmbda float64) (*mat.Dense, error) {
	n, rank := A.Dims()
	F := mat.NewDense(n, rank, nil)
	E := mat.NewDense(rank, rank, nil)
	ata := mat.NewDense(rank, rank, nil)
	ata.Mul(A.T(), A)
	ar := mat.NewDense(n, rank, nil)
	art := mat.NewDense(n, rank, nil)
	acc := mat.NewDense(n, rank, nil)
	tmp := mat.NewDense(rank, rank, nil)
	tmp2 := mat.NewDense(rank, rank, nil)
	for k, Xk := range slices {
		ar.Mul(A, R[k])
		art.Mul(A, R[k].T())
		Xk.MulTo(acc, art)
		F.Add(F, acc)
		Xk.TMulTo(acc, ar)
		F.Add(F, acc)
		tmp.Mul(ata, R[k].T())
		tmp2.Mul(R[k], tmp)
		E.Add(E, tmp2)
		tmp.Mul(ata, R[k])
		tmp2.Mul(R[k].T(), tmp)
		E.Add(E, tmp2)
	}
	for i := 0; i < rank; i++ {
		E.Set(i, i, E.At(i, i)+lmbda)
	}
	var inv mat.Dense
	if err := inv.Inverse(E); err != nil {
		return nil, numericalErrorf("factor update: %v", err)
	}
	newA := mat.NewDense(n, rank, nil)
	newA.Mul(F, &inv)
	return newA, nil
}

// updateR solves the regularized least-squares problem
// min ‖X_k - A*R_k*Aᵗ‖² + lmbda*‖R_k‖² for every relation independently.
// The expensive shared term (a pseudo-inverse when lmbda is zero, the inverted
// Kronecker system otherwise) is computed once for all relations.
func updateR(slices []Slice, A *mat.Dense, lmbda float64) ([]*mat.Dense, error) {
	n, rank := A.Dims()
	ata := mat.NewDense(rank, rank, nil)
	ata.Mul(A.T(), A)
	R := make([]*mat.Dense, len(slices))
	if lmbda == 0 {
		pinv, err := pseudoInverse(ata)
		if err != nil {
			return nil, err
		}
		ainv := mat.NewDense(rank, n, nil)
		ainv.Mul(pinv, A.T())
		xat := mat.NewDense(n, rank, nil)
		for k, Xk := range slices {
			// R_k = ainv * X_k * ainvᵗ
			Xk.MulTo(xat, ainv.T())
			Rk := mat.NewDense(rank, rank, nil)
			Rk.Mul(ainv, xat)
			R[k] = Rk
		}
		return R, nil
	}
	// The regularizer couples the entries of R_k, turning each solve into an
	// rank²-dimensional linear system (AᵗA)⊗(AᵗA) + lmbda*I. Inverting it is
	// the dominant cost, so it happens once and is shared by all relations.
	kron := mat.NewDense(rank*rank, rank*rank, nil)
	kron.Kronecker(ata, ata)
	for i := 0; i < rank*rank; i++ {
		kron.Set(i, i, kron.At(i, i)+lmbda)
	}
	var inv mat.Dense
	if err := inv.Inverse(kron); err != nil {
		return nil, numericalErrorf("core update: %v", err)
	}
	xa := mat.NewDense(n, rank, nil)
	atxa := mat.NewDense(rank, rank, nil)
	for k, Xk := range slices {
		Xk.MulTo(xa, A)
		atxa.Mul(A.T(), xa)
		flat := mat.NewVecDense(rank*rank, atxa.RawMatrix().Data)
		res := mat.NewVecDense(rank*rank, nil)
		res.MulVec(inv.T(), flat)
		R[k] = mat.NewDense(rank, rank, append([]float64(nil), res.RawVector().Data...))
	}
	return R, nil
}

// orthoFactor factors A = Q*A2 with orthonormal Q (n x rank) and square A2
// (rank x rank). gonum has no thin QR, so the orthonormal basis comes from a
// thin SVD: Q = U and A2 = S*Vᵗ, which serves the projected subproblem
// equally well.
func orthoFactor(A *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return nil, nil, numericalErrorf("projection: SVD failed")
	}
	var q, v mat.Dense
	svd.UTo(&q)
	svd.VTo(&v)
	values := svd.Values(nil)
	rank := len(values)
	a2 := mat.NewDense(rank, rank, nil)
	a2.Mul(mat.NewDiagDense(rank, values), v.T())
	return &q, a2, nil
}

// projectSlices computes X2_k = Qᵗ*X_k*Q for every slice, shrinking each
// subproblem from the entity dimension down to the factorization rank.
func projectSlices(slices []Slice, q *mat.Dense) []Slice {
	n, rank := q.Dims()
	projected := make([]Slice, len(slices))
	xq := mat.NewDense(n, rank, nil)
	for k, Xk := range slices {
		Xk.MulTo(xq, q)
		x2 := mat.NewDense(rank, rank, nil)
		x2.Mul(q.T(), xq)
		projected[k] = denseSlice{m: x2}
	}
	return projected
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse via a thin SVD,
// zeroing singular values below the conventional cutoff.
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	rows, cols := a.Dims()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, numericalErrorf("pseudo-inverse: SVD failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)
	eps := math.Nextafter(1, 2) - 1
	tol := float64(max(rows, cols)) * eps * values[0]
	inv := make([]float64, len(values))
	for i, s := range values {
		if s > tol {
			inv[i] = 1 / s
		}
	}
	vs := mat.NewDense(cols, len(values), nil)
	vs.Mul(&v, mat.NewDiagDense(len(values), inv))
	pinv := mat.NewDense(cols, rows, nil)
	pinv.Mul(vs, u.T())
	return pinv, nil
}

// denseSlice adapts a dense projected slice to the Slice contract.
type denseSlice struct {
	m *mat.Dense
}

func (s denseSlice) Dims() (rows, cols int) {
	return s.m.Dims()
}

func (s denseSlice) NNZ() int {
	rows, cols := s.m.Dims()
	return rows * cols
}

func (s denseSlice) NonZeros(fn func(i, j int, v float64)) {
	rows, cols := s.m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := s.m.At(i, j); v != 0 {
				fn(i, j, v)
			}
		}
	}
}

func (s denseSlice) MulTo(dst *mat.Dense, b mat.Matrix) {
	dst.Mul(s.m, b)
}

func (s denseSlice) TMulTo(dst *mat.Dense, b mat.Matrix) {
	dst.Mul(s.m.T(), b)
}

func (s denseSlice) Dot(b mat.Matrix) float64 {
	rows, cols := s.m.Dims()
	var sum float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum += s.m.At(i, j) * b.At(i, j)
		}
	}
	return sum
}

func (s denseSlice) SquaredFrobenius() float64 {
	norm := mat.Norm(s.m, 2)
	return norm * norm
}
