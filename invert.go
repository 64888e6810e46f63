/*
Copyright © 2025 the MohoInv authors.
This file is part of MohoInv.

MohoInv is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MohoInv is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MohoInv.  If not, see <http://www.gnu.org/licenses/>.
*/

package mohoinv

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Inverter solves the damped least-squares problem
// min ‖J·Δh − g‖² + ‖D·Δh‖² for the Moho-depth update Δh.
type Inverter struct {
	// Damping is the weight-scaled smoothing operator D. It may be nil
	// for an unregularized solve.
	Damping *mat.Dense

	// MaxIter bounds the second-order correction iterations. Zero means
	// DefaultMaxIter. The correction only runs when the Jacobian
	// carries a shifted companion matrix; otherwise a single linear
	// solve is performed.
	MaxIter int

	// Tol is the relative step-change threshold that stops the
	// correction iterations. Zero means DefaultTol.
	Tol float64
}

// Inverter iteration defaults.
const (
	DefaultMaxIter = 8
	DefaultTol     = 1e-4
)

// Inversion is the result of a single regularized solve.
type Inversion struct {
	Update     []float64 // Moho-depth update Δh [m, positive down]
	Depth      []float64 // starting depth + update [m]
	Residual   []float64 // g − predicted gravity [Eötvös], used for misfit scoring
	Iterations int
}

// Invert solves for the Moho-depth update given the observed residual
// gravity field g and the starting depth. The normal equations
// (JᵀJ + DᵀD)·Δh = Jᵀg are symmetric positive-(semi)definite and are
// solved with a Cholesky factorization; a failed factorization is a
// NumericalError.
//
// When the Jacobian carries its shifted companion matrix, the two
// finite-difference step sizes yield a second-order-accurate first
// derivative J₁ = 2J − JShift and a per-column curvature
// κ = 2(JShift − J)/step. The solver then iterates
// Δh ← solve(J₁, g − ½κ·Δh²), compensating for the nonlinearity of the
// point-mass response to large depth changes.
//
// A zero Jacobian short-circuits to no update rather than attempting a
// singular solve.
func (inv *Inverter) Invert(jac *Jacobian, g, start []float64) (*Inversion, error) {
	n := jac.Grid.Size()
	if len(g) != n {
		return nil, alignmentErrorf("gravity field length %d does not match grid size %d", len(g), n)
	}
	if len(start) != n {
		return nil, alignmentErrorf("starting depth length %d does not match grid size %d", len(start), n)
	}

	out := &Inversion{
		Update:   make([]float64, n),
		Depth:    make([]float64, n),
		Residual: make([]float64, n),
	}
	copy(out.Depth, start)
	copy(out.Residual, g)
	if jac.zero() {
		return out, nil
	}

	maxIter := inv.MaxIter
	if maxIter == 0 {
		maxIter = DefaultMaxIter
	}
	tol := inv.Tol
	if tol == 0 {
		tol = DefaultTol
	}

	// First-derivative and curvature operators from the two-step build.
	j1 := mat.NewDense(n, n, nil)
	var curv *mat.Dense
	if jac.JShift != nil {
		curv = mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				a := jac.J.At(i, j)
				b := jac.JShift.At(i, j)
				j1.Set(i, j, 2*a-b)
				curv.Set(i, j, 2*(b-a)/jac.Step[j])
			}
		}
	} else {
		j1.Copy(jac.J)
	}

	var jtj mat.SymDense
	jtj.SymOuterK(1, j1.T())
	normal := &jtj
	if inv.Damping != nil {
		var dtd, sum mat.SymDense
		dtd.SymOuterK(1, inv.Damping.T())
		sum.AddSym(&jtj, &dtd)
		normal = &sum
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok {
		return nil, numericalErrorf("normal equations are not positive definite")
	}

	dh := make([]float64, n)
	prev := make([]float64, n)
	rhs := make([]float64, n)
	sq := make([]float64, n)
	corr := mat.NewVecDense(n, nil)
	b := mat.NewVecDense(n, nil)
	var x mat.VecDense

	for it := 1; it <= maxIter; it++ {
		out.Iterations = it
		copy(rhs, g)
		if curv != nil && it > 1 {
			for j := 0; j < n; j++ {
				sq[j] = dh[j] * dh[j]
			}
			corr.MulVec(curv, mat.NewVecDense(n, sq))
			for i := 0; i < n; i++ {
				rhs[i] -= 0.5 * corr.AtVec(i)
			}
		}
		b.MulVec(j1.T(), mat.NewVecDense(n, rhs))
		if err := chol.SolveVecTo(&x, b); err != nil {
			return nil, numericalErrorf("solving normal equations: %v", err)
		}
		copy(prev, dh)
		for i := 0; i < n; i++ {
			dh[i] = x.AtVec(i)
		}
		if curv == nil {
			break
		}
		if floats.Distance(dh, prev, 2) <= tol*(1+floats.Norm(dh, 2)) {
			break
		}
	}

	copy(out.Update, dh)
	for i := 0; i < n; i++ {
		out.Depth[i] = start[i] + dh[i]
	}
	// Residual of the full (corrected) prediction; this is the Bouguer
	// fit field used for scoring.
	pred := mat.NewVecDense(n, nil)
	pred.MulVec(j1, mat.NewVecDense(n, dh))
	for i := 0; i < n; i++ {
		out.Residual[i] = g[i] - pred.AtVec(i)
	}
	if curv != nil {
		for j := 0; j < n; j++ {
			sq[j] = dh[j] * dh[j]
		}
		corr.MulVec(curv, mat.NewVecDense(n, sq))
		for i := 0; i < n; i++ {
			out.Residual[i] -= 0.5 * corr.AtVec(i)
		}
	}
	return out, nil
}
