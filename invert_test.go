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
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// linearJacobian wraps a plain sensitivity matrix with no shifted
// companion, so the inverter performs a single linear solve.
func linearJacobian(t *testing.T, g *Grid, data []float64) *Jacobian {
	t.Helper()
	n := g.Size()
	steps := make([]float64, n)
	for i := range steps {
		steps[i] = 30
	}
	return &Jacobian{
		Grid:       g,
		RefDepth:   testRefDepth,
		RefDensity: 400,
		Step:       steps,
		J:          mat.NewDense(n, n, data),
	}
}

// With no damping and an invertible square sensitivity matrix, the
// solve must reproduce the generating update exactly.
func TestInvertExactRecovery(t *testing.T) {
	g, err := NewGrid(0, 1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	jac := linearJacobian(t, g, []float64{
		4, 1, 0, 1,
		1, 5, 1, 0,
		0, 1, 4, 1,
		1, 0, 1, 6,
	})
	truth := []float64{1200, -800, 450, 300}
	n := g.Size()
	gv := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			gv[i] += jac.J.At(i, j) * truth[j]
		}
	}
	start := make([]float64, n)
	for i := range start {
		start[i] = testRefDepth
	}
	inv := &Inverter{}
	res, err := inv.Invert(jac, gv, start)
	if err != nil {
		t.Fatal(err)
	}
	if res.Iterations != 1 {
		t.Errorf("linear solve took %d iterations; want 1", res.Iterations)
	}
	for i := range truth {
		if different(res.Update[i], truth[i], 1e-8) {
			t.Errorf("update[%d] = %g; want %g", i, res.Update[i], truth[i])
		}
		if different(res.Depth[i], start[i]+truth[i], 1e-8) {
			t.Errorf("depth[%d] = %g; want %g", i, res.Depth[i], start[i]+truth[i])
		}
		if absDifferent(res.Residual[i], 0, 1e-6) {
			t.Errorf("residual[%d] = %g; want ≈0", i, res.Residual[i])
		}
	}
}

// A zero observed field must yield a zero update.
func TestInvertZeroField(t *testing.T) {
	g, err := NewGrid(0, 1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	jac := linearJacobian(t, g, []float64{
		4, 1, 0, 1,
		1, 5, 1, 0,
		0, 1, 4, 1,
		1, 0, 1, 6,
	})
	n := g.Size()
	start := make([]float64, n)
	for i := range start {
		start[i] = testRefDepth
	}
	inv := &Inverter{Damping: Roughness(g, 1)}
	res, err := inv.Invert(jac, make([]float64, n), start)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if absDifferent(res.Update[i], 0, 1e-9) {
			t.Errorf("update[%d] = %g; want 0", i, res.Update[i])
		}
	}
}

// A vanishing sensitivity matrix short-circuits to no update instead of
// attempting a singular solve.
func TestInvertZeroJacobian(t *testing.T) {
	g, err := NewGrid(0, 1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	n := g.Size()
	jac := linearJacobian(t, g, make([]float64, n*n))
	gv := []float64{1, 2, 3, 4}
	start := make([]float64, n)
	for i := range start {
		start[i] = testRefDepth
	}
	inv := &Inverter{}
	res, err := inv.Invert(jac, gv, start)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if res.Update[i] != 0 {
			t.Errorf("update[%d] = %g; want 0", i, res.Update[i])
		}
		if res.Residual[i] != gv[i] {
			t.Errorf("residual[%d] = %g; want %g", i, res.Residual[i], gv[i])
		}
	}
}

// A singular but non-zero system is a NumericalError, the recoverable
// class the density search skips per combination.
func TestInvertSingular(t *testing.T) {
	g, err := NewGrid(0, 1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	n := g.Size()
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 1 // rank one
	}
	jac := linearJacobian(t, g, data)
	start := make([]float64, n)
	for i := range start {
		start[i] = testRefDepth
	}
	inv := &Inverter{}
	_, err = inv.Invert(jac, []float64{1, 2, 3, 4}, start)
	if err == nil {
		t.Fatal("singular system should fail")
	}
	var numErr *NumericalError
	if !errors.As(err, &numErr) {
		t.Errorf("got %T, want NumericalError", err)
	}
}

func TestInvertAlignmentErrors(t *testing.T) {
	g, err := NewGrid(0, 1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	n := g.Size()
	jac := linearJacobian(t, g, make([]float64, n*n))
	inv := &Inverter{}
	var alignErr *AlignmentError
	if _, err := inv.Invert(jac, make([]float64, n-1), make([]float64, n)); !errors.As(err, &alignErr) {
		t.Errorf("short gravity field: got %v, want AlignmentError", err)
	}
	if _, err := inv.Invert(jac, make([]float64, n), make([]float64, n+2)); !errors.As(err, &alignErr) {
		t.Errorf("long starting depth: got %v, want AlignmentError", err)
	}
}
