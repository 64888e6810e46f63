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

import "gonum.org/v1/gonum/mat"

// depthShiftFrac is the fractional interface perturbation used for the
// finite-difference sensitivity build.
const depthShiftFrac = 1e-3

// Jacobian holds the sensitivity of the observed vertical gravity
// gradient to per-cell Moho-depth perturbations. J[i][j] is the
// response at observation cell i to a unit deepening of the Moho at
// model cell j, evaluated at a fixed density contrast. JShift is the
// companion matrix built with a doubled perturbation step; the pair
// supports a finite-difference second-order correction in the inverter.
// Both matrices are built once per reference density and afterwards
// only rescaled, never recomputed.
type Jacobian struct {
	Grid       *Grid
	RefDepth   float64   // reference Moho depth [m, positive down]
	RefDensity float64   // density contrast of the reference build [kg/m³]
	Density    []float64 // per-cell densities of a rescaled copy; nil for the reference build
	Step       []float64 // finite-difference depth step per model cell [m]

	J, JShift *mat.Dense
}

// BuildJacobian assembles the reference sensitivity matrices by
// perturbing the Moho interface cell by cell. start is the starting
// Moho depth per cell [m, positive down]; the anomalous mass of cell j
// lies between the reference depth and start[j]. Each column is the
// finite-difference response of deepening cell j by ≈0.1% of its depth
// (J) and by twice that (JShift), holding every other cell fixed.
// The reference density must be non-zero: the exact per-column rescale
// to other density vectors divides by it.
func BuildJacobian(fm *ForwardModel, refDepth float64, start []float64, refDensity, obsHeight float64) (*Jacobian, error) {
	if refDensity == 0 {
		return nil, configErrorf("reference density contrast must be non-zero")
	}
	if refDepth <= 0 {
		return nil, configErrorf("reference Moho depth must be positive, got %g", refDepth)
	}
	g := fm.Source
	n := g.Size()
	if len(start) != n {
		return nil, alignmentErrorf("starting depth vector length %d does not match grid size %d",
			len(start), n)
	}

	jac := &Jacobian{
		Grid:       g,
		RefDepth:   refDepth,
		RefDensity: refDensity,
		Step:       make([]float64, n),
		J:          mat.NewDense(n, n, nil),
		JShift:     mat.NewDense(n, n, nil),
	}

	ob := newObserver(g, obsHeight)
	base := make([]float64, n)
	p1 := make([]float64, n)
	p2 := make([]float64, n)
	for j := 0; j < n; j++ {
		s := depthShiftFrac * start[j]
		if s == 0 {
			s = depthShiftFrac * refDepth
		}
		jac.Step[j] = s

		for i := range base {
			base[i], p1[i], p2[i] = 0, 0, 0
		}
		// The anomalous layer of cell j runs from the reference depth
		// to the interface; deepening the interface grows a mass
		// deficit, hence the negated density.
		fm.cellGradient(ob, j, -refDepth, -start[j], -refDensity, base)
		fm.cellGradient(ob, j, -refDepth, -(start[j]+s), -refDensity, p1)
		fm.cellGradient(ob, j, -refDepth, -(start[j]+2*s), -refDensity, p2)

		for i := 0; i < n; i++ {
			jac.J.Set(i, j, (p1[i]-base[i])/s)
			jac.JShift.Set(i, j, (p2[i]-base[i])/(2*s))
		}
	}
	return jac, nil
}

// Rescale returns sensitivity matrices for a new per-cell density
// vector. The gravity forward model is linear in density, so column j
// of the reference build scales exactly by density[j]/RefDensity; no
// forward modeling is repeated and no approximation is involved. The
// reference matrices are not modified. Rescaling an already-rescaled
// Jacobian is not supported.
func (jac *Jacobian) Rescale(density []float64) (*Jacobian, error) {
	if jac.Density != nil {
		return nil, configErrorf("rescale must start from the reference sensitivity build")
	}
	n := jac.Grid.Size()
	if len(density) != n {
		return nil, alignmentErrorf("density vector length %d does not match grid size %d",
			len(density), n)
	}
	o := &Jacobian{
		Grid:       jac.Grid,
		RefDepth:   jac.RefDepth,
		RefDensity: jac.RefDensity,
		Density:    density,
		Step:       jac.Step,
		J:          mat.NewDense(n, n, nil),
		JShift:     mat.NewDense(n, n, nil),
	}
	for j := 0; j < n; j++ {
		f := density[j] / jac.RefDensity
		for i := 0; i < n; i++ {
			o.J.Set(i, j, jac.J.At(i, j)*f)
			o.JShift.Set(i, j, jac.JShift.At(i, j)*f)
		}
	}
	return o, nil
}

// zero reports whether the sensitivity matrix vanishes entirely, for
// example after rescaling with an all-zero density vector. The inverter
// short-circuits this case instead of solving a singular system.
func (jac *Jacobian) zero() bool {
	return mat.Norm(jac.J, 1) == 0
}
