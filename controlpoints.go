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

import "github.com/ctessum/geom"

// ControlPoint is an independent seismic estimate of Moho depth at an
// irregularly-spaced location, used to score inverted models.
type ControlPoint struct {
	geom.Point         // X = longitude, Y = latitude [degrees]
	Depth      float64 // Moho depth [m, positive down]
}

// FilterControlPoints returns the points that fall inside the grid
// window. Points outside the window cannot be interpolated and are
// dropped before the search starts.
func FilterControlPoints(g *Grid, pts []ControlPoint) []ControlPoint {
	var o []ControlPoint
	for _, p := range pts {
		if _, ok := g.CellAt(p.X, p.Y); ok {
			o = append(o, p)
		}
	}
	return o
}

// InterpolateAt bilinearly interpolates the gridded field at the
// control-point coordinates. Coordinates in the outer half-cell rim of
// the window are clamped to the boundary stencil.
func InterpolateAt(g *Grid, field []float64, pts []ControlPoint) ([]float64, error) {
	if len(field) != g.Size() {
		return nil, alignmentErrorf("field length %d does not match grid size %d",
			len(field), g.Size())
	}
	o := make([]float64, len(pts))
	for p, pt := range pts {
		fi := pt.X - g.LonMin
		fj := pt.Y - g.LatMin
		i0, s := stencil(fi, g.Nx())
		j0, t := stencil(fj, g.Ny())
		if g.Nx() == 1 {
			s = 0
		}
		if g.Ny() == 1 {
			t = 0
		}
		i1, j1 := i0, j0
		if i0+1 < g.Nx() {
			i1 = i0 + 1
		}
		if j0+1 < g.Ny() {
			j1 = j0 + 1
		}
		o[p] = (1-s)*(1-t)*field[g.Index(i0, j0)] +
			s*(1-t)*field[g.Index(i1, j0)] +
			(1-s)*t*field[g.Index(i0, j1)] +
			s*t*field[g.Index(i1, j1)]
	}
	return o, nil
}

// stencil clamps a fractional lattice coordinate to a valid lower
// stencil index and returns the interpolation weight toward the upper
// neighbor.
func stencil(f float64, n int) (int, float64) {
	if f <= 0 {
		return 0, 0
	}
	if f >= float64(n-1) {
		if n < 2 {
			return 0, 0
		}
		return n - 2, 1
	}
	i := int(f)
	return i, f - float64(i)
}
