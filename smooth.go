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
	"math"

	"gonum.org/v1/gonum/mat"
)

// Roughness builds the second-order finite-difference smoothing
// operator over the grid topology, scaled by the regularization weight.
// Each row is the discrete Laplacian stencil of one cell with physical
// spacings dx = R·cosφ·Δλ (latitude dependent) and dy = R·Δφ; the
// stencil is truncated at grid edges with no wraparound. The operator
// penalizes curvature of the estimated Moho-depth field in the damped
// least-squares solve.
func Roughness(g *Grid, weight float64) *mat.Dense {
	n := g.Size()
	d := mat.NewDense(n, n, nil)
	dy := earthRadius * CellSize * degToRad
	wy := weight / (dy * dy)
	for k := 0; k < n; k++ {
		i, j := g.Split(k)
		_, lat := g.Coords(k)
		dx := earthRadius * math.Cos(lat*degToRad) * CellSize * degToRad
		wx := weight / (dx * dx)

		if i > 0 {
			couple(d, k, g.Index(i-1, j), wx)
		}
		if i < g.Nx()-1 {
			couple(d, k, g.Index(i+1, j), wx)
		}
		if j > 0 {
			couple(d, k, g.Index(i, j-1), wy)
		}
		if j < g.Ny()-1 {
			couple(d, k, g.Index(i, j+1), wy)
		}
	}
	return d
}

func couple(d *mat.Dense, k, nb int, w float64) {
	d.Set(k, k, d.At(k, k)-w)
	d.Set(k, nb, d.At(k, nb)+w)
}
