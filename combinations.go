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

	"github.com/ctessum/sparse"
)

// MaxUnits is the largest supported number of tectonic units.
const MaxUnits = 6

// Combinations enumerates the full Cartesian product of candidate
// density-contrast values over the tectonic units: one row per
// combination, one column per unit, len(values)^nUnits rows total with
// no duplicates. Row ordering varies the last unit fastest.
func Combinations(values []float64, nUnits int) ([][]float64, error) {
	if len(values) == 0 {
		return nil, configErrorf("no candidate density values given")
	}
	if nUnits < 1 || nUnits > MaxUnits {
		return nil, configErrorf("unit count must be between 1 and %d, got %d", MaxUnits, nUnits)
	}
	nRows := 1
	for u := 0; u < nUnits; u++ {
		nRows *= len(values)
	}
	o := make([][]float64, nRows)
	for r := 0; r < nRows; r++ {
		row := make([]float64, nUnits)
		x := r
		for u := nUnits - 1; u >= 0; u-- {
			row[u] = values[x%len(values)]
			x /= len(values)
		}
		o[r] = row
	}
	return o, nil
}

// Regionalization maps every grid cell to a tectonic unit. Unit IDs are
// integers in [0, NUnits) computed once at load time from the unit
// label grid, replacing repeated lookup by floating-point label
// equality.
type Regionalization struct {
	grid   *Grid
	unit   []int
	nUnits int
}

// NewRegionalization converts the unit-label grid into per-cell integer
// unit IDs, validating that every label is (numerically) an integer
// within the configured unit count.
func NewRegionalization(g *Grid, labels *sparse.DenseArray, nUnits int) (*Regionalization, error) {
	if nUnits < 1 || nUnits > MaxUnits {
		return nil, configErrorf("unit count must be between 1 and %d, got %d", MaxUnits, nUnits)
	}
	f, err := g.Field(labels)
	if err != nil {
		return nil, err
	}
	r := &Regionalization{grid: g, unit: make([]int, len(f)), nUnits: nUnits}
	for k, v := range f {
		id := int(math.Round(v))
		if math.Abs(v-float64(id)) > 1e-6 {
			lon, lat := g.Coords(k)
			return nil, alignmentErrorf("non-integer unit label %g at (%g, %g)", v, lon, lat)
		}
		if id < 0 || id >= nUnits {
			lon, lat := g.Coords(k)
			return nil, alignmentErrorf("unit label %d at (%g, %g) outside configured unit count %d",
				id, lon, lat, nUnits)
		}
		r.unit[k] = id
	}
	return r, nil
}

// NUnits returns the configured number of tectonic units.
func (r *Regionalization) NUnits() int { return r.nUnits }

// Unit returns the unit ID of cell k.
func (r *Regionalization) Unit(k int) int { return r.unit[k] }

// Broadcast maps per-unit density values onto grid cells, producing the
// per-cell density vector in flattened cell order.
func (r *Regionalization) Broadcast(densities []float64) ([]float64, error) {
	if len(densities) != r.nUnits {
		return nil, alignmentErrorf("got %d density values for %d units", len(densities), r.nUnits)
	}
	o := make([]float64, len(r.unit))
	for k, u := range r.unit {
		o[k] = densities[u]
	}
	return o, nil
}
