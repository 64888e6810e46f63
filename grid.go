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

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// CellSize is the angular size of a model grid cell [degrees].
// The model grid is fixed at equiangular 1° resolution.
const CellSize = 1.0

const cellSizeTolerance = 1e-6

// Grid is a regular equiangular longitude–latitude lattice of cell
// centers. The flattened cell ordering is sorted by longitude, then
// latitude: index = iLon*Ny() + iLat. Every per-cell vector in the
// model (densities, depths, residuals, matrix rows and columns) shares
// this ordering.
type Grid struct {
	LonMin, LonMax float64 // western and eastern cell centers [degrees]
	LatMin, LatMax float64 // southern and northern cell centers [degrees]

	nLon, nLat int
}

// NewGrid creates a grid of 1°-spaced cell centers spanning the given
// window (inclusive on both ends). The cell size is validated against
// the fixed model resolution.
func NewGrid(lonMin, lonMax, latMin, latMax, cellSize float64) (*Grid, error) {
	if math.Abs(cellSize-CellSize) > cellSizeTolerance {
		return nil, configErrorf("cell size must be %g°, got %g°", CellSize, cellSize)
	}
	nLon := int(math.Round(lonMax-lonMin)) + 1
	nLat := int(math.Round(latMax-latMin)) + 1
	if nLon < 1 || nLat < 1 {
		return nil, configErrorf("window [%g,%g]×[%g,%g] contains no cells",
			lonMin, lonMax, latMin, latMax)
	}
	if math.Abs(lonMax-lonMin-float64(nLon-1)) > cellSizeTolerance ||
		math.Abs(latMax-latMin-float64(nLat-1)) > cellSizeTolerance {
		return nil, configErrorf("window [%g,%g]×[%g,%g] is not aligned to the %g° lattice",
			lonMin, lonMax, latMin, latMax, CellSize)
	}
	return &Grid{
		LonMin: lonMin, LonMax: lonMax,
		LatMin: latMin, LatMax: latMax,
		nLon: nLon, nLat: nLat,
	}, nil
}

// Nx returns the number of cells in the longitude direction.
func (g *Grid) Nx() int { return g.nLon }

// Ny returns the number of cells in the latitude direction.
func (g *Grid) Ny() int { return g.nLat }

// Size returns the total number of grid cells.
func (g *Grid) Size() int { return g.nLon * g.nLat }

// Index returns the flattened index of the cell at longitude index i
// and latitude index j.
func (g *Grid) Index(i, j int) int { return i*g.nLat + j }

// Split is the inverse of Index.
func (g *Grid) Split(k int) (i, j int) { return k / g.nLat, k % g.nLat }

// Coords returns the center coordinates of cell k.
func (g *Grid) Coords(k int) (lon, lat float64) {
	i, j := g.Split(k)
	return g.LonMin + float64(i)*CellSize, g.LatMin + float64(j)*CellSize
}

// Lons returns the per-cell longitude vector in flattened cell order.
func (g *Grid) Lons() []float64 {
	o := make([]float64, g.Size())
	for k := range o {
		o[k], _ = g.Coords(k)
	}
	return o
}

// Lats returns the per-cell latitude vector in flattened cell order.
func (g *Grid) Lats() []float64 {
	o := make([]float64, g.Size())
	for k := range o {
		_, o[k] = g.Coords(k)
	}
	return o
}

// CellAt returns the flattened index of the cell whose center is
// nearest to (lon, lat), and whether that point falls inside the grid
// window (cell centers ± half a cell).
func (g *Grid) CellAt(lon, lat float64) (int, bool) {
	i := int(math.Round(lon - g.LonMin))
	j := int(math.Round(lat - g.LatMin))
	if i < 0 || i >= g.nLon || j < 0 || j >= g.nLat {
		return 0, false
	}
	return g.Index(i, j), true
}

// CellPolygon returns the geographic outline of cell k (center ± half
// a cell in each direction).
func (g *Grid) CellPolygon(k int) geom.Polygon {
	lon, lat := g.Coords(k)
	const h = CellSize / 2
	return geom.Polygon{{
		geom.Point{X: lon - h, Y: lat - h},
		geom.Point{X: lon + h, Y: lat - h},
		geom.Point{X: lon + h, Y: lat + h},
		geom.Point{X: lon - h, Y: lat + h},
		geom.Point{X: lon - h, Y: lat - h},
	}}
}

// Pad returns a grid expanded by margin degrees on every side. The
// padded grid is used for forward modeling so that observation points
// near the study-window edge still see source contributions from
// outside the window.
func (g *Grid) Pad(margin float64) (*Grid, error) {
	if margin < 0 {
		return nil, configErrorf("overlap margin must be non-negative, got %g", margin)
	}
	return NewGrid(g.LonMin-margin, g.LonMax+margin,
		g.LatMin-margin, g.LatMax+margin, CellSize)
}

// CropTo returns, for each cell of the study grid, the index of the
// coincident cell in g. It is used to crop fields computed on the
// padded grid back to the study window.
func (g *Grid) CropTo(study *Grid) ([]int, error) {
	o := make([]int, study.Size())
	for k := range o {
		lon, lat := study.Coords(k)
		kk, ok := g.CellAt(lon, lat)
		if !ok {
			return nil, alignmentErrorf("grid does not cover cell (%g, %g)", lon, lat)
		}
		klon, klat := g.Coords(kk)
		if math.Abs(klon-lon) > cellSizeTolerance || math.Abs(klat-lat) > cellSizeTolerance {
			return nil, alignmentErrorf("lattices are offset at (%g, %g)", lon, lat)
		}
		o[k] = kk
	}
	return o, nil
}

// Field converts a 2-D gridded array with shape [Nx, Ny] into a
// flattened per-cell vector sharing the grid's cell ordering.
func (g *Grid) Field(a *sparse.DenseArray) ([]float64, error) {
	if len(a.Shape) != 2 || a.Shape[0] != g.nLon || a.Shape[1] != g.nLat {
		return nil, alignmentErrorf("array shape %v does not match grid %d×%d",
			a.Shape, g.nLon, g.nLat)
	}
	o := make([]float64, len(a.Elements))
	copy(o, a.Elements)
	return o, nil
}

// Array converts a flattened per-cell vector into a 2-D gridded array
// with shape [Nx, Ny].
func (g *Grid) Array(field []float64) (*sparse.DenseArray, error) {
	if len(field) != g.Size() {
		return nil, alignmentErrorf("field length %d does not match grid size %d",
			len(field), g.Size())
	}
	a := sparse.ZerosDense(g.nLon, g.nLat)
	copy(a.Elements, field)
	return a, nil
}
