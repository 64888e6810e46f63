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

import "math"

// Physical constants.
const (
	gravConst   = 6.67430e-11 // gravitational constant [m³ kg⁻¹ s⁻²]
	earthRadius = 6.371e6     // mean Earth radius [m]
	eotvos      = 1e9         // s⁻² per Eötvös
	degToRad    = math.Pi / 180
)

// MassLayer is a layer of tesseroid (spherical prism) mass sources: a
// pair of per-cell bounding surfaces given as elevations relative to
// sea level, positive upward. Where Top < Bottom the layer volume is
// negative, representing a mass deficit.
type MassLayer struct {
	Grid        *Grid
	Top, Bottom []float64 // [m]
}

// NewMassLayer validates surface lengths against the grid.
func NewMassLayer(g *Grid, top, bottom []float64) (*MassLayer, error) {
	if len(top) != g.Size() || len(bottom) != g.Size() {
		return nil, alignmentErrorf("layer surfaces have lengths %d and %d; grid has %d cells",
			len(top), len(bottom), g.Size())
	}
	return &MassLayer{Grid: g, Top: top, Bottom: bottom}, nil
}

// pointMass is an equivalent point source in Earth-centered Cartesian
// coordinates.
type pointMass struct {
	x, y, z float64 // position [m]
	mass    float64 // [kg]
}

// shellVolume returns the volume of a tesseroid between radii r1 ≤ r2
// bounded by the parallels phi1 ≤ phi2 and spanning dLambda radians of
// longitude, using true spherical-shell geometry.
func shellVolume(r1, r2, phi1, phi2, dLambda float64) float64 {
	return dLambda * (math.Sin(phi2) - math.Sin(phi1)) * (r2*r2*r2 - r1*r1*r1) / 3
}

// shellCentroidRadius returns the radial center of mass of a uniform
// shell segment between radii r1 < r2.
func shellCentroidRadius(r1, r2 float64) float64 {
	r13 := r1 * r1 * r1
	r23 := r2 * r2 * r2
	return 0.75 * (r2*r23 - r1*r13) / (r23 - r13)
}

// cellMasses collapses the tesseroid of one grid cell into n equivalent
// point masses. n = 1 places a single mass at the volumetric centroid;
// n = 2 splits the prism radially at the equal-volume radius so that
// the two masses reproduce the prism's total mass and center of mass
// exactly. Negative-thickness cells (top below bottom) yield negative
// masses.
func cellMasses(lon, lat, top, bottom, density float64, n int) []pointMass {
	sign := 1.0
	if top < bottom {
		top, bottom = bottom, top
		sign = -1
	}
	r1 := earthRadius + bottom
	r2 := earthRadius + top
	if r2-r1 <= 0 {
		return nil
	}
	phi1 := (lat - CellSize/2) * degToRad
	phi2 := (lat + CellSize/2) * degToRad
	dLambda := CellSize * degToRad

	bounds := []float64{r1, r2}
	if n == 2 {
		r13 := r1 * r1 * r1
		r23 := r2 * r2 * r2
		rm := math.Cbrt((r13 + r23) / 2)
		bounds = []float64{r1, rm, r2}
	}

	sinLat := math.Sin(lat * degToRad)
	cosLat := math.Cos(lat * degToRad)
	sinLon := math.Sin(lon * degToRad)
	cosLon := math.Cos(lon * degToRad)

	o := make([]pointMass, 0, len(bounds)-1)
	for b := 0; b < len(bounds)-1; b++ {
		ra, rb := bounds[b], bounds[b+1]
		v := shellVolume(ra, rb, phi1, phi2, dLambda)
		rc := shellCentroidRadius(ra, rb)
		o = append(o, pointMass{
			x:    rc * cosLat * cosLon,
			y:    rc * cosLat * sinLon,
			z:    rc * sinLat,
			mass: sign * density * v,
		})
	}
	return o
}

// observer holds precomputed Cartesian positions and radial (local up)
// unit vectors for a set of observation points, so that many source
// evaluations can share them.
type observer struct {
	x, y, z    []float64
	ux, uy, uz []float64
}

// newObserver places observation points at the centers of the cells of
// g, at height meters above sea level.
func newObserver(g *Grid, height float64) *observer {
	n := g.Size()
	o := &observer{
		x: make([]float64, n), y: make([]float64, n), z: make([]float64, n),
		ux: make([]float64, n), uy: make([]float64, n), uz: make([]float64, n),
	}
	r := earthRadius + height
	for k := 0; k < n; k++ {
		lon, lat := g.Coords(k)
		cosLat := math.Cos(lat * degToRad)
		o.ux[k] = cosLat * math.Cos(lon*degToRad)
		o.uy[k] = cosLat * math.Sin(lon*degToRad)
		o.uz[k] = math.Sin(lat * degToRad)
		o.x[k] = r * o.ux[k]
		o.y[k] = r * o.uy[k]
		o.z[k] = r * o.uz[k]
	}
	return o
}

// accumulate adds the vertical gravity-gradient contribution [Eötvös]
// of the given point masses to out, one entry per observation point.
// The gradient is the second radial derivative of the point-mass
// potential, Tzz = G·m·(3Δz² − ℓ²)/ℓ⁵, with Δz the projection of the
// separation onto the observer's local vertical.
func (o *observer) accumulate(masses []pointMass, out []float64) {
	for _, m := range masses {
		if m.mass == 0 {
			continue
		}
		gm := gravConst * m.mass * eotvos
		for k := range out {
			dx := m.x - o.x[k]
			dy := m.y - o.y[k]
			dz := m.z - o.z[k]
			l2 := dx*dx + dy*dy + dz*dz
			if l2 == 0 {
				continue
			}
			up := dx*o.ux[k] + dy*o.uy[k] + dz*o.uz[k]
			l := math.Sqrt(l2)
			out[k] += gm * (3*up*up - l2) / (l2 * l2 * l)
		}
	}
}

// ForwardModel computes the vertical gravity gradient of tesseroid mass
// layers via their equivalent point masses.
type ForwardModel struct {
	Source *Grid // lattice of source cells
	NMass  int   // point masses per cell, 1 or 2
}

// NewForwardModel validates the point-mass count.
func NewForwardModel(source *Grid, nMass int) (*ForwardModel, error) {
	if nMass != 1 && nMass != 2 {
		return nil, configErrorf("point-mass count must be 1 or 2, got %d", nMass)
	}
	return &ForwardModel{Source: source, NMass: nMass}, nil
}

// Gradient evaluates the layer's gravity-gradient effect [Eötvös] at
// the cell centers of obs, at obsHeight meters above sea level.
// density holds one density contrast per source cell [kg/m³]. Sources
// outside obs are included; callers are responsible for padding the
// source grid so edge observation points see all relevant mass.
func (f *ForwardModel) Gradient(layer *MassLayer, density []float64, obs *Grid, obsHeight float64) ([]float64, error) {
	if *layer.Grid != *f.Source {
		return nil, alignmentErrorf("mass layer grid does not match forward-model source grid")
	}
	if len(density) != f.Source.Size() {
		return nil, alignmentErrorf("density vector length %d does not match source grid size %d",
			len(density), f.Source.Size())
	}
	ob := newObserver(obs, obsHeight)
	out := make([]float64, obs.Size())
	for k := 0; k < f.Source.Size(); k++ {
		lon, lat := f.Source.Coords(k)
		ob.accumulate(cellMasses(lon, lat, layer.Top[k], layer.Bottom[k], density[k], f.NMass), out)
	}
	return out, nil
}

// cellGradient adds the effect of a single source cell with the given
// bounding surfaces to out. It is the building block for sensitivity
// matrix columns, where only one cell's interface is perturbed at a
// time.
func (f *ForwardModel) cellGradient(ob *observer, cell int, top, bottom, density float64, out []float64) {
	lon, lat := f.Source.Coords(cell)
	ob.accumulate(cellMasses(lon, lat, top, bottom, density, f.NMass), out)
}
