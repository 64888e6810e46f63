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

import "github.com/ctessum/sparse"

// Default densities for the topographic correction [kg/m³].
const (
	DefaultRockDensity = 2670.0
	DefaultIceDensity  = 917.0
)

// Topography holds the surface-relief grids used for the topographic
// correction: bedrock elevation and ice/snow surface elevation relative
// to sea level [m], both on the padded modeling grid. Where there is no
// ice cover the two surfaces coincide.
type Topography struct {
	Grid             *Grid
	Bedrock, Surface *sparse.DenseArray
	RockDensity      float64
	IceDensity       float64
}

// NewTopography validates the elevation grids against g and applies the
// default rock and ice densities.
func NewTopography(g *Grid, bedrock, surface *sparse.DenseArray) (*Topography, error) {
	if _, err := g.Field(bedrock); err != nil {
		return nil, err
	}
	if _, err := g.Field(surface); err != nil {
		return nil, err
	}
	return &Topography{
		Grid:        g,
		Bedrock:     bedrock,
		Surface:     surface,
		RockDensity: DefaultRockDensity,
		IceDensity:  DefaultIceDensity,
	}, nil
}

// TerrainEffect computes the gravity-gradient effect [Eötvös] of
// surface relief at obsHeight meters above sea level, evaluated at the
// cell centers of the topography grid. The result is subtracted from
// the observed signal to form the Bouguer anomaly. Two layers are
// modeled: bedrock to sea level at rock density, and the ice column
// between the surface and the bedrock at ice density. The correction is
// computed once per run; it does not depend on the density-contrast
// search.
func (t *Topography) TerrainEffect(nMass int, obsHeight float64) ([]float64, error) {
	fm, err := NewForwardModel(t.Grid, nMass)
	if err != nil {
		return nil, err
	}
	bed, err := t.Grid.Field(t.Bedrock)
	if err != nil {
		return nil, err
	}
	surf, err := t.Grid.Field(t.Surface)
	if err != nil {
		return nil, err
	}

	n := t.Grid.Size()
	zero := make([]float64, n)
	rockDens := make([]float64, n)
	iceDens := make([]float64, n)
	for i := 0; i < n; i++ {
		rockDens[i] = t.RockDensity
		iceDens[i] = t.IceDensity
	}

	rock, err := NewMassLayer(t.Grid, bed, zero)
	if err != nil {
		return nil, err
	}
	out, err := fm.Gradient(rock, rockDens, t.Grid, obsHeight)
	if err != nil {
		return nil, err
	}

	ice, err := NewMassLayer(t.Grid, surf, bed)
	if err != nil {
		return nil, err
	}
	iceEffect, err := fm.Gradient(ice, iceDens, t.Grid, obsHeight)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] += iceEffect[i]
	}
	return out, nil
}
