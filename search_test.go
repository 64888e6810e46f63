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
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// searchFixture is the end-to-end scenario: a 3×3 grid with one
// tectonic unit, a flat 30 km reference Moho, and a synthetic gravity
// field forward-modeled from a known Moho perturbation at a known
// density contrast.
type searchFixture struct {
	grid    *Grid
	jac     *Jacobian
	inv     *Inverter
	start   []float64
	g       []float64
	region  *Regionalization
	pts     []ControlPoint
	dhTruth []float64
}

const truthDensity = 350.0

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	g, err := NewGrid(0, 2, 0, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	n := g.Size()
	f := &searchFixture{
		grid:    g,
		start:   make([]float64, n),
		dhTruth: make([]float64, n),
	}
	for i := range f.start {
		f.start[i] = testRefDepth
	}
	// A smooth bump peaking at the center cell.
	for k := 0; k < n; k++ {
		i, j := g.Split(k)
		f.dhTruth[k] = 1000 * math.Exp(-float64((i-1)*(i-1)+(j-1)*(j-1)))
	}

	// Synthetic observation: the true nonlinear gravity effect of the
	// anomalous layer between the reference depth and the perturbed
	// Moho, at the true density contrast.
	fm, err := NewForwardModel(g, 1)
	if err != nil {
		t.Fatal(err)
	}
	top := make([]float64, n)
	bottom := make([]float64, n)
	density := make([]float64, n)
	for k := 0; k < n; k++ {
		top[k] = -testRefDepth
		bottom[k] = -(f.start[k] + f.dhTruth[k])
		density[k] = -truthDensity
	}
	layer, err := NewMassLayer(g, top, bottom)
	if err != nil {
		t.Fatal(err)
	}
	if f.g, err = fm.Gradient(layer, density, g, testObsHeight); err != nil {
		t.Fatal(err)
	}

	if f.jac, err = BuildJacobian(fm, testRefDepth, f.start, 400, testObsHeight); err != nil {
		t.Fatal(err)
	}
	f.inv = &Inverter{
		Damping: Roughness(g, 100),
		MaxIter: 50,
		Tol:     1e-10,
	}

	labels := sparse.ZerosDense(g.Nx(), g.Ny())
	if f.region, err = NewRegionalization(g, labels, 1); err != nil {
		t.Fatal(err)
	}
	for _, k := range []int{g.Index(1, 1), g.Index(0, 1), g.Index(2, 1), g.Index(1, 0)} {
		lon, lat := g.Coords(k)
		f.pts = append(f.pts, ControlPoint{
			Point: geom.Point{X: lon, Y: lat},
			Depth: f.start[k] + f.dhTruth[k],
		})
	}
	return f
}

// Inverting at the generating density contrast must recover the known
// Moho perturbation.
func TestInvertRecoversTruth(t *testing.T) {
	f := newSearchFixture(t)
	density, err := f.region.Broadcast([]float64{truthDensity})
	if err != nil {
		t.Fatal(err)
	}
	scaled, err := f.jac.Rescale(density)
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.inv.Invert(scaled, f.g, f.start)
	if err != nil {
		t.Fatal(err)
	}
	for k := range f.dhTruth {
		if math.Abs(res.Update[k]-f.dhTruth[k]) > 0.05*f.dhTruth[k]+25 {
			t.Errorf("cell %d: recovered update %g m; want %g m", k, res.Update[k], f.dhTruth[k])
		}
	}
}

func TestSearchEndToEnd(t *testing.T) {
	f := newSearchFixture(t)
	result, err := Search(f.jac, f.inv, f.g, f.start, f.pts, SearchOptions{
		Densities: []float64{300, 350, 400},
		Region:    f.region,
		RegWeight: 100,
		Workers:   2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 3 {
		t.Fatalf("got %d records; want 3", len(result.Records))
	}
	for _, r := range result.Records {
		if r.Failed {
			t.Fatalf("combination %v failed: %s", r.Densities, r.Note)
		}
		if r.RegWeight != 100 || r.RefDepth != testRefDepth {
			t.Errorf("combination %v: back-filled columns %g, %g; want 100, %g",
				r.Densities, r.RegWeight, r.RefDepth, testRefDepth)
		}
		if r.GridRMS <= 0 {
			t.Errorf("combination %v: grid RMS %g; want positive", r.Densities, r.GridRMS)
		}
	}

	// Finalized records are ranked ascending by gravity-fit RMS.
	for i := 1; i < len(result.Records); i++ {
		if result.Records[i].GravityRMS < result.Records[i-1].GravityRMS {
			t.Errorf("records out of order at rank %d: %g after %g",
				i, result.Records[i].GravityRMS, result.Records[i-1].GravityRMS)
		}
	}

	// The generating combination must rank at or near the top, and the
	// winner must be within one increment step of the true density.
	rec, depth, dens, ok := result.Best.Model()
	if !ok {
		t.Fatal("no best-fit model")
	}
	if math.Abs(rec.Densities[0]-truthDensity) > 50 {
		t.Errorf("best-fit density %g; want within one step of %g", rec.Densities[0], truthDensity)
	}
	for rank, r := range result.Records {
		if r.Densities[0] == truthDensity && rank > 1 {
			t.Errorf("generating combination ranked %d; want 0 or 1", rank)
		}
	}

	// The seismic control points single out the true density: models
	// inverted at the wrong contrast misplace the Moho by the density
	// ratio, which dwarfs the regularization bias at the right one.
	byDensity := make(map[float64]Record)
	for _, r := range result.Records {
		byDensity[r.Densities[0]] = r
	}
	if !(byDensity[350].PointRMS < byDensity[300].PointRMS) ||
		!(byDensity[350].PointRMS < byDensity[400].PointRMS) {
		t.Errorf("point RMS does not prefer the true density: 300→%g, 350→%g, 400→%g",
			byDensity[300].PointRMS, byDensity[350].PointRMS, byDensity[400].PointRMS)
	}

	if len(depth) != f.grid.Size() || len(dens) != f.grid.Size() {
		t.Fatalf("best-fit grids have lengths %d, %d; want %d", len(depth), len(dens), f.grid.Size())
	}
	for k := range dens {
		if dens[k] != rec.Densities[0] {
			t.Errorf("cell %d: best-fit density grid holds %g; want %g", k, dens[k], rec.Densities[0])
		}
	}
}

func TestSearchRequiresReferenceBuild(t *testing.T) {
	f := newSearchFixture(t)
	density, err := f.region.Broadcast([]float64{300})
	if err != nil {
		t.Fatal(err)
	}
	scaled, err := f.jac.Rescale(density)
	if err != nil {
		t.Fatal(err)
	}
	opts := SearchOptions{Densities: []float64{300}, Region: f.region}
	if _, err := Search(scaled, f.inv, f.g, f.start, nil, opts); err == nil {
		t.Error("search on a rescaled Jacobian should fail")
	}
	opts.Region = nil
	if _, err := Search(f.jac, f.inv, f.g, f.start, nil, opts); err == nil {
		t.Error("search without a regionalization should fail")
	}
}

// A zero candidate density rescales to a vanishing Jacobian; the
// combination completes with no update rather than failing.
func TestSearchZeroDensity(t *testing.T) {
	f := newSearchFixture(t)
	result, err := Search(f.jac, f.inv, f.g, f.start, nil, SearchOptions{
		Densities: []float64{0, 350},
		Region:    f.region,
		RegWeight: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	byDensity := make(map[float64]Record)
	for _, r := range result.Records {
		byDensity[r.Densities[0]] = r
	}
	zero := byDensity[0]
	if zero.Failed {
		t.Fatalf("zero-density combination failed: %s", zero.Note)
	}
	if zero.GridRMS != 0 {
		t.Errorf("zero-density combination changed the grid: RMS %g", zero.GridRMS)
	}
	if !(byDensity[350].GravityRMS < zero.GravityRMS) {
		t.Errorf("no-update model fits better than the inverted one: %g vs %g",
			zero.GravityRMS, byDensity[350].GravityRMS)
	}
}
