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
	"math"
	"testing"
)

const testTolerance = 1e-9

func different(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	if a == b {
		return false
	}
	return 2*math.Abs(a-b)/math.Abs(a+b) > tolerance
}

func absDifferent(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance || math.IsNaN(a) || math.IsNaN(b)
}

func TestGridIndexing(t *testing.T) {
	g, err := NewGrid(-45, -41, -85, -83, 1)
	if err != nil {
		t.Fatal(err)
	}
	if g.Nx() != 5 || g.Ny() != 3 || g.Size() != 15 {
		t.Fatalf("grid is %d×%d (%d cells); want 5×3 (15)", g.Nx(), g.Ny(), g.Size())
	}
	for k := 0; k < g.Size(); k++ {
		i, j := g.Split(k)
		if g.Index(i, j) != k {
			t.Errorf("cell %d: Split/Index round trip gives %d", k, g.Index(i, j))
		}
	}
	// Flattened order is sorted by longitude, then latitude.
	prevLon, prevLat := math.Inf(-1), math.Inf(-1)
	for k := 0; k < g.Size(); k++ {
		lon, lat := g.Coords(k)
		if lon < prevLon || (lon == prevLon && lat <= prevLat) {
			t.Errorf("cell %d at (%g, %g) out of order after (%g, %g)",
				k, lon, lat, prevLon, prevLat)
		}
		prevLon, prevLat = lon, lat
	}
	lons, lats := g.Lons(), g.Lats()
	if lons[g.Index(2, 1)] != -43 || lats[g.Index(2, 1)] != -84 {
		t.Errorf("cell (2,1) at (%g, %g); want (-43, -84)",
			lons[g.Index(2, 1)], lats[g.Index(2, 1)])
	}
}

func TestGridConfigErrors(t *testing.T) {
	cases := []struct {
		name                           string
		lonMin, lonMax, latMin, latMax float64
		cellSize                       float64
	}{
		{"bad cell size", 0, 4, 0, 4, 0.5},
		{"empty window", 4, 0, 0, 4, 1},
		{"misaligned window", 0, 3.5, 0, 4, 1},
	}
	for _, c := range cases {
		_, err := NewGrid(c.lonMin, c.lonMax, c.latMin, c.latMax, c.cellSize)
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: got %T, want ConfigError", c.name, err)
		}
	}
}

func TestGridCellAt(t *testing.T) {
	g, err := NewGrid(0, 4, 10, 12, 1)
	if err != nil {
		t.Fatal(err)
	}
	if k, ok := g.CellAt(2.4, 10.6); !ok || k != g.Index(2, 1) {
		t.Errorf("CellAt(2.4, 10.6) = %d, %v; want %d, true", k, ok, g.Index(2, 1))
	}
	if _, ok := g.CellAt(4.6, 11); ok {
		t.Error("CellAt outside the window should report false")
	}
	if _, ok := g.CellAt(2, 9.4); ok {
		t.Error("CellAt south of the window should report false")
	}
}

func TestGridPadCrop(t *testing.T) {
	study, err := NewGrid(-42, -40, -82, -80, 1)
	if err != nil {
		t.Fatal(err)
	}
	padded, err := study.Pad(2)
	if err != nil {
		t.Fatal(err)
	}
	if padded.Nx() != study.Nx()+4 || padded.Ny() != study.Ny()+4 {
		t.Fatalf("padded grid is %d×%d; want %d×%d",
			padded.Nx(), padded.Ny(), study.Nx()+4, study.Ny()+4)
	}
	idx, err := padded.CropTo(study)
	if err != nil {
		t.Fatal(err)
	}
	for k, kk := range idx {
		lon, lat := study.Coords(k)
		plon, plat := padded.Coords(kk)
		if lon != plon || lat != plat {
			t.Errorf("study cell %d at (%g, %g) maps to padded cell at (%g, %g)",
				k, lon, lat, plon, plat)
		}
	}
	if _, err := study.CropTo(padded); err == nil {
		t.Error("cropping to a larger window should fail")
	}
	if _, err := study.Pad(-1); err == nil {
		t.Error("negative padding should fail")
	}
}

func TestGridFieldArrayRoundTrip(t *testing.T) {
	g, err := NewGrid(0, 2, 0, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	field := make([]float64, g.Size())
	for k := range field {
		field[k] = float64(k) * 1.5
	}
	a, err := g.Array(field)
	if err != nil {
		t.Fatal(err)
	}
	if a.Shape[0] != g.Nx() || a.Shape[1] != g.Ny() {
		t.Fatalf("array shape %v; want [%d %d]", a.Shape, g.Nx(), g.Ny())
	}
	back, err := g.Field(a)
	if err != nil {
		t.Fatal(err)
	}
	for k := range field {
		if back[k] != field[k] {
			t.Errorf("cell %d: round trip gives %g, want %g", k, back[k], field[k])
		}
	}
	if _, err := g.Array(field[:3]); err == nil {
		t.Error("short field should fail")
	}
}
