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
	"fmt"
	"testing"

	"github.com/ctessum/sparse"
)

func TestCombinations(t *testing.T) {
	values := []float64{300, 350, 400}
	combs, err := Combinations(values, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(combs) != 9 {
		t.Fatalf("got %d combinations; want 9", len(combs))
	}
	// The last unit varies fastest.
	wantFirst := [][]float64{{300, 300}, {300, 350}, {300, 400}, {350, 300}}
	for r, want := range wantFirst {
		for u := range want {
			if combs[r][u] != want[u] {
				t.Errorf("row %d = %v; want %v", r, combs[r], want)
				break
			}
		}
	}
	seen := make(map[string]bool)
	for _, row := range combs {
		key := fmt.Sprint(row)
		if seen[key] {
			t.Errorf("duplicate combination %v", row)
		}
		seen[key] = true
	}
}

func TestCombinationsErrors(t *testing.T) {
	if _, err := Combinations(nil, 1); err == nil {
		t.Error("empty value set should fail")
	}
	if _, err := Combinations([]float64{300}, 0); err == nil {
		t.Error("zero units should fail")
	}
	if _, err := Combinations([]float64{300}, MaxUnits+1); err == nil {
		t.Error("too many units should fail")
	}
}

func TestRegionalizationBroadcast(t *testing.T) {
	g, err := NewGrid(0, 1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	labels := sparse.ZerosDense(2, 2)
	copy(labels.Elements, []float64{0, 1, 1, 0})
	r, err := NewRegionalization(g, labels, 2)
	if err != nil {
		t.Fatal(err)
	}
	if r.NUnits() != 2 {
		t.Fatalf("NUnits = %d; want 2", r.NUnits())
	}
	dens, err := r.Broadcast([]float64{100, 200})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{100, 200, 200, 100}
	for k := range want {
		if dens[k] != want[k] {
			t.Errorf("cell %d: density %g; want %g", k, dens[k], want[k])
		}
		if r.Unit(k) != int(want[k]/100)-1 {
			t.Errorf("cell %d: unit %d; want %d", k, r.Unit(k), int(want[k]/100)-1)
		}
	}
	if _, err := r.Broadcast([]float64{100}); err == nil {
		t.Error("short density vector should fail")
	}
}

func TestRegionalizationLabelValidation(t *testing.T) {
	g, err := NewGrid(0, 1, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	labels := sparse.ZerosDense(2, 2)
	copy(labels.Elements, []float64{0, 0.5, 1, 0})
	if _, err := NewRegionalization(g, labels, 2); err == nil {
		t.Error("non-integer label should fail")
	}
	copy(labels.Elements, []float64{0, 2, 1, 0})
	if _, err := NewRegionalization(g, labels, 2); err == nil {
		t.Error("out-of-range label should fail")
	}
	copy(labels.Elements, []float64{0, 0, 0, 0})
	if _, err := NewRegionalization(g, labels, MaxUnits+1); err == nil {
		t.Error("unit count above the maximum should fail")
	}
}
