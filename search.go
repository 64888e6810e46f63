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
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/GaryBoone/GoStats/stats"
)

// Record scores one density combination of the search. Records are
// appended per combination and finally ranked ascending by gravity-fit
// RMS.
type Record struct {
	Row       int       // combination-matrix row
	Densities []float64 // density contrast per unit [kg/m³]

	GravityRMS float64 // RMS of the residual gravity field [Eötvös]
	PointRMS   float64 // RMS Moho misfit at seismic control points [m]
	GridRMS    float64 // RMS Moho change over the full grid vs. the starting model [m]

	// Regression of interpolated model depth against control-point
	// depth, as a shape diagnostic alongside the RMS values.
	Slope, Intercept, R2 float64

	RegWeight float64 // regularization weight (back-filled at finalization)
	RefDepth  float64 // reference Moho depth [m] (back-filled at finalization)

	Failed bool   // the combination's solve failed and was skipped
	Note   string // failure detail
}

// BestFit accumulates the lowest-misfit model seen so far. Updates are
// serialized so that concurrent workers cannot interleave a score with
// another worker's grids; the stored grids always belong to the stored
// record.
type BestFit struct {
	mu    sync.Mutex
	valid bool
	rec   Record
	depth []float64
	dens  []float64
}

// update installs the candidate if its gravity-fit RMS strictly
// improves on the current best. It reports whether the candidate won.
func (b *BestFit) update(rec Record, depth, dens []float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.valid && rec.GravityRMS >= b.rec.GravityRMS {
		return false
	}
	b.valid = true
	b.rec = rec
	b.depth = depth
	b.dens = dens
	return true
}

// Model returns the best-fit scoring record and the corresponding
// Moho-depth and density grids. ok is false if no combination succeeded.
func (b *BestFit) Model() (rec Record, depth, density []float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rec, b.depth, b.dens, b.valid
}

// SearchOptions configures a density-contrast sweep.
type SearchOptions struct {
	Densities []float64        // candidate density-contrast values [kg/m³]
	Region    *Regionalization // tectonic-unit membership of the grid cells
	RegWeight float64          // regularization weight recorded with each score

	// Workers is the number of concurrent combination solvers. Zero
	// means GOMAXPROCS.
	Workers int

	// Progress, if non-nil, receives one status line per combination.
	Progress io.Writer
}

// SearchResult holds the finalized scoring table and the best-fit model.
type SearchResult struct {
	Records []Record // ranked ascending by gravity-fit RMS, failed rows last
	Best    *BestFit
}

// Search sweeps every density-contrast combination across the tectonic
// units: each combination broadcasts its unit densities onto the grid,
// rescales the reference sensitivity matrices, runs the regularized
// inversion against g, interpolates the inverted Moho onto the seismic
// control points, and records RMS misfits. The sensitivity rescale is
// algebraic, so no forward model runs inside the loop.
//
// Combinations are independent given the shared read-only reference
// Jacobian, so they are solved by a worker pool; each worker owns its
// scaled matrix copies and its rows of the scoring table, and the
// best-fit model is committed under a single lock, only for fully-valid
// records. A NumericalError in one combination marks that record failed
// and the sweep continues; any other error aborts the sweep.
func Search(jac *Jacobian, inv *Inverter, g, start []float64, pts []ControlPoint, opts SearchOptions) (*SearchResult, error) {
	if jac.Density != nil {
		return nil, configErrorf("search requires the reference sensitivity build")
	}
	if opts.Region == nil {
		return nil, configErrorf("no tectonic regionalization given")
	}
	combs, err := Combinations(opts.Densities, opts.Region.NUnits())
	if err != nil {
		return nil, err
	}

	nprocs := opts.Workers
	if nprocs <= 0 {
		nprocs = runtime.GOMAXPROCS(0)
	}
	if nprocs > len(combs) {
		nprocs = len(combs)
	}

	result := &SearchResult{
		Records: make([]Record, len(combs)),
		Best:    &BestFit{},
	}
	var progressMu sync.Mutex
	startTime := time.Now()

	errs := make([]error, nprocs)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for row := pp; row < len(combs); row += nprocs {
				rec, depth, dens, err := evaluateCombination(jac, inv, g, start, pts, combs[row], row, opts)
				if err != nil {
					errs[pp] = err
					return
				}
				result.Records[row] = rec
				if !rec.Failed {
					result.Best.update(rec, depth, dens)
				}
				if opts.Progress != nil {
					progressMu.Lock()
					status := fmt.Sprintf("gravity RMS=%.4g", rec.GravityRMS)
					if rec.Failed {
						status = "failed: " + rec.Note
					}
					fmt.Fprintf(opts.Progress, "combination %-4d of %d  densities=%v  %s  walltime=%.3gs\n",
						row+1, len(combs), rec.Densities, status, time.Since(startTime).Seconds())
					progressMu.Unlock()
				}
			}
		}(pp)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Finalize: back-fill the run-constant columns and rank by
	// gravity-fit RMS, failed combinations last.
	for i := range result.Records {
		result.Records[i].RegWeight = opts.RegWeight
		result.Records[i].RefDepth = jac.RefDepth
	}
	sort.SliceStable(result.Records, func(a, b int) bool {
		ra, rb := &result.Records[a], &result.Records[b]
		if ra.Failed != rb.Failed {
			return rb.Failed
		}
		return ra.GravityRMS < rb.GravityRMS
	})
	return result, nil
}

// evaluateCombination runs steps 1–5 of the per-combination pipeline
// and assembles the scoring record. A NumericalError is folded into a
// failed record; other errors propagate.
func evaluateCombination(jac *Jacobian, inv *Inverter, g, start []float64, pts []ControlPoint,
	comb []float64, row int, opts SearchOptions) (Record, []float64, []float64, error) {

	rec := Record{Row: row, Densities: comb}

	dens, err := opts.Region.Broadcast(comb)
	if err != nil {
		return rec, nil, nil, err
	}
	scaled, err := jac.Rescale(dens)
	if err != nil {
		return rec, nil, nil, err
	}
	res, err := inv.Invert(scaled, g, start)
	if err != nil {
		var numErr *NumericalError
		if errors.As(err, &numErr) {
			rec.Failed = true
			rec.Note = numErr.Msg
			return rec, nil, nil, nil
		}
		return rec, nil, nil, err
	}

	rec.GravityRMS = rms(res.Residual)
	diff := make([]float64, len(start))
	for i := range diff {
		diff[i] = res.Depth[i] - start[i]
	}
	rec.GridRMS = rms(diff)

	if len(pts) > 0 {
		pred, err := InterpolateAt(jac.Grid, res.Depth, pts)
		if err != nil {
			return rec, nil, nil, err
		}
		obs := make([]float64, len(pts))
		for i, p := range pts {
			obs[i] = p.Depth
		}
		misfit := make([]float64, len(pts))
		for i := range misfit {
			misfit[i] = pred[i] - obs[i]
		}
		rec.PointRMS = rms(misfit)
		if len(pts) > 2 {
			rec.Slope, rec.Intercept, rec.R2, _, _, _ = stats.LinearRegression(obs, pred)
		}
	}
	return rec, res.Depth, dens, nil
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s / float64(len(x)))
}
