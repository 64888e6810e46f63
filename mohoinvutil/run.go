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

package mohoinvutil

import (
	"fmt"
	"os"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"
	"github.com/geomodel/mohoinv"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
)

// inputs holds the loaded observation data and the derived operators
// shared by every density combination.
type inputs struct {
	study, padded *mohoinv.Grid
	bouguer       []float64 // residual gravity on the study grid [Eötvös]
	start         []float64 // starting Moho depth [m]
	region        *mohoinv.Regionalization
	points        []mohoinv.ControlPoint
	jac           *mohoinv.Jacobian
	inv           *mohoinv.Inverter
}

// readGridFile reads one gridded NetCDF variable from disk.
func readGridFile(path, varName string) (*mohoinv.Grid, *sparse.DenseArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("mohoinvutil: opening %s: %v", path, err)
	}
	defer f.Close()
	return mohoinv.ReadGridVar(f, varName)
}

// cropField moves a flattened field from one grid to a sub-grid.
func cropField(from *mohoinv.Grid, field []float64, to *mohoinv.Grid) ([]float64, error) {
	idx, err := from.CropTo(to)
	if err != nil {
		return nil, err
	}
	o := make([]float64, len(idx))
	for k, kk := range idx {
		o[k] = field[kk]
	}
	return o, nil
}

// loadGridded reads the variable from path and re-registers it on the
// target grid, validating coverage.
func loadGridded(path, varName string, target *mohoinv.Grid) ([]float64, error) {
	g, a, err := readGridFile(path, varName)
	if err != nil {
		return nil, err
	}
	field, err := g.Field(a)
	if err != nil {
		return nil, err
	}
	return cropField(g, field, target)
}

// loadInputs loads all observation data, applies the topographic
// correction, and builds the reference sensitivity matrices. All
// alignment validation happens here, before the sweep starts.
func loadInputs(c *ConfigData, log *logrus.Logger) (*inputs, error) {
	study, err := mohoinv.NewGrid(c.LonMin, c.LonMax, c.LatMin, c.LatMax, c.CellSize)
	if err != nil {
		return nil, err
	}
	padded, err := study.Pad(c.Overlap)
	if err != nil {
		return nil, err
	}
	in := &inputs{study: study, padded: padded}

	log.WithField("file", c.GravityFile).Info("loading gravity-gradient grid")
	gravity, err := loadGridded(c.GravityFile, c.GravityVar, padded)
	if err != nil {
		return nil, err
	}

	if c.BedrockFile != "" {
		log.Info("computing topographic correction")
		bed, err := loadGridded(c.BedrockFile, c.BedrockVar, padded)
		if err != nil {
			return nil, err
		}
		surf := bed
		if c.SurfaceFile != "" {
			if surf, err = loadGridded(c.SurfaceFile, c.SurfaceVar, padded); err != nil {
				return nil, err
			}
		}
		bedArr, err := padded.Array(bed)
		if err != nil {
			return nil, err
		}
		surfArr, err := padded.Array(surf)
		if err != nil {
			return nil, err
		}
		topo, err := mohoinv.NewTopography(padded, bedArr, surfArr)
		if err != nil {
			return nil, err
		}
		if c.RockDensity > 0 {
			topo.RockDensity = c.RockDensity
		}
		if c.IceDensity > 0 {
			topo.IceDensity = c.IceDensity
		}
		effect, err := topo.TerrainEffect(c.PointMassNumber, c.ObservationHeight)
		if err != nil {
			return nil, err
		}
		for i := range gravity {
			gravity[i] -= effect[i]
		}
	}

	// Crop the Bouguer field to the study window and remove its mean;
	// the inversion operates on the residual around the reference
	// model, not on the absolute field.
	bouguer, err := cropField(padded, gravity, study)
	if err != nil {
		return nil, err
	}
	mean := stats.StatsMean(bouguer)
	for i := range bouguer {
		bouguer[i] -= mean
	}
	in.bouguer = bouguer

	if c.UnitsFile != "" {
		units, err := loadGridded(c.UnitsFile, c.UnitsVar, study)
		if err != nil {
			return nil, err
		}
		arr, err := study.Array(units)
		if err != nil {
			return nil, err
		}
		if in.region, err = mohoinv.NewRegionalization(study, arr, c.NUnits); err != nil {
			return nil, err
		}
	} else {
		if c.NUnits != 1 {
			return nil, fmt.Errorf("mohoinvutil: NUnits=%d but no UnitsFile specified", c.NUnits)
		}
		arr := sparse.ZerosDense(study.Nx(), study.Ny())
		if in.region, err = mohoinv.NewRegionalization(study, arr, 1); err != nil {
			return nil, err
		}
	}

	if c.StationsFile != "" {
		pts, err := mohoinv.ReadControlPoints(c.StationsFile)
		if err != nil {
			return nil, err
		}
		in.points = mohoinv.FilterControlPoints(study, pts)
		log.WithFields(logrus.Fields{
			"total":  len(pts),
			"inside": len(in.points),
		}).Info("loaded seismic control points")
	}

	in.start = make([]float64, study.Size())
	for i := range in.start {
		in.start[i] = c.RefDepth
	}

	log.Info("building reference sensitivity matrices")
	fm, err := mohoinv.NewForwardModel(study, c.PointMassNumber)
	if err != nil {
		return nil, err
	}
	in.jac, err = mohoinv.BuildJacobian(fm, c.RefDepth, in.start, c.RefDensity, c.ObservationHeight)
	if err != nil {
		return nil, err
	}
	in.inv = &mohoinv.Inverter{
		Damping: mohoinv.Roughness(study, c.RegWeight),
		MaxIter: c.MaxIter,
	}
	return in, nil
}

// RunSearch executes the full density-contrast sweep and writes the
// scoring table and the best-fit model.
func RunSearch(cfg *viper.Viper, log *logrus.Logger) error {
	c, err := Config(cfg)
	if err != nil {
		return err
	}
	in, err := loadInputs(c, log)
	if err != nil {
		return err
	}

	result, err := mohoinv.Search(in.jac, in.inv, in.bouguer, in.start, in.points, mohoinv.SearchOptions{
		Densities: c.DensityValues(),
		Region:    in.region,
		RegWeight: c.RegWeight,
		Workers:   c.Workers,
		Progress:  log.Writer(),
	})
	if err != nil {
		return err
	}

	var gravityRMS []float64
	for _, r := range result.Records {
		if !r.Failed {
			gravityRMS = append(gravityRMS, r.GravityRMS)
		}
	}
	rec, depth, dens, ok := result.Best.Model()
	if !ok {
		return fmt.Errorf("mohoinvutil: every density combination failed")
	}
	log.WithFields(logrus.Fields{
		"combinations": len(result.Records),
		"failed":       len(result.Records) - len(gravityRMS),
		"bestRMS":      stats.StatsMin(gravityRMS),
		"meanRMS":      stats.StatsMean(gravityRMS),
		"densities":    rec.Densities,
	}).Info("search finished")

	if c.ScoresFile != "" {
		f, err := os.Create(c.ScoresFile)
		if err != nil {
			return fmt.Errorf("mohoinvutil: creating scores file: %v", err)
		}
		defer f.Close()
		if err := mohoinv.WriteScores(f, result.Records); err != nil {
			return err
		}
	}
	mohoinv.FprintScores(os.Stdout, result.Records, 10)

	return writeModel(c, in.study, depth, dens)
}

// RunInvert performs a single inversion with the reference density
// contrast in every unit and writes the resulting model.
func RunInvert(cfg *viper.Viper, log *logrus.Logger) error {
	c, err := Config(cfg)
	if err != nil {
		return err
	}
	in, err := loadInputs(c, log)
	if err != nil {
		return err
	}
	res, err := in.inv.Invert(in.jac, in.bouguer, in.start)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"iterations": res.Iterations,
		"density":    c.RefDensity,
	}).Info("inversion finished")
	dens := make([]float64, in.study.Size())
	for i := range dens {
		dens[i] = c.RefDensity
	}
	return writeModel(c, in.study, res.Depth, dens)
}

func writeModel(c *ConfigData, g *mohoinv.Grid, depth, density []float64) error {
	f, err := os.Create(c.OutputFile)
	if err != nil {
		return fmt.Errorf("mohoinvutil: creating output file: %v", err)
	}
	defer f.Close()
	return mohoinv.WriteModel(f, g, depth, density)
}
