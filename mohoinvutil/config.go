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
	"math"
	"os"

	"github.com/geomodel/mohoinv"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// ConfigData holds the decoded and validated run configuration.
type ConfigData struct {
	// Study window cell-center bounds [degrees].
	LonMin, LonMax, LatMin, LatMax float64

	CellSize float64 // angular cell size [degrees]; must be 1
	Overlap  float64 // padding margin around the study window [degrees]

	RefDepth   float64 // reference Moho depth [m, positive down]
	RefDensity float64 // reference density contrast [kg/m³]

	// Candidate density-contrast range swept by the search [kg/m³].
	DensityMin, DensityMax, DensityStep float64

	RegWeight         float64 // Tikhonov regularization weight
	PointMassNumber   int     // point masses per tesseroid, 1 or 2
	ObservationHeight float64 // satellite observation height [m]

	RockDensity, IceDensity float64 // topographic-correction densities [kg/m³]

	NUnits  int // number of tectonic units
	MaxIter int // inverter correction iterations; 0 means the default
	Workers int // concurrent combination solvers; 0 means GOMAXPROCS

	GravityFile, GravityVar string // observed gravity-gradient grid (NetCDF)
	BedrockFile, BedrockVar string // bedrock elevation grid (NetCDF)
	SurfaceFile, SurfaceVar string // ice/snow surface elevation grid (NetCDF)
	UnitsFile, UnitsVar     string // tectonic-unit label grid (NetCDF)
	StationsFile            string // seismic control points (point shapefile)

	OutputFile string // best-fit model output (NetCDF)
	ScoresFile string // scoring table output (CSV)
}

// Config unmarshals the viper configuration and fails fast on any
// invalid setting, so that a multi-hour sweep cannot start on bad
// inputs.
func Config(cfg *viper.Viper) (*ConfigData, error) {
	workers, err := cast.ToIntE(cfg.Get("Workers"))
	if err != nil {
		return nil, fmt.Errorf("mohoinvutil: Workers: %v", err)
	}
	c := &ConfigData{
		LonMin:            cfg.GetFloat64("LonMin"),
		LonMax:            cfg.GetFloat64("LonMax"),
		LatMin:            cfg.GetFloat64("LatMin"),
		LatMax:            cfg.GetFloat64("LatMax"),
		CellSize:          cfg.GetFloat64("CellSize"),
		Overlap:           cfg.GetFloat64("Overlap"),
		RefDepth:          cfg.GetFloat64("RefDepth"),
		RefDensity:        cfg.GetFloat64("RefDensity"),
		DensityMin:        cfg.GetFloat64("DensityMin"),
		DensityMax:        cfg.GetFloat64("DensityMax"),
		DensityStep:       cfg.GetFloat64("DensityStep"),
		RegWeight:         cfg.GetFloat64("RegWeight"),
		PointMassNumber:   cfg.GetInt("PointMassNumber"),
		ObservationHeight: cfg.GetFloat64("ObservationHeight"),
		RockDensity:       cfg.GetFloat64("RockDensity"),
		IceDensity:        cfg.GetFloat64("IceDensity"),
		NUnits:            cfg.GetInt("NUnits"),
		MaxIter:           cfg.GetInt("MaxIter"),
		Workers:           workers,
		GravityFile:       os.ExpandEnv(cfg.GetString("GravityFile")),
		GravityVar:        cfg.GetString("GravityVar"),
		BedrockFile:       os.ExpandEnv(cfg.GetString("BedrockFile")),
		BedrockVar:        cfg.GetString("BedrockVar"),
		SurfaceFile:       os.ExpandEnv(cfg.GetString("SurfaceFile")),
		SurfaceVar:        cfg.GetString("SurfaceVar"),
		UnitsFile:         os.ExpandEnv(cfg.GetString("UnitsFile")),
		UnitsVar:          cfg.GetString("UnitsVar"),
		StationsFile:      os.ExpandEnv(cfg.GetString("StationsFile")),
		OutputFile:        os.ExpandEnv(cfg.GetString("OutputFile")),
		ScoresFile:        os.ExpandEnv(cfg.GetString("ScoresFile")),
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

// check validates the configuration before any data is loaded.
func (c *ConfigData) check() error {
	if math.Abs(c.CellSize-mohoinv.CellSize) > 1e-9 {
		return fmt.Errorf("mohoinvutil: CellSize must be %g°, got %g°", mohoinv.CellSize, c.CellSize)
	}
	if c.LonMax < c.LonMin || c.LatMax < c.LatMin {
		return fmt.Errorf("mohoinvutil: study window [%g,%g]×[%g,%g] is empty",
			c.LonMin, c.LonMax, c.LatMin, c.LatMax)
	}
	if c.PointMassNumber != 1 && c.PointMassNumber != 2 {
		return fmt.Errorf("mohoinvutil: PointMassNumber must be 1 or 2, got %d", c.PointMassNumber)
	}
	if !(c.RefDensity > 0) {
		return fmt.Errorf("mohoinvutil: RefDensity must be positive, got %g", c.RefDensity)
	}
	if !(c.RefDepth > 0) {
		return fmt.Errorf("mohoinvutil: RefDepth must be positive, got %g", c.RefDepth)
	}
	if !(c.DensityStep > 0) || c.DensityMax < c.DensityMin {
		return fmt.Errorf("mohoinvutil: invalid density range [%g, %g] step %g",
			c.DensityMin, c.DensityMax, c.DensityStep)
	}
	if c.NUnits < 1 || c.NUnits > mohoinv.MaxUnits {
		return fmt.Errorf("mohoinvutil: NUnits must be between 1 and %d, got %d",
			mohoinv.MaxUnits, c.NUnits)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("mohoinvutil: Overlap must be non-negative, got %g", c.Overlap)
	}
	if !(c.ObservationHeight > 0) {
		return fmt.Errorf("mohoinvutil: ObservationHeight must be positive, got %g", c.ObservationHeight)
	}
	if c.RegWeight < 0 {
		return fmt.Errorf("mohoinvutil: RegWeight must be non-negative, got %g", c.RegWeight)
	}
	if c.GravityFile == "" {
		return fmt.Errorf("mohoinvutil: no GravityFile specified")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("mohoinvutil: no OutputFile specified")
	}
	return nil
}

// DensityValues expands the configured range into the candidate
// density-contrast values swept by the search.
func (c *ConfigData) DensityValues() []float64 {
	var o []float64
	for v := c.DensityMin; v <= c.DensityMax+1e-9; v += c.DensityStep {
		o = append(o, v)
	}
	return o
}
