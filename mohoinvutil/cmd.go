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

// Package mohoinvutil holds the command-line interface and
// configuration plumbing for the MohoInv gravity-inversion model.
package mohoinvutil

import (
	"fmt"

	"github.com/geomodel/mohoinv"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// Log is the run-lifecycle logger.
var Log = logrus.New()

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to MohoInv.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LonMin",
			usage: `
              LonMin is the western cell-center bound of the study window [degrees].`,
			defaultVal: -45.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LonMax",
			usage: `
              LonMax is the eastern cell-center bound of the study window [degrees].`,
			defaultVal: -35.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LatMin",
			usage: `
              LatMin is the southern cell-center bound of the study window [degrees].`,
			defaultVal: -85.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LatMax",
			usage: `
              LatMax is the northern cell-center bound of the study window [degrees].`,
			defaultVal: -75.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CellSize",
			usage: `
              CellSize is the angular size of a grid cell [degrees]. The model
              grid is fixed at 1° resolution; other values are rejected.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Overlap",
			usage: `
              Overlap is the margin added around the study window for forward
              modeling [degrees], so that observation points at the window edge
              still see source mass from outside it.`,
			defaultVal: 3.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "RefDepth",
			usage: `
              RefDepth is the reference Moho depth [m, positive down]. The
              inversion estimates perturbations around this depth.`,
			defaultVal: 30000.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "RefDensity",
			usage: `
              RefDensity is the density contrast used for the reference
              sensitivity build [kg/m³]. It must be positive: sensitivities for
              other density values are obtained by exact rescaling, which
              divides by this value.`,
			defaultVal: 400.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "DensityMin",
			usage: `
              DensityMin is the smallest candidate density contrast swept by
              the search [kg/m³].`,
			defaultVal: 250.0,
			flagsets:   []*pflag.FlagSet{searchCmd.Flags()},
		},
		{
			name: "DensityMax",
			usage: `
              DensityMax is the largest candidate density contrast swept by
              the search [kg/m³].`,
			defaultVal: 450.0,
			flagsets:   []*pflag.FlagSet{searchCmd.Flags()},
		},
		{
			name: "DensityStep",
			usage: `
              DensityStep is the increment between candidate density
              contrasts [kg/m³].`,
			defaultVal: 50.0,
			flagsets:   []*pflag.FlagSet{searchCmd.Flags()},
		},
		{
			name: "RegWeight",
			usage: `
              RegWeight is the Tikhonov regularization weight applied to the
              second-order smoothing operator.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "PointMassNumber",
			usage: `
              PointMassNumber is the number of point masses approximating each
              tesseroid, 1 or 2. Two masses better represent the extended
              vertical mass distribution at extra compute cost.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ObservationHeight",
			usage: `
              ObservationHeight is the satellite observation height above sea
              level [m].`,
			defaultVal: 225000.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "RockDensity",
			usage: `
              RockDensity is the bedrock density used by the topographic
              correction [kg/m³].`,
			defaultVal: mohoinv.DefaultRockDensity,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "IceDensity",
			usage: `
              IceDensity is the ice/snow density used by the topographic
              correction [kg/m³].`,
			defaultVal: mohoinv.DefaultIceDensity,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "NUnits",
			usage: `
              NUnits is the number of tectonic units in the regionalization;
              at most 6.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MaxIter",
			usage: `
              MaxIter bounds the second-order correction iterations of the
              inverter. Zero selects the built-in default.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of density combinations solved
              concurrently. Zero means one worker per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{searchCmd.Flags()},
		},
		{
			name: "GravityFile",
			usage: `
              GravityFile is the NetCDF file holding the observed
              gravity-gradient grid on the padded window. Can include
              environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "GravityVar",
			usage: `
              GravityVar is the gravity-gradient variable name in GravityFile.`,
			defaultVal: "GravityGradient",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "BedrockFile",
			usage: `
              BedrockFile is the NetCDF file holding bedrock elevation for the
              topographic correction. If empty, the gravity input is assumed to
              be a Bouguer anomaly already.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "BedrockVar",
			usage: `
              BedrockVar is the bedrock elevation variable name in BedrockFile.`,
			defaultVal: "Bedrock",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "SurfaceFile",
			usage: `
              SurfaceFile is the NetCDF file holding the ice/snow surface
              elevation. If empty, the bedrock surface is used (no ice layer).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "SurfaceVar",
			usage: `
              SurfaceVar is the surface elevation variable name in SurfaceFile.`,
			defaultVal: "Surface",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "UnitsFile",
			usage: `
              UnitsFile is the NetCDF file holding the tectonic-unit label
              grid. If empty, a single unit covers the study window.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "UnitsVar",
			usage: `
              UnitsVar is the unit label variable name in UnitsFile.`,
			defaultVal: "Unit",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "StationsFile",
			usage: `
              StationsFile is a point shapefile of seismic Moho-depth
              estimates (attribute "Depth" [m]) used to score inverted models.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the NetCDF file the best-fit Moho-depth and
              density grids are written to.`,
			defaultVal: "mohoinv_model.nc",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ScoresFile",
			usage: `
              ScoresFile is the CSV file the ranked scoring table is written
              to. If empty, the table is only printed.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{searchCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("MOHOINV")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(searchCmd)
	Root.AddCommand(invertCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("mohoinv: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "mohoinv",
	Short: "A satellite-gravity Moho-depth inversion model.",
	Long: `MohoInv estimates the depth of the crust–mantle boundary (Moho) and a
density-contrast field over a rectangular region by inverting a
satellite gravity-gradient observation grid.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'MOHOINV_var' where 'var' is
the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of MohoInv.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("MohoInv v%s\n", mohoinv.Version)
	},
	DisableAutoGenTag: true,
}

// searchCmd runs the density-contrast sweep.
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Sweep density-contrast combinations and keep the best-fit model.",
	Long: `search enumerates every assignment of candidate density contrasts to
tectonic units, inverts the Bouguer field for each combination by exact
rescaling of the reference sensitivity matrices, scores the results
against seismic control points, and writes the ranked scoring table and
the best-fit Moho model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSearch(Cfg, Log)
	},
	DisableAutoGenTag: true,
}

// invertCmd runs a single inversion at the reference density.
var invertCmd = &cobra.Command{
	Use:   "invert",
	Short: "Run a single inversion at the reference density contrast.",
	Long: `invert performs one regularized inversion of the Bouguer field using
the reference density contrast for every tectonic unit, and writes the
resulting Moho model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunInvert(Cfg, Log)
	},
	DisableAutoGenTag: true,
}
