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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/sparse"
)

// ReadGridVar reads a gridded variable from a NetCDF file holding 1-D
// coordinate variables "lon" and "lat" [degrees] and the named data
// variable with dimensions (lon, lat). It returns the implied grid and
// the data field; a coordinate spacing other than the model cell size
// is an AlignmentError.
func ReadGridVar(r cdf.ReaderWriterAt, name string) (*Grid, *sparse.DenseArray, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, nil, fmt.Errorf("mohoinv: opening grid file: %v", err)
	}
	lon, err := readFullVar64(f, "lon")
	if err != nil {
		return nil, nil, err
	}
	lat, err := readFullVar64(f, "lat")
	if err != nil {
		return nil, nil, err
	}
	for _, c := range [][]float64{lon, lat} {
		for i := 1; i < len(c); i++ {
			if d := c[i] - c[i-1] - CellSize; d > cellSizeTolerance || d < -cellSizeTolerance {
				return nil, nil, alignmentErrorf("coordinate spacing %g° is not %g°", c[i]-c[i-1], CellSize)
			}
		}
	}
	if len(lon) == 0 || len(lat) == 0 {
		return nil, nil, alignmentErrorf("empty coordinate variable")
	}
	g, err := NewGrid(lon[0], lon[len(lon)-1], lat[0], lat[len(lat)-1], CellSize)
	if err != nil {
		return nil, nil, err
	}
	data, err := readFullVar64(f, name)
	if err != nil {
		return nil, nil, err
	}
	if len(data) != g.Size() {
		return nil, nil, alignmentErrorf("variable %s has %d values; grid has %d cells",
			name, len(data), g.Size())
	}
	a := sparse.ZerosDense(g.Nx(), g.Ny())
	copy(a.Elements, data)
	return g, a, nil
}

// readFullVar64 reads a whole variable as a []float64.
func readFullVar64(f *cdf.File, name string) ([]float64, error) {
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("mohoinv: reading variable %s: %v", name, err)
	}
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	case []int32:
		o := make([]float64, len(b))
		for i, v := range b {
			o[i] = float64(v)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("mohoinv: variable %s has unsupported type %T", name, buf)
	}
}

// WriteModel writes the best-fit Moho-depth and density-contrast grids
// to a NetCDF file.
func WriteModel(ff *os.File, g *Grid, depth, density []float64) error {
	if len(depth) != g.Size() || len(density) != g.Size() {
		return alignmentErrorf("model grids have lengths %d and %d; grid has %d cells",
			len(depth), len(density), g.Size())
	}
	h := cdf.NewHeader([]string{"lon", "lat"}, []int{g.Nx(), g.Ny()})
	h.AddAttribute("", "comment", "Best-fit Moho depth and density contrast model")
	h.AddVariable("lon", []string{"lon"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("lat", []string{"lat"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("MohoDepth", []string{"lon", "lat"}, []float64{0})
	h.AddAttribute("MohoDepth", "units", "m")
	h.AddAttribute("MohoDepth", "positive", "down")
	h.AddVariable("DensityContrast", []string{"lon", "lat"}, []float64{0})
	h.AddAttribute("DensityContrast", "units", "kg m-3")
	h.Define()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("mohoinv: creating model file: %v", err)
	}
	lons := make([]float64, g.Nx())
	for i := range lons {
		lons[i] = g.LonMin + float64(i)*CellSize
	}
	lats := make([]float64, g.Ny())
	for j := range lats {
		lats[j] = g.LatMin + float64(j)*CellSize
	}
	for _, v := range []struct {
		name string
		data []float64
	}{
		{"lon", lons},
		{"lat", lats},
		{"MohoDepth", depth},
		{"DensityContrast", density},
	} {
		end := f.Header.Lengths(v.name)
		start := make([]int, len(end))
		w := f.Writer(v.name, start, end)
		if _, err := w.Write(v.data); err != nil {
			return fmt.Errorf("mohoinv: writing variable %s: %v", v.name, err)
		}
	}
	return cdf.UpdateNumRecs(ff)
}

// ReadControlPoints reads seismic control points from a point
// shapefile with a Depth attribute [m, positive down].
func ReadControlPoints(fname string) ([]ControlPoint, error) {
	d, err := shp.NewDecoder(fname)
	if err != nil {
		return nil, fmt.Errorf("mohoinv: opening control points: %v", err)
	}
	defer d.Close()
	var o []ControlPoint
	for i := 0; i < d.AttributeCount(); i++ {
		g, fields, more := d.DecodeRowFields("Depth")
		if !more {
			break
		}
		p, ok := g.(geom.Point)
		if !ok {
			return nil, fmt.Errorf("mohoinv: control point %d is a %T, not a point", i, g)
		}
		depth, err := strconv.ParseFloat(fields["Depth"], 64)
		if err != nil {
			return nil, fmt.Errorf("mohoinv: control point %d depth: %v", i, err)
		}
		o = append(o, ControlPoint{Point: p, Depth: depth})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("mohoinv: reading control points: %v", err)
	}
	return o, nil
}

// WriteScores writes the finalized scoring table as CSV.
func WriteScores(w io.Writer, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	header := []string{"row", "gravityRMS", "pointRMS", "gridRMS", "slope", "intercept", "r2",
		"regWeight", "refDepth", "failed"}
	for u := range recs[0].Densities {
		header = append(header, fmt.Sprintf("densityUnit%d", u))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			strconv.Itoa(r.Row),
			fmtFloat(r.GravityRMS), fmtFloat(r.PointRMS), fmtFloat(r.GridRMS),
			fmtFloat(r.Slope), fmtFloat(r.Intercept), fmtFloat(r.R2),
			fmtFloat(r.RegWeight), fmtFloat(r.RefDepth),
			strconv.FormatBool(r.Failed),
		}
		for _, d := range r.Densities {
			row = append(row, fmtFloat(d))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// FprintScores pretty-prints the top of the scoring table for the
// console.
func FprintScores(w io.Writer, recs []Record, n int) {
	if n <= 0 || n > len(recs) {
		n = len(recs)
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "rank\trow\tdensities\tgravity RMS\tpoint RMS\tgrid RMS\t")
	for i := 0; i < n; i++ {
		r := recs[i]
		if r.Failed {
			fmt.Fprintf(tw, "%d\t%d\t%v\tfailed: %s\t\t\t\n", i, r.Row, r.Densities, r.Note)
			continue
		}
		fmt.Fprintf(tw, "%d\t%d\t%v\t%.5g\t%.5g\t%.5g\t\n",
			i, r.Row, r.Densities, r.GravityRMS, r.PointRMS, r.GridRMS)
	}
	tw.Flush()
}
