package dataset

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/spherediff/internal/domain"
)

// FillValue marks land cells in written outputs.
const FillValue = 1.0e20

// MaskVar is the name of the written land/water mask (1 water, 0 land).
const MaskVar = "mask"

// Writer writes computed fields to NetCDF files.
type Writer struct{}

// NewWriter creates a new NetCDF writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteFields creates (or overwrites) path with the grid coordinates in
// degrees, the mask, and one double variable per output. Land cells are
// written as FillValue.
func (w *Writer) WriteFields(path string, grid *domain.Grid, mask domain.Mask, outputs []domain.Output) error {
	if grid == nil {
		return fmt.Errorf("grid is required")
	}
	e := grid.Extents
	if mask == nil {
		mask = domain.AllWater(e)
	}
	if err := mask.CheckLength(e); err != nil {
		return err
	}
	for _, o := range outputs {
		if err := o.Values.CheckLength(e); err != nil {
			return fmt.Errorf("output %s: %w", o.Name, err)
		}
	}

	nc, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		return fmt.Errorf("failed to create NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	dims := make([]netcdf.Dim, 4)
	for i, d := range []struct {
		name string
		n    int
	}{{"time", e.Ntime}, {"depth", e.Ndepth}, {"lat", e.Nlat}, {"lon", e.Nlon}} {
		if dims[i], err = nc.AddDim(d.name, uint64(d.n)); err != nil {
			return fmt.Errorf("failed to add dimension %s: %w", d.name, err)
		}
	}

	coords := []struct {
		name   string
		units  string
		dim    netcdf.Dim
		values []float64
	}{
		{"time", "", dims[0], grid.Time},
		{"depth", "m", dims[1], grid.Depth},
		{"lat", "degrees_north", dims[2], degrees(grid.Lat)},
		{"lon", "degrees_east", dims[3], degrees(grid.Lon)},
	}
	coordVars := make([]netcdf.Var, len(coords))
	for i, c := range coords {
		v, err := nc.AddVar(c.name, netcdf.DOUBLE, []netcdf.Dim{c.dim})
		if err != nil {
			return fmt.Errorf("failed to add variable %s: %w", c.name, err)
		}
		if c.units != "" {
			if err := v.Attr("units").WriteBytes([]byte(c.units)); err != nil {
				return fmt.Errorf("failed to write %s units: %w", c.name, err)
			}
		}
		coordVars[i] = v
	}

	maskVar, err := nc.AddVar(MaskVar, netcdf.INT, []netcdf.Dim{dims[2], dims[3]})
	if err != nil {
		return fmt.Errorf("failed to add mask variable: %w", err)
	}
	if err := maskVar.Attr("long_name").WriteBytes([]byte("water mask (1 water, 0 land)")); err != nil {
		return fmt.Errorf("failed to write mask attributes: %w", err)
	}

	outVars := make([]netcdf.Var, len(outputs))
	for i, o := range outputs {
		v, err := nc.AddVar(o.Name, netcdf.DOUBLE, dims)
		if err != nil {
			return fmt.Errorf("failed to add variable %s: %w", o.Name, err)
		}
		if err := v.Attr("_FillValue").WriteFloat64s([]float64{FillValue}); err != nil {
			return fmt.Errorf("failed to write %s fill value: %w", o.Name, err)
		}
		if o.LongName != "" {
			if err := v.Attr("long_name").WriteBytes([]byte(o.LongName)); err != nil {
				return fmt.Errorf("failed to write %s long_name: %w", o.Name, err)
			}
		}
		if o.Units != "" {
			if err := v.Attr("units").WriteBytes([]byte(o.Units)); err != nil {
				return fmt.Errorf("failed to write %s units: %w", o.Name, err)
			}
		}
		outVars[i] = v
	}

	if err := nc.EndDef(); err != nil {
		return fmt.Errorf("failed to end define mode: %w", err)
	}

	for i, c := range coords {
		if err := coordVars[i].WriteFloat64s(c.values); err != nil {
			return fmt.Errorf("failed to write %s: %w", c.name, err)
		}
	}

	flags := make([]int32, len(mask))
	for i, water := range mask {
		if water {
			flags[i] = 1
		}
	}
	if err := maskVar.WriteInt32s(flags); err != nil {
		return fmt.Errorf("failed to write mask: %w", err)
	}

	hsize := e.HorizontalSize()
	buf := make([]float64, e.Size())
	for i, o := range outputs {
		for k, val := range o.Values {
			if mask[k%hsize] {
				buf[k] = val
			} else {
				buf[k] = FillValue
			}
		}
		if err := outVars[i].WriteFloat64s(buf); err != nil {
			return fmt.Errorf("failed to write %s: %w", o.Name, err)
		}
	}

	return nil
}

func degrees(rad []float64) []float64 {
	out := make([]float64, len(rad))
	for i, r := range rad {
		out[i] = domain.Rad2Deg(r)
	}
	return out
}
