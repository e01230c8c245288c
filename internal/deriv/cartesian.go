package deriv

import (
	"fmt"
	"math"
	"strings"

	"go.ngs.io/spherediff/internal/domain"
)

// PoleTolerance is the |cos(lat)| below which a point is treated as a pole.
const PoleTolerance = 1e-12

// CartAxis selects a Cartesian direction in the Earth-centered frame.
type CartAxis int

const (
	// CartX points from the Earth's center towards (lat 0, lon 0).
	CartX CartAxis = iota
	// CartY points towards (lat 0, lon 90E).
	CartY
	// CartZ points towards the north pole.
	CartZ
)

func (a CartAxis) String() string {
	switch a {
	case CartX:
		return "x"
	case CartY:
		return "y"
	case CartZ:
		return "z"
	}
	return fmt.Sprintf("CartAxis(%d)", int(a))
}

// ParseCartAxis resolves "x", "y" or "z".
func ParseCartAxis(s string) (CartAxis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return CartX, nil
	case "y":
		return CartY, nil
	case "z":
		return CartZ, nil
	}
	return 0, fmt.Errorf("unknown Cartesian axis %q (use x, y or z)", s)
}

// Gradient holds the Cartesian derivatives of a field at a point.
// The radial derivative is taken to be zero.
type Gradient struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Component returns the derivative along axis.
func (g Gradient) Component(axis CartAxis) float64 {
	switch axis {
	case CartX:
		return g.X
	case CartY:
		return g.Y
	default:
		return g.Z
	}
}

// jacobian holds the spherical-to-Cartesian factors at one point.
type jacobian struct {
	sinLon, cosLon float64
	sinLat, cosLat float64
	r              float64
}

func (d *Differentiator) jacobianAt(idx domain.MultiIndex) jacobian {
	lat := d.grid.Lat[idx.Ilat]
	lon := d.grid.Lon[idx.Ilon]
	return jacobian{
		sinLon: math.Sin(lon),
		cosLon: math.Cos(lon),
		sinLat: math.Sin(lat),
		cosLat: math.Cos(lat),
		r:      d.grid.Radius,
	}
}

// compose applies the chain rule to d/dlon and d/dlat:
//
//	d/dx = -( sin(lon) / (R cos(lat)) ) d/dlon - ( cos(lon) sin(lat) / R ) d/dlat
//	d/dy =  ( cos(lon) / (R cos(lat)) ) d/dlon - ( sin(lon) sin(lat) / R ) d/dlat
//	d/dz =  ( cos(lat) / R ) d/dlat
//
// At a pole the d/dlon terms are undefined: x and y become NaN unless
// d/dlon is exactly zero.
func (j jacobian) compose(dlon, dlat float64) Gradient {
	g := Gradient{
		X: -(j.cosLon * j.sinLat / j.r) * dlat,
		Y: -(j.sinLon * j.sinLat / j.r) * dlat,
		Z: (j.cosLat / j.r) * dlat,
	}
	if math.Abs(j.cosLat) < PoleTolerance {
		if dlon != 0 {
			g.X = math.NaN()
			g.Y = math.NaN()
		}
		return g
	}
	g.X -= (j.sinLon / (j.r * j.cosLat)) * dlon
	g.Y += (j.cosLon / (j.r * j.cosLat)) * dlon
	return g
}

// CartesianDerivativeAtPoint returns the derivative of field along a
// Cartesian axis at idx. The target index must be in range.
func (d *Differentiator) CartesianDerivativeAtPoint(field domain.Field, axis CartAxis, idx domain.MultiIndex) float64 {
	j := d.jacobianAt(idx)
	dlat := d.DerivativeAtPoint(field, AxisLat, idx)
	if axis == CartZ {
		return (j.cosLat / j.r) * dlat
	}
	dlon := d.DerivativeAtPoint(field, AxisLon, idx)
	return j.compose(dlon, dlat).Component(axis)
}

// CartesianDerivative is the checked form of CartesianDerivativeAtPoint.
func (d *Differentiator) CartesianDerivative(field domain.Field, axis CartAxis, idx domain.MultiIndex) (float64, error) {
	if axis < CartX || axis > CartZ {
		return 0, fmt.Errorf("invalid Cartesian axis %v", axis)
	}
	if err := d.grid.CheckIndex(idx); err != nil {
		return 0, err
	}
	if err := field.CheckLength(d.grid.Extents); err != nil {
		return 0, err
	}
	return d.CartesianDerivativeAtPoint(field, axis, idx), nil
}

// GradientAtPoint returns all three Cartesian derivatives of field at idx.
func (d *Differentiator) GradientAtPoint(field domain.Field, idx domain.MultiIndex) Gradient {
	dlon := d.DerivativeAtPoint(field, AxisLon, idx)
	dlat := d.DerivativeAtPoint(field, AxisLat, idx)
	return d.jacobianAt(idx).compose(dlon, dlat)
}

// GradientsAtPoint fills out[i] with the gradient of fields[i] at idx,
// sharing the trigonometric factors across fields. A nil field leaves its
// slot zeroed. len(out) must be at least len(fields).
func (d *Differentiator) GradientsAtPoint(fields []domain.Field, idx domain.MultiIndex, out []Gradient) {
	j := d.jacobianAt(idx)
	for i, f := range fields {
		if f == nil {
			out[i] = Gradient{}
			continue
		}
		dlon := d.DerivativeAtPoint(f, AxisLon, idx)
		dlat := d.DerivativeAtPoint(f, AxisLat, idx)
		out[i] = j.compose(dlon, dlat)
	}
}
