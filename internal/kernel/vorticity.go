package kernel

import (
	"fmt"
	"math"

	"go.ngs.io/spherediff/internal/deriv"
	"go.ngs.io/spherediff/internal/domain"
)

// VorticityAtPoint returns the radial vorticity at idx:
//
//	vort_r = (1/(R^2 cos(lat))) [ R d(u_lat)/dlon + R (u_lon sin(lat) - cos(lat) d(u_lon)/dlat) ]
//
// Land cells give 0. At a pole (|cos(lat)| < deriv.PoleTolerance) the result
// is NaN.
func VorticityAtPoint(d *deriv.Differentiator, uLon, uLat domain.Field, idx domain.MultiIndex) float64 {
	if !d.IsWater(idx) {
		return 0
	}
	g := d.Grid()
	r := g.Radius
	lat := g.Lat[idx.Ilat]
	sinLat, cosLat := math.Sincos(lat)
	if math.Abs(cosLat) < deriv.PoleTolerance {
		return math.NaN()
	}

	vort := r * d.DerivativeAtPoint(uLat, deriv.AxisLon, idx)
	vort += r * (sinLat*uLon[g.Flat(idx)] - cosLat*d.DerivativeAtPoint(uLon, deriv.AxisLat, idx))
	return vort / (r * r * cosLat)
}

// Vorticity writes the radial vorticity of (uLon, uLat) into out.
func Vorticity(d *deriv.Differentiator, uLon, uLat, out domain.Field) error {
	g := d.Grid()
	if err := checkLengths(g.Extents, out, uLon, uLat); err != nil {
		return err
	}
	ForEachPoint(g.Size(), noScratch, func(flat int, _ struct{}) {
		out[flat] = VorticityAtPoint(d, uLon, uLat, g.Index(flat))
	})
	return nil
}

// DivergenceAtPoint returns the horizontal divergence at idx:
//
//	div = (1/(R cos(lat))) [ d(u_lon)/dlon + cos(lat) d(u_lat)/dlat - sin(lat) u_lat ]
//
// Land cells give 0 and poles give NaN.
func DivergenceAtPoint(d *deriv.Differentiator, uLon, uLat domain.Field, idx domain.MultiIndex) float64 {
	if !d.IsWater(idx) {
		return 0
	}
	g := d.Grid()
	sinLat, cosLat := math.Sincos(g.Lat[idx.Ilat])
	if math.Abs(cosLat) < deriv.PoleTolerance {
		return math.NaN()
	}

	div := d.DerivativeAtPoint(uLon, deriv.AxisLon, idx)
	div += cosLat*d.DerivativeAtPoint(uLat, deriv.AxisLat, idx) - sinLat*uLat[g.Flat(idx)]
	return div / (g.Radius * cosLat)
}

// Divergence writes the horizontal divergence of (uLon, uLat) into out.
func Divergence(d *deriv.Differentiator, uLon, uLat, out domain.Field) error {
	g := d.Grid()
	if err := checkLengths(g.Extents, out, uLon, uLat); err != nil {
		return err
	}
	ForEachPoint(g.Size(), noScratch, func(flat int, _ struct{}) {
		out[flat] = DivergenceAtPoint(d, uLon, uLat, g.Index(flat))
	})
	return nil
}

// KineticEnergy writes 0.5 (u_lon^2 + u_lat^2) into out, 0 on land.
func KineticEnergy(d *deriv.Differentiator, uLon, uLat, out domain.Field) error {
	g := d.Grid()
	if err := checkLengths(g.Extents, out, uLon, uLat); err != nil {
		return err
	}
	ForEachPoint(g.Size(), noScratch, func(flat int, _ struct{}) {
		if !d.IsWater(g.Index(flat)) {
			out[flat] = 0
			return
		}
		out[flat] = 0.5 * (uLon[flat]*uLon[flat] + uLat[flat]*uLat[flat])
	})
	return nil
}

func checkLengths(e domain.Extents, out domain.Field, in ...domain.Field) error {
	if err := out.CheckLength(e); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	for i, f := range in {
		if err := f.CheckLength(e); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}
