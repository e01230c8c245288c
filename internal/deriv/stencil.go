// Package deriv computes finite-difference derivatives of gridded fields on a
// latitude-longitude mesh with a land/water mask.
//
// A Differentiator picks the widest usable stencil around a point along one
// axis: a 5-point centered stencil when two water neighbors exist on each side,
// a 3-point centered stencil when only the near neighbors do, a one-sided
// difference when only one side is usable, and zero otherwise. Stencil weights
// are fitted to the actual coordinate offsets, so non-uniform spacing is exact
// to the order of the stencil.
package deriv

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"go.ngs.io/spherediff/internal/domain"
)

// Axis selects the grid dimension to differentiate along.
type Axis int

const (
	// AxisTime differentiates along the time dimension.
	AxisTime Axis = iota
	// AxisDepth differentiates along the depth dimension.
	AxisDepth
	// AxisLat differentiates along latitude (radians).
	AxisLat
	// AxisLon differentiates along longitude (radians).
	AxisLon
)

var axisNames = [...]string{
	AxisTime:  "time",
	AxisDepth: "depth",
	AxisLat:   "lat",
	AxisLon:   "lon",
}

func (a Axis) String() string {
	if a < AxisTime || a > AxisLon {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisNames[a]
}

// horizontal reports whether neighbors along the axis are subject to the mask.
func (a Axis) horizontal() bool {
	return a == AxisLat || a == AxisLon
}

// ParseAxis resolves a user-supplied axis name.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time", "t":
		return AxisTime, nil
	case "depth", "z", "lev", "level":
		return AxisDepth, nil
	case "lat", "latitude", "y":
		return AxisLat, nil
	case "lon", "longitude", "x":
		return AxisLon, nil
	}
	return 0, fmt.Errorf("unknown axis %q (use time, depth, lat or lon)", s)
}

// axisWeights holds the precomputed centered stencil weights at one index.
// five is ordered by offset -2..2 and three by offset -1..1.
type axisWeights struct {
	five     [5]float64
	three    [3]float64
	hasFive  bool
	hasThree bool
}

// Differentiator computes derivatives on one grid with one mask.
// It is safe for concurrent use; nothing is mutated after construction.
type Differentiator struct {
	grid    *domain.Grid
	mask    domain.Mask
	coords  [4][]float64
	strides [4]int
	weights [4][]axisWeights
}

// NewDifferentiator validates the grid and mask and precomputes stencil
// weights for every index of every axis.
func NewDifferentiator(grid *domain.Grid, mask domain.Mask) (*Differentiator, error) {
	if grid == nil {
		return nil, fmt.Errorf("grid is required")
	}
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	if mask == nil {
		mask = domain.AllWater(grid.Extents)
	}
	if err := mask.CheckLength(grid.Extents); err != nil {
		return nil, err
	}

	e := grid.Extents
	d := &Differentiator{
		grid:   grid,
		mask:   mask,
		coords: [4][]float64{grid.Time, grid.Depth, grid.Lat, grid.Lon},
		strides: [4]int{
			e.Ndepth * e.Nlat * e.Nlon,
			e.Nlat * e.Nlon,
			e.Nlon,
			1,
		},
	}

	for axis, coord := range d.coords {
		w, err := precomputeWeights(coord)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s stencils: %w", Axis(axis), err)
		}
		d.weights[axis] = w
	}

	return d, nil
}

// Grid returns the grid the differentiator was built for.
func (d *Differentiator) Grid() *domain.Grid {
	return d.grid
}

// Mask returns the land/water mask.
func (d *Differentiator) Mask() domain.Mask {
	return d.mask
}

// IsWater reports whether the horizontal cell of idx is water.
func (d *Differentiator) IsWater(idx domain.MultiIndex) bool {
	return d.mask.IsWater(idx.Ilat, idx.Ilon, d.grid.Extents)
}

// Derivative is the checked form of DerivativeAtPoint: it rejects an
// out-of-range target or a field of the wrong length.
func (d *Differentiator) Derivative(field domain.Field, axis Axis, idx domain.MultiIndex) (float64, error) {
	if axis < AxisTime || axis > AxisLon {
		return 0, fmt.Errorf("invalid axis %v", axis)
	}
	if err := d.grid.CheckIndex(idx); err != nil {
		return 0, err
	}
	if err := field.CheckLength(d.grid.Extents); err != nil {
		return 0, err
	}
	return d.DerivativeAtPoint(field, axis, idx), nil
}

// DerivativeAtPoint returns d(field)/d(coord) along axis at idx.
//
// Land targets and points with no usable neighbor yield 0. The target index
// must be in range.
func (d *Differentiator) DerivativeAtPoint(field domain.Field, axis Axis, idx domain.MultiIndex) float64 {
	e := d.grid.Extents
	if !d.mask.IsWater(idx.Ilat, idx.Ilon, e) {
		return 0
	}

	i := component(idx, axis)
	n := len(d.coords[axis])
	stride := d.strides[axis]
	base := domain.ToFlatIndex(idx, e)

	usable := func(k int) bool {
		j := i + k
		if j < 0 || j >= n {
			return false
		}
		switch axis {
		case AxisLat:
			return d.mask.IsWater(j, idx.Ilon, e)
		case AxisLon:
			return d.mask.IsWater(idx.Ilat, j, e)
		}
		return true
	}
	at := func(k int) float64 {
		return field[base+k*stride]
	}

	left, right := usable(-1), usable(1)
	w := &d.weights[axis][i]

	switch {
	case left && right && w.hasFive && usable(-2) && usable(2):
		return w.five[0]*at(-2) + w.five[1]*at(-1) + w.five[2]*at(0) + w.five[3]*at(1) + w.five[4]*at(2)
	case left && right:
		return w.three[0]*at(-1) + w.three[1]*at(0) + w.three[2]*at(1)
	case right:
		x := d.coords[axis]
		return (at(1) - at(0)) / (x[i+1] - x[i])
	case left:
		x := d.coords[axis]
		return (at(0) - at(-1)) / (x[i] - x[i-1])
	}
	return 0
}

func component(idx domain.MultiIndex, axis Axis) int {
	switch axis {
	case AxisTime:
		return idx.Itime
	case AxisDepth:
		return idx.Idepth
	case AxisLat:
		return idx.Ilat
	default:
		return idx.Ilon
	}
}

func precomputeWeights(coord []float64) ([]axisWeights, error) {
	out := make([]axisWeights, len(coord))
	for i := range coord {
		if i >= 1 && i+1 < len(coord) {
			w, err := FiniteDifferenceWeights(offsets(coord, i, 1))
			if err != nil {
				return nil, fmt.Errorf("3-point stencil at %d: %w", i, err)
			}
			copy(out[i].three[:], w)
			out[i].hasThree = true
		}
		if i >= 2 && i+2 < len(coord) {
			w, err := FiniteDifferenceWeights(offsets(coord, i, 2))
			if err != nil {
				return nil, fmt.Errorf("5-point stencil at %d: %w", i, err)
			}
			copy(out[i].five[:], w)
			out[i].hasFive = true
		}
	}
	return out, nil
}

// offsets returns x[i+k]-x[i] for k in [-half, half].
func offsets(coord []float64, i, half int) []float64 {
	out := make([]float64, 0, 2*half+1)
	for k := -half; k <= half; k++ {
		out = append(out, coord[i+k]-coord[i])
	}
	return out
}

// FiniteDifferenceWeights returns weights w such that sum(w[j]*f(x0+offsets[j]))
// approximates f'(x0), exact for polynomials of degree len(offsets)-1.
// Offsets must be distinct.
func FiniteDifferenceWeights(offsets []float64) ([]float64, error) {
	n := len(offsets)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 offsets, got %d", n)
	}

	// Scale to unit spread to keep the Vandermonde system well conditioned.
	h := 0.0
	for _, o := range offsets {
		h = math.Max(h, math.Abs(o))
	}
	if h == 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return nil, fmt.Errorf("degenerate offsets %v", offsets)
	}

	// Row k: sum_j w_j * s_j^k = [k == 1].
	a := mat.NewDense(n, n, nil)
	for j, o := range offsets {
		s := o / h
		p := 1.0
		for k := 0; k < n; k++ {
			a.Set(k, j, p)
			p *= s
		}
	}
	rhs := mat.NewVecDense(n, nil)
	rhs.SetVec(1, 1)

	var w mat.VecDense
	if err := w.SolveVec(a, rhs); err != nil {
		return nil, fmt.Errorf("singular stencil for offsets %v: %w", offsets, err)
	}

	out := make([]float64, n)
	for j := range out {
		out[j] = w.AtVec(j) / h
	}
	return out, nil
}
