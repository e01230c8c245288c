package deriv

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"go.ngs.io/spherediff/internal/domain"
)

// uniform returns n coordinates starting at start with spacing h.
func uniform(start, h float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*h
	}
	return out
}

// newTestGrid builds a single time/depth grid over the given lat/lon.
func newTestGrid(t *testing.T, lat, lon []float64) *domain.Grid {
	t.Helper()
	g, err := domain.NewGrid(nil, nil, lat, lon, domain.RadiusEarth)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

// fill evaluates fn at every grid point.
func fill(g *domain.Grid, fn func(time, depth, lat, lon float64) float64) domain.Field {
	f := domain.NewField(g.Extents)
	for k := range f {
		idx := g.Index(k)
		f[k] = fn(g.Time[idx.Itime], g.Depth[idx.Idepth], g.Lat[idx.Ilat], g.Lon[idx.Ilon])
	}
	return f
}

func newDiff(t *testing.T, g *domain.Grid, mask domain.Mask) *Differentiator {
	t.Helper()
	d, err := NewDifferentiator(g, mask)
	if err != nil {
		t.Fatalf("NewDifferentiator: %v", err)
	}
	return d
}

// TestFiniteDifferenceWeights_UniformFivePoint checks the classic 4th-order stencil.
func TestFiniteDifferenceWeights_UniformFivePoint(t *testing.T) {
	h := 0.1
	w, err := FiniteDifferenceWeights([]float64{-2 * h, -h, 0, h, 2 * h})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := []float64{1 / (12 * h), -8 / (12 * h), 0, 8 / (12 * h), -1 / (12 * h)}
	if !floats.EqualApprox(w, expected, 1e-9) {
		t.Errorf("weights: expected %v, got %v", expected, w)
	}
}

// TestFiniteDifferenceWeights_UniformThreePoint reduces to (f[i+1]-f[i-1])/(2h).
func TestFiniteDifferenceWeights_UniformThreePoint(t *testing.T) {
	h := 0.25
	w, err := FiniteDifferenceWeights([]float64{-h, 0, h})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := []float64{-1 / (2 * h), 0, 1 / (2 * h)}
	if !floats.EqualApprox(w, expected, 1e-12) {
		t.Errorf("weights: expected %v, got %v", expected, w)
	}
}

func TestFiniteDifferenceWeights_Degenerate(t *testing.T) {
	if _, err := FiniteDifferenceWeights([]float64{0}); err == nil {
		t.Error("expected error for a single offset")
	}
	if _, err := FiniteDifferenceWeights([]float64{0, 0, 0}); err == nil {
		t.Error("expected error for zero offsets")
	}
}

// TestDerivativeAtPoint_SinAlongLongitude differentiates sin(lon) on a 3x5
// grid. Ilon=2 has two neighbors on each side, so the 4th-order 5-point
// stencil applies there, not the 3-point one.
func TestDerivativeAtPoint_SinAlongLongitude(t *testing.T) {
	g := newTestGrid(t, uniform(0, 0.1, 3), uniform(0, 0.1, 5))
	d := newDiff(t, g, domain.AllWater(g.Extents))
	f := fill(g, func(_, _, _, lon float64) float64 { return math.Sin(lon) })

	idx := domain.MultiIndex{Ilat: 1, Ilon: 2}
	got := d.DerivativeAtPoint(f, AxisLon, idx)
	want := math.Cos(g.Lon[2])
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("d/dlon sin at center: expected %.6f, got %.6f", want, got)
	}

	// Latitude derivative of a lon-only field vanishes.
	if got := d.DerivativeAtPoint(f, AxisLat, idx); math.Abs(got) > 1e-12 {
		t.Errorf("d/dlat of lon-only field: expected 0, got %g", got)
	}
}

// TestDerivativeAtPoint_FourthOrderConvergence halves h and expects ~16x less error.
func TestDerivativeAtPoint_FourthOrderConvergence(t *testing.T) {
	errAt := func(h float64) float64 {
		n := int(math.Round(1/h)) + 1
		g := newTestGrid(t, uniform(0, 0.1, 2), uniform(0, h, n))
		d := newDiff(t, g, nil)
		f := fill(g, func(_, _, _, lon float64) float64 { return math.Sin(lon) })
		idx := domain.MultiIndex{Ilon: (n - 1) / 2}
		return math.Abs(d.DerivativeAtPoint(f, AxisLon, idx) - math.Cos(g.Lon[idx.Ilon]))
	}

	coarse := errAt(0.1)
	fine := errAt(0.05)
	if fine == 0 || coarse/fine < 12 {
		t.Errorf("expected 4th-order convergence, error ratio %.2f (coarse %g, fine %g)", coarse/fine, coarse, fine)
	}
}

// TestDerivativeAtPoint_NonUniformPolynomial checks exactness for x^4 on uneven spacing.
func TestDerivativeAtPoint_NonUniformPolynomial(t *testing.T) {
	lon := []float64{0.0, 0.1, 0.25, 0.3, 0.45, 0.6, 0.8}
	g := newTestGrid(t, []float64{0, 0.1}, lon)
	d := newDiff(t, g, nil)
	f := fill(g, func(_, _, _, x float64) float64 { return x*x*x*x - 2*x*x + x })

	for ilon := 2; ilon <= 4; ilon++ {
		x := lon[ilon]
		want := 4*x*x*x - 4*x + 1
		got := d.DerivativeAtPoint(f, AxisLon, domain.MultiIndex{Ilon: ilon})
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("ilon=%d: expected %.12f, got %.12f", ilon, want, got)
		}
	}
}

// TestDerivativeAtPoint_LandTarget returns zero regardless of the field.
func TestDerivativeAtPoint_LandTarget(t *testing.T) {
	g := newTestGrid(t, uniform(0, 0.1, 5), uniform(0, 0.1, 5))
	mask := domain.AllWater(g.Extents)
	mask[domain.HorizontalIndex(2, 2, g.Extents)] = false
	d := newDiff(t, g, mask)
	f := fill(g, func(_, _, lat, lon float64) float64 { return 1e6 * (lat + lon*lon) })

	for _, axis := range []Axis{AxisTime, AxisDepth, AxisLat, AxisLon} {
		if got := d.DerivativeAtPoint(f, axis, domain.MultiIndex{Ilat: 2, Ilon: 2}); got != 0 {
			t.Errorf("%s derivative at land: expected 0, got %g", axis, got)
		}
	}
}

// TestDerivativeAtPoint_DomainEdges falls back to one-sided differences.
func TestDerivativeAtPoint_DomainEdges(t *testing.T) {
	g := newTestGrid(t, uniform(0, 0.1, 4), uniform(0, 0.1, 6))
	d := newDiff(t, g, nil)
	f := fill(g, func(_, _, lat, lon float64) float64 { return 3*lon - 2*lat + 1 })

	tests := []struct {
		name string
		axis Axis
		idx  domain.MultiIndex
		want float64
	}{
		{"west edge", AxisLon, domain.MultiIndex{Ilat: 1, Ilon: 0}, 3},
		{"east edge", AxisLon, domain.MultiIndex{Ilat: 1, Ilon: 5}, 3},
		{"south edge", AxisLat, domain.MultiIndex{Ilat: 0, Ilon: 2}, -2},
		{"north edge", AxisLat, domain.MultiIndex{Ilat: 3, Ilon: 2}, -2},
		{"near edge", AxisLon, domain.MultiIndex{Ilat: 1, Ilon: 1}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.DerivativeAtPoint(f, tt.axis, tt.idx)
			if math.IsNaN(got) || math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %.6f, got %.6f", tt.want, got)
			}
		})
	}
}

// TestDerivativeAtPoint_MaskDegradation checks each fallback stencil against x^2.
func TestDerivativeAtPoint_MaskDegradation(t *testing.T) {
	lon := []float64{0.0, 0.1, 0.3, 0.4, 0.7, 0.8, 1.0}
	g := newTestGrid(t, []float64{0, 0.1}, lon)
	f := fill(g, func(_, _, _, x float64) float64 { return x * x })
	target := domain.MultiIndex{Ilon: 3}
	x := lon[3]

	tests := []struct {
		name string
		land []int
		want float64
	}{
		// 5-point and 3-point stencils are exact for quadratics.
		{"all water", nil, 2 * x},
		{"far east land", []int{5}, 2 * x},
		{"far west land", []int{1}, 2 * x},
		// One-sided: (x_n^2 - x^2)/(x_n - x) = x_n + x.
		{"near east land", []int{4}, lon[2] + x},
		{"near west land", []int{2}, lon[4] + x},
		{"isolated", []int{2, 4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := domain.AllWater(g.Extents)
			for _, ilon := range tt.land {
				for ilat := 0; ilat < g.Nlat; ilat++ {
					mask[domain.HorizontalIndex(ilat, ilon, g.Extents)] = false
				}
			}
			d := newDiff(t, g, mask)
			got := d.DerivativeAtPoint(f, AxisLon, target)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %.9f, got %.9f", tt.want, got)
			}
		})
	}
}

// TestDerivativeAtPoint_VerticalAxesIgnoreMask differentiates along depth and time.
func TestDerivativeAtPoint_VerticalAxesIgnoreMask(t *testing.T) {
	g, err := domain.NewGrid(
		[]float64{0, 3600, 7200},
		[]float64{0, 5, 15, 30},
		[]float64{0, 0.1, 0.2},
		[]float64{0, 0.1, 0.2},
		domain.RadiusEarth,
	)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	// Every cell but the target is land.
	mask := make(domain.Mask, g.HorizontalSize())
	mask[domain.HorizontalIndex(1, 1, g.Extents)] = true
	d := newDiff(t, g, mask)
	f := fill(g, func(time, depth, _, _ float64) float64 { return 0.5*depth + 2e-3*time })

	idx := domain.MultiIndex{Itime: 1, Idepth: 2, Ilat: 1, Ilon: 1}
	if got := d.DerivativeAtPoint(f, AxisDepth, idx); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("d/ddepth: expected 0.5, got %g", got)
	}
	if got := d.DerivativeAtPoint(f, AxisTime, idx); math.Abs(got-2e-3) > 1e-12 {
		t.Errorf("d/dtime: expected 2e-3, got %g", got)
	}
	if got := d.DerivativeAtPoint(f, AxisLon, idx); got != 0 {
		t.Errorf("d/dlon with land neighbors: expected 0, got %g", got)
	}
}

// TestDerivativeAtPoint_Linearity checks D(a f + b g) = a D(f) + b D(g).
func TestDerivativeAtPoint_Linearity(t *testing.T) {
	g := newTestGrid(t, []float64{-0.3, -0.1, 0.0, 0.2, 0.35, 0.5}, []float64{1.0, 1.1, 1.15, 1.3, 1.4, 1.6})
	mask := domain.AllWater(g.Extents)
	mask[domain.HorizontalIndex(0, 4, g.Extents)] = false
	d := newDiff(t, g, mask)

	f := fill(g, func(_, _, lat, lon float64) float64 { return math.Sin(3*lat) * math.Cos(lon) })
	h := fill(g, func(_, _, lat, lon float64) float64 { return lat*lat - lon })
	const a, b = 2.5, -0.75
	combo := domain.NewField(g.Extents)
	for i := range combo {
		combo[i] = a*f[i] + b*h[i]
	}

	for k := range combo {
		idx := g.Index(k)
		for _, axis := range []Axis{AxisLat, AxisLon} {
			lhs := d.DerivativeAtPoint(combo, axis, idx)
			rhs := a*d.DerivativeAtPoint(f, axis, idx) + b*d.DerivativeAtPoint(h, axis, idx)
			if !scalar.EqualWithinAbsOrRel(lhs, rhs, 1e-10, 1e-10) {
				t.Errorf("%s at %+v: %g != %g", axis, idx, lhs, rhs)
			}
		}
	}
}

func TestDerivative_Preconditions(t *testing.T) {
	g := newTestGrid(t, uniform(0, 0.1, 3), uniform(0, 0.1, 3))
	d := newDiff(t, g, nil)
	f := domain.NewField(g.Extents)

	if _, err := d.Derivative(f, AxisLon, domain.MultiIndex{Ilon: 3}); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := d.Derivative(f[:4], AxisLon, domain.MultiIndex{}); !errors.Is(err, domain.ErrFieldLength) {
		t.Errorf("expected ErrFieldLength, got %v", err)
	}
	if _, err := d.Derivative(f, Axis(9), domain.MultiIndex{}); err == nil {
		t.Error("expected error for invalid axis")
	}
	if v, err := d.Derivative(f, AxisLat, domain.MultiIndex{Ilat: 1, Ilon: 1}); err != nil || v != 0 {
		t.Errorf("expected (0, nil) on a zero field, got (%g, %v)", v, err)
	}
}

func TestNewDifferentiator_MaskLength(t *testing.T) {
	g := newTestGrid(t, uniform(0, 0.1, 3), uniform(0, 0.1, 3))
	if _, err := NewDifferentiator(g, make(domain.Mask, 4)); !errors.Is(err, domain.ErrMaskLength) {
		t.Errorf("expected ErrMaskLength, got %v", err)
	}
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in      string
		want    Axis
		wantErr bool
	}{
		{"lat", AxisLat, false},
		{"Latitude", AxisLat, false},
		{"lon", AxisLon, false},
		{" longitude ", AxisLon, false},
		{"depth", AxisDepth, false},
		{"time", AxisTime, false},
		{"radius", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAxis(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAxis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAxis(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
