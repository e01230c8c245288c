package deriv

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"go.ngs.io/spherediff/internal/domain"
)

// TestCartesianDerivative_EquatorZ reduces to (1/R) d/dlat at lat=0.
func TestCartesianDerivative_EquatorZ(t *testing.T) {
	g := newTestGrid(t, uniform(-0.2, 0.1, 5), uniform(0.5, 0.1, 5))
	d := newDiff(t, g, nil)
	f := fill(g, func(_, _, lat, lon float64) float64 { return math.Sin(lat) + lon*lat })

	idx := domain.MultiIndex{Ilat: 2, Ilon: 2}
	if g.Lat[2] != 0 {
		t.Fatalf("test grid must put index 2 on the equator, got %g", g.Lat[2])
	}
	dlat := d.DerivativeAtPoint(f, AxisLat, idx)
	got := d.CartesianDerivativeAtPoint(f, CartZ, idx)
	want := dlat / g.Radius
	if !scalar.EqualWithinRel(got, want, 1e-14) {
		t.Errorf("d/dz at equator: expected %g, got %g", want, got)
	}
}

// TestGradientAtPoint_CartesianCoordinate differentiates f = X (the Cartesian
// coordinate), whose tangential gradient is x̂ - (x̂·r̂) r̂.
func TestGradientAtPoint_CartesianCoordinate(t *testing.T) {
	g := newTestGrid(t, uniform(0.4, 0.01, 21), uniform(0.2, 0.01, 21))
	d := newDiff(t, g, nil)
	r := g.Radius
	f := fill(g, func(_, _, lat, lon float64) float64 { return r * math.Cos(lat) * math.Cos(lon) })

	idx := domain.MultiIndex{Ilat: 10, Ilon: 10}
	lat, lon := g.Lat[10], g.Lon[10]
	xr := math.Cos(lat) * math.Cos(lon)
	want := Gradient{
		X: 1 - xr*xr,
		Y: -xr * math.Cos(lat) * math.Sin(lon),
		Z: -xr * math.Sin(lat),
	}

	got := d.GradientAtPoint(f, idx)
	for _, axis := range []CartAxis{CartX, CartY, CartZ} {
		if math.Abs(got.Component(axis)-want.Component(axis)) > 1e-6 {
			t.Errorf("%s: expected %.9f, got %.9f", axis, want.Component(axis), got.Component(axis))
		}
		single := d.CartesianDerivativeAtPoint(f, axis, idx)
		if !scalar.EqualWithinAbsOrRel(single, got.Component(axis), 1e-15, 1e-12) {
			t.Errorf("%s: single-axis %g disagrees with gradient %g", axis, single, got.Component(axis))
		}
	}
}

// TestGradientsAtPoint_MatchesSingleField checks the batched form.
func TestGradientsAtPoint_MatchesSingleField(t *testing.T) {
	g := newTestGrid(t, uniform(-0.5, 0.1, 7), uniform(1.0, 0.15, 6))
	mask := domain.AllWater(g.Extents)
	mask[domain.HorizontalIndex(3, 4, g.Extents)] = false
	d := newDiff(t, g, mask)

	fields := []domain.Field{
		fill(g, func(_, _, lat, lon float64) float64 { return math.Sin(lat) * math.Cos(2*lon) }),
		nil,
		fill(g, func(_, _, lat, lon float64) float64 { return lat * lon }),
	}
	out := make([]Gradient, len(fields))
	for k := 0; k < g.Size(); k++ {
		idx := g.Index(k)
		out[1] = Gradient{X: 99}
		d.GradientsAtPoint(fields, idx, out)
		for i, f := range fields {
			if f == nil {
				if out[i] != (Gradient{}) {
					t.Errorf("nil field slot should be zeroed, got %+v", out[i])
				}
				continue
			}
			if single := d.GradientAtPoint(f, idx); single != out[i] {
				t.Errorf("field %d at %+v: batched %+v != single %+v", i, idx, out[i], single)
			}
		}
	}
}

// TestGradientAtPoint_Pole leaves z defined and flags x/y as NaN.
func TestGradientAtPoint_Pole(t *testing.T) {
	lat := []float64{math.Pi/2 - 0.2, math.Pi/2 - 0.1, math.Pi / 2}
	g := newTestGrid(t, lat, uniform(0, 0.1, 4))
	d := newDiff(t, g, nil)
	// One-sided lon difference so a lat-only field has d/dlon == 0 exactly.
	idx := domain.MultiIndex{Ilat: 2, Ilon: 0}

	zonal := fill(g, func(_, _, lat, _ float64) float64 { return lat })
	got := d.GradientAtPoint(zonal, idx)
	if math.IsNaN(got.X) || math.IsNaN(got.Y) || math.IsNaN(got.Z) {
		t.Errorf("lat-only field at pole should stay finite, got %+v", got)
	}

	wavy := fill(g, func(_, _, lat, lon float64) float64 { return lat + math.Sin(lon) })
	got = d.GradientAtPoint(wavy, idx)
	if !math.IsNaN(got.X) || !math.IsNaN(got.Y) {
		t.Errorf("lon-varying field at pole: expected NaN x/y, got %+v", got)
	}
	if math.IsNaN(got.Z) {
		t.Errorf("z at pole should be finite, got %g", got.Z)
	}
}

// TestGradientAtPoint_Land returns a zero gradient at land cells.
func TestGradientAtPoint_Land(t *testing.T) {
	g := newTestGrid(t, uniform(0.1, 0.1, 4), uniform(0.1, 0.1, 4))
	mask := domain.AllWater(g.Extents)
	mask[domain.HorizontalIndex(1, 2, g.Extents)] = false
	d := newDiff(t, g, mask)
	f := fill(g, func(_, _, lat, lon float64) float64 { return lat*lat + lon })

	if got := d.GradientAtPoint(f, domain.MultiIndex{Ilat: 1, Ilon: 2}); got != (Gradient{}) {
		t.Errorf("expected zero gradient on land, got %+v", got)
	}
}

func TestCartesianDerivative_Preconditions(t *testing.T) {
	g := newTestGrid(t, uniform(0, 0.1, 3), uniform(0, 0.1, 3))
	d := newDiff(t, g, nil)
	f := domain.NewField(g.Extents)

	if _, err := d.CartesianDerivative(f, CartX, domain.MultiIndex{Ilat: -1}); err == nil {
		t.Error("expected error for negative index")
	}
	if _, err := d.CartesianDerivative(f, CartAxis(7), domain.MultiIndex{}); err == nil {
		t.Error("expected error for invalid axis")
	}
	if _, err := d.CartesianDerivative(f, CartY, domain.MultiIndex{Ilat: 1, Ilon: 1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseCartAxis(t *testing.T) {
	for in, want := range map[string]CartAxis{"x": CartX, "Y": CartY, " z": CartZ} {
		got, err := ParseCartAxis(in)
		if err != nil || got != want {
			t.Errorf("ParseCartAxis(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseCartAxis("r"); err == nil {
		t.Error("expected error for radial axis")
	}
}
