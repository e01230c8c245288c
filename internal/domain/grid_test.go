package domain

import (
	"errors"
	"math"
	"testing"
)

// TestFlatIndex_RoundTrip checks both directions over a full small grid.
func TestFlatIndex_RoundTrip(t *testing.T) {
	e := Extents{Ntime: 3, Ndepth: 2, Nlat: 4, Nlon: 5}
	k := 0
	for it := 0; it < e.Ntime; it++ {
		for id := 0; id < e.Ndepth; id++ {
			for ilat := 0; ilat < e.Nlat; ilat++ {
				for ilon := 0; ilon < e.Nlon; ilon++ {
					idx := MultiIndex{Itime: it, Idepth: id, Ilat: ilat, Ilon: ilon}
					// Row-major order: the nested loop visits flat indices in sequence.
					if got := ToFlatIndex(idx, e); got != k {
						t.Fatalf("ToFlatIndex(%+v) = %d, want %d", idx, got, k)
					}
					if got := FromFlatIndex(k, e); got != idx {
						t.Fatalf("FromFlatIndex(%d) = %+v, want %+v", k, got, idx)
					}
					k++
				}
			}
		}
	}
	if k != e.Size() {
		t.Errorf("visited %d points, Size() = %d", k, e.Size())
	}
}

func TestFlatIndex_Formula(t *testing.T) {
	e := Extents{Ntime: 7, Ndepth: 3, Nlat: 11, Nlon: 13}
	idx := MultiIndex{Itime: 5, Idepth: 2, Ilat: 9, Ilon: 4}
	want := ((5*3+2)*11+9)*13 + 4
	if got := ToFlatIndex(idx, e); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
}

func TestExtents_CheckIndex(t *testing.T) {
	e := Extents{Ntime: 1, Ndepth: 2, Nlat: 3, Nlon: 4}
	tests := []struct {
		name string
		idx  MultiIndex
		ok   bool
	}{
		{"origin", MultiIndex{}, true},
		{"last", MultiIndex{Itime: 0, Idepth: 1, Ilat: 2, Ilon: 3}, true},
		{"time overflow", MultiIndex{Itime: 1}, false},
		{"negative depth", MultiIndex{Idepth: -1}, false},
		{"lat overflow", MultiIndex{Ilat: 3}, false},
		{"lon overflow", MultiIndex{Ilon: 4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CheckIndex(tt.idx)
			if (err == nil) != tt.ok {
				t.Errorf("CheckIndex(%+v) = %v, ok %v", tt.idx, err, tt.ok)
			}
			if err != nil && !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("expected ErrIndexOutOfRange, got %v", err)
			}
		})
	}
}

func TestNewGrid_Validation(t *testing.T) {
	lat := []float64{-0.1, 0, 0.1}
	lon := []float64{0.3, 0.2, 0.1} // Decreasing is allowed.

	if g, err := NewGrid(nil, nil, lat, lon, RadiusEarth); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if g.Ntime != 1 || g.Ndepth != 1 || g.Nlat != 3 || g.Nlon != 3 {
		t.Errorf("unexpected extents %+v", g.Extents)
	}

	tests := []struct {
		name    string
		lat     []float64
		lon     []float64
		radius  float64
		wantErr error
	}{
		{"empty lat", nil, lon, RadiusEarth, ErrInvalidExtents},
		{"repeated lat", []float64{0, 0.1, 0.1}, lon, RadiusEarth, ErrNotMonotonic},
		{"zigzag lon", lat, []float64{0, 0.2, 0.1}, RadiusEarth, ErrNotMonotonic},
		{"NaN lon", lat, []float64{0, math.NaN(), 0.2}, RadiusEarth, ErrNotMonotonic},
		{"zero radius", lat, lon, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(nil, nil, tt.lat, tt.lon, tt.radius)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Coordinates that disagree with the embedded extents.
	g := &Grid{Extents: Extents{1, 1, 2, 3}, Time: []float64{0}, Depth: []float64{0}, Lat: lat, Lon: lon, Radius: 1}
	if err := g.Validate(); !errors.Is(err, ErrCoordLength) {
		t.Errorf("expected ErrCoordLength, got %v", err)
	}
}

func TestMaskFromFill(t *testing.T) {
	e := Extents{Ntime: 2, Ndepth: 1, Nlat: 2, Nlon: 3}
	const fill = -9999.0
	values := []float64{
		1, -9999, 2,
		9500, 9499, math.NaN(),
		// Second time slab is ignored.
		-9999, -9999, -9999,
		-9999, -9999, -9999,
	}
	m, err := MaskFromFill(values, fill, e)
	if err != nil {
		t.Fatalf("MaskFromFill: %v", err)
	}
	want := Mask{true, false, true, false, true, false}
	for i := range want {
		if m[i] != want[i] {
			t.Errorf("cell %d: expected water=%v, got %v", i, want[i], m[i])
		}
	}
	if m.WaterCount() != 3 {
		t.Errorf("expected 3 water cells, got %d", m.WaterCount())
	}
	if !m.IsWater(1, 1, e) || m.IsWater(1, 0, e) {
		t.Error("IsWater disagrees with the mask layout")
	}

	if _, err := MaskFromFill(values[:4], fill, e); !errors.Is(err, ErrMaskLength) {
		t.Errorf("expected ErrMaskLength, got %v", err)
	}
}

func TestMask_And(t *testing.T) {
	a := Mask{true, true, false, false}
	b := Mask{true, false, true, false}
	got := a.And(b)
	want := Mask{true, false, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if err := got.CheckLength(Extents{1, 1, 2, 2}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := got.CheckLength(Extents{1, 1, 3, 2}); !errors.Is(err, ErrMaskLength) {
		t.Errorf("expected ErrMaskLength, got %v", err)
	}
}

func TestDegRadConversion(t *testing.T) {
	if math.Abs(Deg2Rad(180)-math.Pi) > 1e-15 {
		t.Errorf("Deg2Rad(180) = %g", Deg2Rad(180))
	}
	if math.Abs(Rad2Deg(Deg2Rad(37.5))-37.5) > 1e-12 {
		t.Errorf("round trip failed: %g", Rad2Deg(Deg2Rad(37.5)))
	}
}
