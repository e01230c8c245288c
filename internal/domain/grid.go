package domain

import (
	"fmt"
	"math"
)

// RadiusEarth is the mean Earth radius in meters.
const RadiusEarth = 6371.0e3

// Grid describes the extents and coordinates of a (time, depth, lat, lon) mesh.
// Lat and Lon are in radians.
type Grid struct {
	Extents
	Time   []float64
	Depth  []float64
	Lat    []float64
	Lon    []float64
	Radius float64
}

// NewGrid builds a Grid and checks that the coordinates agree with the extents.
// Nil Time or Depth coordinates default to 0, 1, 2, ...
func NewGrid(time, depth, lat, lon []float64, radius float64) (*Grid, error) {
	if time == nil {
		time = sequence(1)
	}
	if depth == nil {
		depth = sequence(1)
	}
	g := &Grid{
		Extents: Extents{
			Ntime:  len(time),
			Ndepth: len(depth),
			Nlat:   len(lat),
			Nlon:   len(lon),
		},
		Time:   time,
		Depth:  depth,
		Lat:    lat,
		Lon:    lon,
		Radius: radius,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks extents, coordinate lengths, monotonicity and the radius.
func (g *Grid) Validate() error {
	if err := g.Extents.Validate(); err != nil {
		return err
	}
	coords := []struct {
		name   string
		values []float64
		extent int
	}{
		{"time", g.Time, g.Ntime},
		{"depth", g.Depth, g.Ndepth},
		{"latitude", g.Lat, g.Nlat},
		{"longitude", g.Lon, g.Nlon},
	}
	for _, c := range coords {
		if len(c.values) != c.extent {
			return fmt.Errorf("%w: %s has %d values, extent is %d", ErrCoordLength, c.name, len(c.values), c.extent)
		}
		if !strictlyMonotonic(c.values) {
			return fmt.Errorf("%w: %s", ErrNotMonotonic, c.name)
		}
	}
	if !(g.Radius > 0) || math.IsInf(g.Radius, 0) {
		return fmt.Errorf("radius must be positive and finite, got %v", g.Radius)
	}
	return nil
}

// Index returns the multi-index of the given flat offset.
func (g *Grid) Index(flat int) MultiIndex {
	return FromFlatIndex(flat, g.Extents)
}

// Flat returns the flat offset of the given multi-index.
func (g *Grid) Flat(idx MultiIndex) int {
	return ToFlatIndex(idx, g.Extents)
}

func strictlyMonotonic(values []float64) bool {
	if len(values) < 2 {
		return len(values) == 1 && !math.IsNaN(values[0])
	}
	increasing := values[1] > values[0]
	for i := 1; i < len(values); i++ {
		if increasing && !(values[i] > values[i-1]) {
			return false
		}
		if !increasing && !(values[i] < values[i-1]) {
			return false
		}
	}
	return true
}

func sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
