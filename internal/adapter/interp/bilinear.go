// Package interp locates points on rectilinear grids and interpolates
// bilinearly between the surrounding nodes, skipping masked nodes.
package interp

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoValidCorner is returned when every corner of a cell is masked.
var ErrNoValidCorner = errors.New("no valid corner around point")

// epsilon is the tolerance for points on the grid boundary.
const epsilon = 1e-9

// Cell is the grid cell bracketing a query point.
type Cell struct {
	Row, Col int     // Lower-corner indices along Y and X.
	T, U     float64 // Fractional position along X and Y, in [0, 1].
}

// Corner is one node of a Cell with its bilinear weight.
type Corner struct {
	Row, Col int
	Weight   float64
}

// Corners returns the four nodes of the cell with weights:
//
//	f(x,y) ≈ (1-t)(1-u)f(x0,y0) + t(1-u)f(x1,y0) + (1-t)u*f(x0,y1) + tu*f(x1,y1)
func (c Cell) Corners() [4]Corner {
	return [4]Corner{
		{Row: c.Row, Col: c.Col, Weight: (1 - c.T) * (1 - c.U)},
		{Row: c.Row, Col: c.Col + 1, Weight: c.T * (1 - c.U)},
		{Row: c.Row + 1, Col: c.Col, Weight: (1 - c.T) * c.U},
		{Row: c.Row + 1, Col: c.Col + 1, Weight: c.T * c.U},
	}
}

// Locate finds the cell of the (xs, ys) grid containing (x, y).
// Coordinates must be strictly monotonic, ascending or descending, with at
// least two nodes each.
func Locate(x, y float64, xs, ys []float64) (Cell, error) {
	col, t, err := bracket(xs, x)
	if err != nil {
		return Cell{}, fmt.Errorf("x: %w", err)
	}
	row, u, err := bracket(ys, y)
	if err != nil {
		return Cell{}, fmt.Errorf("y: %w", err)
	}
	return Cell{Row: row, Col: col, T: t, U: u}, nil
}

// bracket returns i and the fraction f such that v lies between coords[i]
// and coords[i+1] at coords[i] + f*(coords[i+1]-coords[i]).
func bracket(coords []float64, v float64) (int, float64, error) {
	n := len(coords)
	if n < 2 {
		return 0, 0, fmt.Errorf("need at least 2 coordinates, got %d", n)
	}
	if math.IsNaN(v) {
		return 0, 0, fmt.Errorf("coordinate is NaN")
	}
	lo, hi := coords[0], coords[n-1]
	ascending := hi > lo
	if !ascending {
		lo, hi = hi, lo
	}
	if v < lo-epsilon || v > hi+epsilon {
		return 0, 0, fmt.Errorf("coordinate %.6f is outside grid range [%.6f, %.6f]", v, lo, hi)
	}

	// First node strictly past v, then step back to the lower node.
	k := sort.Search(n, func(i int) bool {
		if ascending {
			return coords[i] > v
		}
		return coords[i] < v
	})
	i := k - 1
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}

	f := (v - coords[i]) / (coords[i+1] - coords[i])
	// Clamp to [0, 1] to handle edge cases with floating point precision.
	f = math.Max(0, math.Min(1, f))
	return i, f, nil
}

// Weighted combines corner values with their bilinear weights. Corners for
// which value reports false are skipped and the remaining weights are
// renormalized.
func Weighted(corners [4]Corner, value func(row, col int) (float64, bool)) (float64, error) {
	var sum, wsum float64
	for _, c := range corners {
		v, ok := value(c.Row, c.Col)
		if !ok {
			continue
		}
		sum += c.Weight * v
		wsum += c.Weight
	}
	if wsum == 0 {
		return 0, ErrNoValidCorner
	}
	return sum / wsum, nil
}
