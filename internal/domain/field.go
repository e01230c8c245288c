package domain

import (
	"fmt"
	"math"
)

// Field is a dense row-major (time, depth, lat, lon) buffer of scalars.
// Callers own it; the core only indexes into it.
type Field []float64

// NewField allocates a zeroed field sized for e.
func NewField(e Extents) Field {
	return make(Field, e.Size())
}

// At returns the value at idx.
func (f Field) At(idx MultiIndex, e Extents) float64 {
	return f[ToFlatIndex(idx, e)]
}

// CheckLength returns ErrFieldLength unless len(f) matches e.
func (f Field) CheckLength(e Extents) error {
	if len(f) != e.Size() {
		return fmt.Errorf("%w: got %d, want %d", ErrFieldLength, len(f), e.Size())
	}
	return nil
}

// Mask flags each horizontal cell as water (true) or land (false).
// It is shared by every time and depth level.
type Mask []bool

// FillThreshold is the fraction of |_FillValue| above which a raw value
// is considered land.
const FillThreshold = 0.95

// AllWater returns a mask with every cell wet.
func AllWater(e Extents) Mask {
	m := make(Mask, e.HorizontalSize())
	for i := range m {
		m[i] = true
	}
	return m
}

// MaskFromFill derives a mask from the first horizontal slab of raw values:
// a cell is land when |value| > 0.95 * |fill|.
func MaskFromFill(values []float64, fill float64, e Extents) (Mask, error) {
	n := e.HorizontalSize()
	if len(values) < n {
		return nil, fmt.Errorf("%w: need %d values, got %d", ErrMaskLength, n, len(values))
	}
	m := make(Mask, n)
	limit := FillThreshold * math.Abs(fill)
	for i := 0; i < n; i++ {
		m[i] = !(math.Abs(values[i]) > limit) && !math.IsNaN(values[i])
	}
	return m, nil
}

// IsWater reports whether the (ilat, ilon) cell is water.
func (m Mask) IsWater(ilat, ilon int, e Extents) bool {
	return m[HorizontalIndex(ilat, ilon, e)]
}

// CheckLength returns ErrMaskLength unless len(m) matches the horizontal extents.
func (m Mask) CheckLength(e Extents) error {
	if len(m) != e.HorizontalSize() {
		return fmt.Errorf("%w: got %d, want %d", ErrMaskLength, len(m), e.HorizontalSize())
	}
	return nil
}

// And returns the cell-wise conjunction of two masks of equal length.
func (m Mask) And(other Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && other[i]
	}
	return out
}

// WaterCount returns the number of water cells.
func (m Mask) WaterCount() int {
	n := 0
	for _, w := range m {
		if w {
			n++
		}
	}
	return n
}
