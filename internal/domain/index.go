package domain

import "fmt"

// Extents holds the sizes of the four grid dimensions.
type Extents struct {
	Ntime  int `json:"ntime"`
	Ndepth int `json:"ndepth"`
	Nlat   int `json:"nlat"`
	Nlon   int `json:"nlon"`
}

// MultiIndex addresses one grid point as (time, depth, lat, lon).
type MultiIndex struct {
	Itime  int `json:"time"`
	Idepth int `json:"depth"`
	Ilat   int `json:"lat_index"`
	Ilon   int `json:"lon_index"`
}

// Size returns the number of points in the full 4D grid.
func (e Extents) Size() int {
	return e.Ntime * e.Ndepth * e.Nlat * e.Nlon
}

// HorizontalSize returns the number of (lat, lon) cells.
func (e Extents) HorizontalSize() int {
	return e.Nlat * e.Nlon
}

// Validate checks that every extent is positive.
func (e Extents) Validate() error {
	if e.Ntime <= 0 || e.Ndepth <= 0 || e.Nlat <= 0 || e.Nlon <= 0 {
		return fmt.Errorf("%w: got %+v", ErrInvalidExtents, e)
	}
	return nil
}

// Contains reports whether every component of idx is inside its extent.
func (e Extents) Contains(idx MultiIndex) bool {
	return idx.Itime >= 0 && idx.Itime < e.Ntime &&
		idx.Idepth >= 0 && idx.Idepth < e.Ndepth &&
		idx.Ilat >= 0 && idx.Ilat < e.Nlat &&
		idx.Ilon >= 0 && idx.Ilon < e.Nlon
}

// CheckIndex returns ErrIndexOutOfRange when idx falls outside the grid.
func (e Extents) CheckIndex(idx MultiIndex) error {
	if !e.Contains(idx) {
		return fmt.Errorf("%w: %+v not within %+v", ErrIndexOutOfRange, idx, e)
	}
	return nil
}

// ToFlatIndex maps a multi-index to its offset in a row-major buffer
// (time outermost, longitude innermost).
// Bounds are the caller's responsibility.
func ToFlatIndex(idx MultiIndex, e Extents) int {
	return ((idx.Itime*e.Ndepth+idx.Idepth)*e.Nlat+idx.Ilat)*e.Nlon + idx.Ilon
}

// FromFlatIndex is the inverse of ToFlatIndex.
func FromFlatIndex(flat int, e Extents) MultiIndex {
	var idx MultiIndex
	idx.Ilon = flat % e.Nlon
	flat /= e.Nlon
	idx.Ilat = flat % e.Nlat
	flat /= e.Nlat
	idx.Idepth = flat % e.Ndepth
	idx.Itime = flat / e.Ndepth
	return idx
}

// HorizontalIndex returns the offset of (Ilat, Ilon) in a mask buffer.
func HorizontalIndex(ilat, ilon int, e Extents) int {
	return ilat*e.Nlon + ilon
}
