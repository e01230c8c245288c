package usecase

import (
	"fmt"
	"math"
	"sync"

	"go.ngs.io/spherediff/internal/adapter/interp"
	"go.ngs.io/spherediff/internal/adapter/store"
	"go.ngs.io/spherediff/internal/deriv"
	"go.ngs.io/spherediff/internal/domain"
	"go.ngs.io/spherediff/internal/kernel"
)

// DerivativeResult is a derivative along one grid axis at one point.
type DerivativeResult struct {
	Field string            `json:"field"`
	Axis  string            `json:"axis"`
	Index domain.MultiIndex `json:"index"`
	Water bool              `json:"water"`
	Value *float64          `json:"value"` // Null when not finite.
}

// GradientResult is the Cartesian gradient of a field at one point.
type GradientResult struct {
	Field string            `json:"field"`
	Index domain.MultiIndex `json:"index"`
	Water bool              `json:"water"`
	X     *float64          `json:"x"`
	Y     *float64          `json:"y"`
	Z     *float64          `json:"z"`
}

// VorticityResult is the radial vorticity at a grid point or at an
// interpolated location.
type VorticityResult struct {
	Index        *domain.MultiIndex `json:"index,omitempty"`
	Lat          *float64           `json:"lat,omitempty"`
	Lon          *float64           `json:"lon,omitempty"`
	Interpolated bool               `json:"interpolated"`
	Water        bool               `json:"water"`
	Value        *float64           `json:"value"`
}

// PointUseCase answers per-point queries against one dataset.
type PointUseCase struct {
	loader store.FieldLoader
	uLon   string
	uLat   string
	fields []string

	diffs map[string]*deriv.Differentiator // Cache differentiators by variable key.
	mu    sync.RWMutex                     // Protect diffs.
}

// NewPointUseCase creates a point query use case. uLon and uLat name the
// velocity components; extra lists further variables reported by Fields.
func NewPointUseCase(loader store.FieldLoader, uLon, uLat string, extra ...string) *PointUseCase {
	fields := []string{uLon, uLat}
	for _, f := range extra {
		if f != "" && f != uLon && f != uLat {
			fields = append(fields, f)
		}
	}
	return &PointUseCase{
		loader: loader,
		uLon:   uLon,
		uLat:   uLat,
		fields: fields,
		diffs:  make(map[string]*deriv.Differentiator),
	}
}

// Fields describes the configured variables.
func (uc *PointUseCase) Fields() ([]domain.VariableInfo, error) {
	out := make([]domain.VariableInfo, 0, len(uc.fields))
	for _, name := range uc.fields {
		info, err := uc.loader.DescribeField(name)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", name, err)
		}
		out = append(out, *info)
	}
	return out, nil
}

// Derivative returns d(field)/d(axis) at idx.
func (uc *PointUseCase) Derivative(field, axisName string, idx domain.MultiIndex) (*DerivativeResult, error) {
	axis, err := deriv.ParseAxis(axisName)
	if err != nil {
		return nil, err
	}
	v, d, err := uc.field(field)
	if err != nil {
		return nil, err
	}
	val, err := d.Derivative(v.Values, axis, idx)
	if err != nil {
		return nil, err
	}
	return &DerivativeResult{
		Field: field,
		Axis:  axis.String(),
		Index: idx,
		Water: d.IsWater(idx),
		Value: finite(val),
	}, nil
}

// Gradient returns the Cartesian gradient of field at idx.
func (uc *PointUseCase) Gradient(field string, idx domain.MultiIndex) (*GradientResult, error) {
	v, d, err := uc.field(field)
	if err != nil {
		return nil, err
	}
	if err := v.Grid.CheckIndex(idx); err != nil {
		return nil, err
	}
	g := d.GradientAtPoint(v.Values, idx)
	return &GradientResult{
		Field: field,
		Index: idx,
		Water: d.IsWater(idx),
		X:     finite(g.X),
		Y:     finite(g.Y),
		Z:     finite(g.Z),
	}, nil
}

// Vorticity returns the radial vorticity at idx.
func (uc *PointUseCase) Vorticity(idx domain.MultiIndex) (*VorticityResult, error) {
	uLon, uLat, d, err := uc.velocity()
	if err != nil {
		return nil, err
	}
	if err := d.Grid().CheckIndex(idx); err != nil {
		return nil, err
	}
	return &VorticityResult{
		Index: &idx,
		Water: d.IsWater(idx),
		Value: finite(kernel.VorticityAtPoint(d, uLon, uLat, idx)),
	}, nil
}

// VorticityAt returns the radial vorticity at (latDeg, lonDeg) by bilinear
// interpolation of the four surrounding grid values. Land corners and
// corners with non-finite vorticity are skipped; a cell with none left is
// reported as land.
func (uc *PointUseCase) VorticityAt(latDeg, lonDeg float64, itime, idepth int) (*VorticityResult, error) {
	uLon, uLat, d, err := uc.velocity()
	if err != nil {
		return nil, err
	}
	g := d.Grid()
	if err := g.CheckIndex(domain.MultiIndex{Itime: itime, Idepth: idepth}); err != nil {
		return nil, err
	}
	cell, err := interp.Locate(domain.Deg2Rad(lonDeg), domain.Deg2Rad(latDeg), g.Lon, g.Lat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexOutOfRange, err)
	}

	res := &VorticityResult{Lat: &latDeg, Lon: &lonDeg, Interpolated: true}
	val, err := interp.Weighted(cell.Corners(), func(row, col int) (float64, bool) {
		idx := domain.MultiIndex{Itime: itime, Idepth: idepth, Ilat: row, Ilon: col}
		if !d.IsWater(idx) {
			return 0, false
		}
		v := kernel.VorticityAtPoint(d, uLon, uLat, idx)
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	})
	if err != nil {
		// All corners on land.
		return res, nil
	}
	res.Water = true
	res.Value = finite(val)
	return res, nil
}

// field loads a variable and its differentiator.
func (uc *PointUseCase) field(name string) (*domain.Variable, *deriv.Differentiator, error) {
	v, err := uc.loader.LoadField(name)
	if err != nil {
		return nil, nil, err
	}
	d, err := uc.differentiator(name, v.Grid, v.Mask)
	if err != nil {
		return nil, nil, err
	}
	return v, d, nil
}

// velocity loads both components with a differentiator over their combined mask.
func (uc *PointUseCase) velocity() (domain.Field, domain.Field, *deriv.Differentiator, error) {
	u, err := uc.loader.LoadField(uc.uLon)
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := uc.loader.LoadField(uc.uLat)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := SameGrid(u.Grid, v.Grid); err != nil {
		return nil, nil, nil, fmt.Errorf("%s and %s: %w", uc.uLon, uc.uLat, err)
	}
	d, err := uc.differentiator(uc.uLon+"+"+uc.uLat, u.Grid, u.Mask.And(v.Mask))
	if err != nil {
		return nil, nil, nil, err
	}
	return u.Values, v.Values, d, nil
}

func (uc *PointUseCase) differentiator(key string, grid *domain.Grid, mask domain.Mask) (*deriv.Differentiator, error) {
	// Check cache first.
	uc.mu.RLock()
	if d, ok := uc.diffs[key]; ok {
		uc.mu.RUnlock()
		return d, nil
	}
	uc.mu.RUnlock()

	d, err := deriv.NewDifferentiator(grid, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to build differentiator for %s: %w", key, err)
	}

	uc.mu.Lock()
	uc.diffs[key] = d
	uc.mu.Unlock()
	return d, nil
}

// finite returns nil for NaN and Inf so results encode as JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
