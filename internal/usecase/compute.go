package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"go.ngs.io/spherediff/internal/adapter/store"
	"go.ngs.io/spherediff/internal/deriv"
	"go.ngs.io/spherediff/internal/domain"
	"go.ngs.io/spherediff/internal/kernel"
)

// ComputeRequest describes a full-grid computation.
type ComputeRequest struct {
	Kernels   []string
	Variables map[kernel.Role]string // Dataset variable per input role.
	MaskVar   string                 // Optional explicit water mask (nonzero = water).
	Alpha     float64
	Output    string // Output path; empty skips writing.
}

// Validate checks that every kernel exists and has its inputs mapped.
func (r *ComputeRequest) Validate() error {
	if len(r.Kernels) == 0 {
		return fmt.Errorf("at least one kernel is required")
	}
	for _, name := range r.Kernels {
		k, err := kernel.Lookup(name)
		if err != nil {
			return err
		}
		for _, role := range k.Roles {
			if r.Variables[role] == "" {
				return fmt.Errorf("kernel %s: no variable for role %q", name, role)
			}
		}
	}
	return nil
}

// OutputStats summarizes one output over water cells.
type OutputStats struct {
	Name      string  `json:"name"`
	Units     string  `json:"units"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	Count     int     `json:"count"`      // Finite water values.
	NonFinite int     `json:"non_finite"` // NaN or Inf water values (poles).
}

// ComputeResponse reports what was computed.
type ComputeResponse struct {
	Extents    domain.Extents `json:"extents"`
	WaterCells int            `json:"water_cells"`
	Outputs    []OutputStats  `json:"outputs"`
	Written    string         `json:"written,omitempty"`
}

// ComputeUseCase loads inputs, runs kernels over the full grid and writes
// the results.
type ComputeUseCase struct {
	loader store.FieldLoader
	writer store.FieldWriter
	log    logrus.FieldLogger
}

// NewComputeUseCase creates a new compute use case. writer may be nil when
// outputs are never persisted.
func NewComputeUseCase(loader store.FieldLoader, writer store.FieldWriter, log logrus.FieldLogger) *ComputeUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ComputeUseCase{
		loader: loader,
		writer: writer,
		log:    log,
	}
}

// Execute runs the request.
func (uc *ComputeUseCase) Execute(req ComputeRequest) (*ComputeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	kernels := make([]kernel.Kernel, len(req.Kernels))
	needed := make(map[kernel.Role]string)
	for i, name := range req.Kernels {
		k, _ := kernel.Lookup(name)
		kernels[i] = k
		for _, role := range k.Roles {
			needed[role] = req.Variables[role]
		}
	}

	inputs, grid, mask, err := uc.loadInputs(needed, req.MaskVar)
	if err != nil {
		return nil, err
	}

	d, err := deriv.NewDifferentiator(grid, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to build differentiator: %w", err)
	}

	resp := &ComputeResponse{
		Extents:    grid.Extents,
		WaterCells: mask.WaterCount(),
	}
	uc.log.WithFields(logrus.Fields{
		"extents": fmt.Sprintf("%dx%dx%dx%d", grid.Ntime, grid.Ndepth, grid.Nlat, grid.Nlon),
		"water":   resp.WaterCells,
		"kernels": req.Kernels,
	}).Info("Computing kernels")

	outputs := make([]domain.Output, 0, len(kernels))
	for _, k := range kernels {
		out := domain.NewField(grid.Extents)
		if err := k.Run(d, inputs, kernel.Params{Alpha: req.Alpha}, out); err != nil {
			return nil, err
		}
		stats := summarize(k.Name, k.Units, out, mask, grid.Extents)
		uc.log.WithFields(logrus.Fields{
			"kernel":     k.Name,
			"min":        stats.Min,
			"max":        stats.Max,
			"mean":       stats.Mean,
			"non_finite": stats.NonFinite,
		}).Info("Kernel done")
		resp.Outputs = append(resp.Outputs, stats)
		outputs = append(outputs, domain.Output{
			Name:     k.Name,
			LongName: k.LongName,
			Units:    k.Units,
			Values:   out,
		})
	}

	if req.Output != "" {
		if uc.writer == nil {
			return nil, fmt.Errorf("no writer configured for output %s", req.Output)
		}
		if err := uc.writer.WriteFields(req.Output, grid, mask, outputs); err != nil {
			return nil, fmt.Errorf("failed to write outputs: %w", err)
		}
		resp.Written = req.Output
		uc.log.WithField("path", req.Output).Info("Wrote outputs")
	}

	return resp, nil
}

// loadInputs loads every role variable, checks that they share one grid and
// combines their masks.
func (uc *ComputeUseCase) loadInputs(needed map[kernel.Role]string, maskVar string) (kernel.Inputs, *domain.Grid, domain.Mask, error) {
	// Deterministic load order keeps error messages stable.
	roles := make([]string, 0, len(needed))
	for r := range needed {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)

	inputs := make(kernel.Inputs, len(needed))
	var grid *domain.Grid
	var mask domain.Mask
	var first string
	for _, r := range roles {
		name := needed[kernel.Role(r)]
		v, err := uc.loader.LoadField(name)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load %s for %s: %w", name, r, err)
		}
		if grid == nil {
			grid, mask, first = v.Grid, v.Mask, name
		} else {
			if err := SameGrid(grid, v.Grid); err != nil {
				return nil, nil, nil, fmt.Errorf("%s and %s: %w", first, name, err)
			}
			mask = mask.And(v.Mask)
		}
		inputs[kernel.Role(r)] = v.Values
		uc.log.WithFields(logrus.Fields{"role": r, "variable": name}).Debug("Loaded input")
	}

	if maskVar != "" {
		explicit, err := uc.loadMask(maskVar, grid)
		if err != nil {
			return nil, nil, nil, err
		}
		mask = mask.And(explicit)
	}
	return inputs, grid, mask, nil
}

// loadMask reads a variable whose first slab flags water with nonzero values.
func (uc *ComputeUseCase) loadMask(name string, grid *domain.Grid) (domain.Mask, error) {
	v, err := uc.loader.LoadField(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load mask %s: %w", name, err)
	}
	return maskFromFlags(v, grid)
}

func maskFromFlags(v *domain.Variable, grid *domain.Grid) (domain.Mask, error) {
	if v.Grid.Nlat != grid.Nlat || v.Grid.Nlon != grid.Nlon {
		return nil, fmt.Errorf("mask %s: %w", v.Name, domain.ErrGridMismatch)
	}
	m := make(domain.Mask, grid.HorizontalSize())
	for i := range m {
		m[i] = v.Values[i] != 0 && v.Mask[i]
	}
	return m, nil
}

// SameGrid returns ErrGridMismatch unless a and b have identical extents and
// horizontal coordinates.
func SameGrid(a, b *domain.Grid) error {
	if a.Extents != b.Extents {
		return fmt.Errorf("%w: extents %+v vs %+v", domain.ErrGridMismatch, a.Extents, b.Extents)
	}
	if !floats.Equal(a.Lat, b.Lat) || !floats.Equal(a.Lon, b.Lon) {
		return fmt.Errorf("%w: horizontal coordinates differ", domain.ErrGridMismatch)
	}
	if a.Radius != b.Radius {
		return fmt.Errorf("%w: radius %g vs %g", domain.ErrGridMismatch, a.Radius, b.Radius)
	}
	return nil
}

// summarize computes statistics over water cells, counting non-finite values
// separately.
func summarize(name, units string, values domain.Field, mask domain.Mask, e domain.Extents) OutputStats {
	stats := OutputStats{Name: name, Units: units}
	hsize := e.HorizontalSize()
	finite := make([]float64, 0, len(values))
	for k, v := range values {
		if !mask[k%hsize] {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			stats.NonFinite++
			continue
		}
		finite = append(finite, v)
	}
	stats.Count = len(finite)
	if stats.Count == 0 {
		return stats
	}
	stats.Min = floats.Min(finite)
	stats.Max = floats.Max(finite)
	stats.Mean = floats.Sum(finite) / float64(stats.Count)
	return stats
}
