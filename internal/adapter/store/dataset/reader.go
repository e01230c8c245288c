// Package dataset reads and writes (time, depth, lat, lon) gridded fields
// stored in NetCDF files.
package dataset

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/fhs/go-netcdf/netcdf"

	"go.ngs.io/spherediff/internal/domain"
)

// ReadOptions restricts and configures what LoadField reads.
type ReadOptions struct {
	// TimeStart and TimeCount select a window of time steps.
	// TimeCount 0 reads every step from TimeStart on.
	TimeStart int
	TimeCount int

	// Radius is the sphere radius in meters (default domain.RadiusEarth).
	Radius float64
}

// Store loads fields from one NetCDF file and caches them by name.
type Store struct {
	path  string
	opts  ReadOptions
	cache map[string]*domain.Variable // Cache loaded variables.
	mu    sync.RWMutex                // Protect cache.
}

// NewStore creates a new NetCDF field store.
func NewStore(path string, opts ReadOptions) *Store {
	if opts.Radius == 0 {
		opts.Radius = domain.RadiusEarth
	}
	return &Store{
		path:  path,
		opts:  opts,
		cache: make(map[string]*domain.Variable),
	}
}

// Path returns the dataset path.
func (s *Store) Path() string {
	return s.path
}

var (
	timeNames  = []string{"time", "t", "time_counter", "ocean_time"}
	depthNames = []string{"depth", "lev", "level", "z", "deptht", "depthu", "depthv", "s_rho"}
	latNames   = []string{"lat", "latitude", "nav_lat", "y"}
	lonNames   = []string{"lon", "longitude", "nav_lon", "x"}
)

// LoadField reads a 2D, 3D or 4D variable as a (time, depth, lat, lon)
// field. Missing time or depth dimensions get length 1.
func (s *Store) LoadField(name string) (*domain.Variable, error) {
	// Check cache first.
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	nc, err := netcdf.OpenFile(s.path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	v, err := readVariable(nc, name, s.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", name, s.path, err)
	}

	s.mu.Lock()
	s.cache[name] = v
	s.mu.Unlock()

	return v, nil
}

// DescribeField returns a variable's dimension names and lengths.
func (s *Store) DescribeField(name string) (*domain.VariableInfo, error) {
	nc, err := netcdf.OpenFile(s.path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer func() { _ = nc.Close() }()

	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrVariableNotFound, name, err)
	}
	names, lengths, err := dimensions(v)
	if err != nil {
		return nil, err
	}
	return &domain.VariableInfo{
		Name:       name,
		Units:      stringAttr(v, "units"),
		Dimensions: names,
		Shape:      lengths,
	}, nil
}

// layout records where each logical dimension sits in the variable.
// A position of -1 means the dimension is absent.
type layout struct {
	names   []string
	lengths []int
	time    int
	depth   int
	lat     int
	lon     int
}

func resolveLayout(names []string, lengths []int) (layout, error) {
	l := layout{names: names, lengths: lengths, time: -1, depth: -1}
	n := len(names)
	switch n {
	case 4:
		// CF order: time, depth, lat, lon.
		l.time, l.depth = 0, 1
	case 3:
		if matches(names[0], depthNames) {
			l.depth = 0
		} else {
			l.time = 0
		}
	case 2:
	default:
		return l, fmt.Errorf("expected 2 to 4 dimensions, got %d", n)
	}
	l.lat, l.lon = n-2, n-1
	return l, nil
}

func readVariable(nc netcdf.Dataset, name string, opts ReadOptions) (*domain.Variable, error) {
	v, err := nc.Var(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVariableNotFound, err)
	}

	names, lengths, err := dimensions(v)
	if err != nil {
		return nil, err
	}
	l, err := resolveLayout(names, lengths)
	if err != nil {
		return nil, err
	}

	// Hyperslab covering the requested time window.
	start := make([]uint64, len(lengths))
	count := make([]uint64, len(lengths))
	for i, n := range lengths {
		count[i] = uint64(n)
	}
	timeStart, timeCount := 0, 1
	if l.time >= 0 {
		timeStart, timeCount, err = timeWindow(lengths[l.time], opts)
		if err != nil {
			return nil, err
		}
		start[l.time] = uint64(timeStart)
		count[l.time] = uint64(timeCount)
	}

	raw, err := readFloat64Slice(v, start, count)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	grid, err := readGrid(nc, l, timeStart, timeCount, opts.Radius)
	if err != nil {
		return nil, err
	}
	if len(raw) != grid.Size() {
		return nil, fmt.Errorf("read %d values, grid has %d points", len(raw), grid.Size())
	}

	// Mask from _FillValue and NaN on the raw packed values. Without a fill
	// attribute only NaN marks land.
	fv, ok := getFillValue(v)
	if !ok {
		fv = math.Inf(1)
	}
	mask, err := domain.MaskFromFill(raw, fv, grid.Extents)
	if err != nil {
		return nil, err
	}
	limit := domain.FillThreshold * math.Abs(fv)
	missing := make([]bool, len(raw))
	for i, val := range raw {
		missing[i] = math.Abs(val) > limit || math.IsNaN(val)
	}

	applyPacking(v, raw)

	// Land cells become 0 after unpacking so add_offset does not leak in.
	for i, m := range missing {
		if m {
			raw[i] = 0
		}
	}

	return &domain.Variable{
		Name:   name,
		Units:  stringAttr(v, "units"),
		Grid:   grid,
		Mask:   mask,
		Values: domain.Field(raw),
	}, nil
}

func timeWindow(n int, opts ReadOptions) (int, int, error) {
	if opts.TimeStart < 0 || opts.TimeStart >= n {
		return 0, 0, fmt.Errorf("time start %d outside [0, %d)", opts.TimeStart, n)
	}
	count := n - opts.TimeStart
	if opts.TimeCount > 0 {
		if opts.TimeStart+opts.TimeCount > n {
			return 0, 0, fmt.Errorf("time window [%d, %d) exceeds %d steps", opts.TimeStart, opts.TimeStart+opts.TimeCount, n)
		}
		count = opts.TimeCount
	}
	return opts.TimeStart, count, nil
}

func readGrid(nc netcdf.Dataset, l layout, timeStart, timeCount int, radius float64) (*domain.Grid, error) {
	var timeCoord, depthCoord []float64
	if l.time >= 0 {
		all, err := readCoord(nc, l.names[l.time], timeNames, l.lengths[l.time], false)
		if err != nil {
			return nil, fmt.Errorf("time: %w", err)
		}
		timeCoord = all[timeStart : timeStart+timeCount]
	}
	if l.depth >= 0 {
		c, err := readCoord(nc, l.names[l.depth], depthNames, l.lengths[l.depth], false)
		if err != nil {
			return nil, fmt.Errorf("depth: %w", err)
		}
		depthCoord = c
	}
	lat, err := readCoord(nc, l.names[l.lat], latNames, l.lengths[l.lat], true)
	if err != nil {
		return nil, fmt.Errorf("latitude: %w", err)
	}
	lon, err := readCoord(nc, l.names[l.lon], lonNames, l.lengths[l.lon], true)
	if err != nil {
		return nil, fmt.Errorf("longitude: %w", err)
	}

	grid, err := domain.NewGrid(timeCoord, depthCoord, toRadians(lat), toRadians(lon), radius)
	if err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return grid, nil
}

// readCoord reads the coordinate variable for a dimension, trying the
// dimension's own name first. Optional coordinates fall back to 0, 1, 2...
func readCoord(nc netcdf.Dataset, dimName string, fallbacks []string, n int, required bool) ([]float64, error) {
	candidates := append([]string{dimName}, fallbacks...)
	for _, name := range candidates {
		v, err := nc.Var(name)
		if err != nil {
			continue
		}
		data, err := readFloat64Var(v)
		if err != nil || len(data) != n {
			continue
		}
		return data, nil
	}
	if required {
		return nil, fmt.Errorf("coordinate variable not found (tried: %v)", candidates)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out, nil
}

// toRadians converts degree coordinates in place and returns them.
func toRadians(deg []float64) []float64 {
	for i, d := range deg {
		deg[i] = domain.Deg2Rad(d)
	}
	return deg
}

func matches(name string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(name, c) {
			return true
		}
	}
	return false
}

func dimensions(v netcdf.Var) ([]string, []int, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	names := make([]string, len(dims))
	lengths := make([]int, len(dims))
	for i, d := range dims {
		if names[i], err = d.Name(); err != nil {
			return nil, nil, fmt.Errorf("failed to get dim%d name: %w", i, err)
		}
		n, err := d.Len()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get dim%d length: %w", i, err)
		}
		lengths[i] = int(n)
	}
	return names, lengths, nil
}

// getFillValue returns the _FillValue or missing_value attribute if present as float64.
func getFillValue(v netcdf.Var) (float64, bool) {
	for _, name := range []string{"_FillValue", "missing_value"} {
		if val, ok := floatAttr(v, name); ok {
			return val, true
		}
	}
	return 0, false
}

// applyPacking applies CF scale_factor and add_offset to every value.
func applyPacking(v netcdf.Var, data []float64) {
	scale, hasScale := floatAttr(v, "scale_factor")
	offset, hasOffset := floatAttr(v, "add_offset")
	if (!hasScale || scale == 1) && (!hasOffset || offset == 0) {
		return
	}
	if !hasScale {
		scale = 1
	}
	for i := range data {
		data[i] = data[i]*scale + offset
	}
}

func floatAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	buf64 := make([]float64, n)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	buf32 := make([]float32, n)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	bufi := make([]int32, n)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	bufs := make([]int16, n)
	if err := a.ReadInt16s(bufs); err == nil {
		return float64(bufs[0]), true
	}
	return 0, false
}

func stringAttr(v netcdf.Var, name string) string {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

// readFloat64Var reads a whole 1D variable as float64.
func readFloat64Var(v netcdf.Var) ([]float64, error) {
	_, lengths, err := dimensions(v)
	if err != nil {
		return nil, err
	}
	if len(lengths) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(lengths))
	}
	return readFloat64Slice(v, []uint64{0}, []uint64{uint64(lengths[0])})
}

// readFloat64Slice reads the hyperslab [start, start+count) as float64.
// Supports float64, float32, int32, and int16 types.
func readFloat64Slice(v netcdf.Var, start, count []uint64) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	total := 1
	for _, c := range count {
		total *= int(c)
	}

	out := make([]float64, total)
	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64: %w", err)
		}
	case netcdf.FLOAT:
		tmp := make([]float32, total)
		if err := v.ReadFloat32Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32: %w", err)
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.INT:
		tmp := make([]int32, total)
		if err := v.ReadInt32Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32: %w", err)
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		tmp := make([]int16, total)
		if err := v.ReadInt16Slice(tmp, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16: %w", err)
		}
		for i, val := range tmp {
			out[i] = float64(val)
		}
	case netcdf.BYTE, netcdf.CHAR, netcdf.UBYTE, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", varType)
	}
	return out, nil
}
