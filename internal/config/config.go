// Package config holds the batch job configuration.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"go.ngs.io/spherediff/internal/domain"
	"go.ngs.io/spherediff/internal/kernel"
)

// JobConfig describes one batch computation. It is usually decoded from a
// TOML file such as:
//
//	input   = "$DATA/ocean.nc"
//	output  = "diag.nc"
//	kernels = ["vorticity", "divergence"]
//
//	[variables]
//	u_lon = "uo"
//	u_lat = "vo"
type JobConfig struct {
	Input     string            `toml:"input"`
	Output    string            `toml:"output"`
	Kernels   []string          `toml:"kernels"`
	Variables map[string]string `toml:"variables"` // Role -> dataset variable name.
	MaskVar   string            `toml:"mask_var"`  // Optional explicit water mask (nonzero = water).
	Alpha     float64           `toml:"alpha"`
	Radius    float64           `toml:"radius"`
	TimeStart int               `toml:"time_start"`
	TimeCount int               `toml:"time_count"`
}

// Default returns a job computing vorticity from "u" and "v".
func Default() *JobConfig {
	return &JobConfig{
		Kernels: []string{"vorticity"},
		Variables: map[string]string{
			string(kernel.RoleULon): "u",
			string(kernel.RoleULat): "v",
		},
		Alpha:  1,
		Radius: domain.RadiusEarth,
	}
}

// Load decodes a TOML job over the defaults. Keys absent from the file keep
// their default values.
func Load(r io.Reader) (*JobConfig, error) {
	c := Default()
	if _, err := toml.NewDecoder(r).Decode(c); err != nil {
		return nil, fmt.Errorf("failed to decode job config: %w", err)
	}
	return c, nil
}

// LoadFile reads and decodes a TOML job file.
func LoadFile(path string) (*JobConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Setup expands environment variables in paths and validates the job.
func (c *JobConfig) Setup() error {
	c.Input = os.ExpandEnv(c.Input)
	c.Output = os.ExpandEnv(c.Output)

	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	if len(c.Kernels) == 0 {
		return fmt.Errorf("at least one kernel is required (available: %v)", kernel.Names())
	}
	if c.Radius <= 0 {
		return fmt.Errorf("radius must be positive, got %g", c.Radius)
	}
	if c.TimeStart < 0 || c.TimeCount < 0 {
		return fmt.Errorf("time window must be non-negative, got start=%d count=%d", c.TimeStart, c.TimeCount)
	}

	seen := make(map[string]bool, len(c.Kernels))
	for _, name := range c.Kernels {
		if seen[name] {
			return fmt.Errorf("kernel %q listed twice", name)
		}
		seen[name] = true
		k, err := kernel.Lookup(name)
		if err != nil {
			return err
		}
		for _, r := range k.Roles {
			if c.Variables[string(r)] == "" {
				return fmt.Errorf("kernel %s needs variable for role %q", name, r)
			}
		}
	}
	return nil
}

// Roles returns the role-to-variable mapping needed by the configured kernels.
func (c *JobConfig) Roles() map[kernel.Role]string {
	out := make(map[kernel.Role]string)
	for _, name := range c.Kernels {
		k, err := kernel.Lookup(name)
		if err != nil {
			continue
		}
		for _, r := range k.Roles {
			out[r] = c.Variables[string(r)]
		}
	}
	return out
}
