package kernel

import (
	"fmt"
	"sort"

	"go.ngs.io/spherediff/internal/deriv"
	"go.ngs.io/spherediff/internal/domain"
)

// Role names an input field a kernel consumes.
type Role string

// Input roles.
const (
	RoleULon     Role = "u_lon"
	RoleULat     Role = "u_lat"
	RoleHeight   Role = "h"
	RolePressure Role = "p"
)

// Inputs maps roles to loaded fields.
type Inputs map[Role]domain.Field

// Params holds scalar kernel parameters.
type Params struct {
	Alpha float64 // Baroclinic transfer coefficient.
}

// Kernel is a named full-grid computation.
type Kernel struct {
	Name     string
	LongName string
	Units    string
	Roles    []Role
	run      func(d *deriv.Differentiator, in Inputs, p Params, out domain.Field) error
}

// Run checks that every required role is present and fills out.
func (k Kernel) Run(d *deriv.Differentiator, in Inputs, p Params, out domain.Field) error {
	for _, r := range k.Roles {
		if in[r] == nil {
			return fmt.Errorf("kernel %s: missing input %q", k.Name, r)
		}
	}
	if err := k.run(d, in, p, out); err != nil {
		return fmt.Errorf("kernel %s: %w", k.Name, err)
	}
	return nil
}

var registry = map[string]Kernel{
	"vorticity": {
		Name:     "vorticity",
		LongName: "radial component of relative vorticity",
		Units:    "1/s",
		Roles:    []Role{RoleULon, RoleULat},
		run: func(d *deriv.Differentiator, in Inputs, _ Params, out domain.Field) error {
			return Vorticity(d, in[RoleULon], in[RoleULat], out)
		},
	},
	"divergence": {
		Name:     "divergence",
		LongName: "horizontal velocity divergence",
		Units:    "1/s",
		Roles:    []Role{RoleULon, RoleULat},
		run: func(d *deriv.Differentiator, in Inputs, _ Params, out domain.Field) error {
			return Divergence(d, in[RoleULon], in[RoleULat], out)
		},
	},
	"kinetic_energy": {
		Name:     "kinetic_energy",
		LongName: "horizontal kinetic energy per unit mass",
		Units:    "m^2/s^2",
		Roles:    []Role{RoleULon, RoleULat},
		run: func(d *deriv.Differentiator, in Inputs, _ Params, out domain.Field) error {
			return KineticEnergy(d, in[RoleULon], in[RoleULat], out)
		},
	},
	"baroclinic_transfer": {
		Name:     "baroclinic_transfer",
		LongName: "shallow-water baroclinic energy transfer",
		Units:    "",
		Roles:    []Role{RoleULon, RoleULat, RoleHeight, RolePressure},
		run: func(d *deriv.Differentiator, in Inputs, p Params, out domain.Field) error {
			return BaroclinicTransfer(d, in[RoleULon], in[RoleULat], in[RoleHeight], in[RolePressure], p.Alpha, out)
		},
	},
}

// Lookup returns the kernel registered under name.
func Lookup(name string) (Kernel, error) {
	k, ok := registry[name]
	if !ok {
		return Kernel{}, fmt.Errorf("unknown kernel %q (available: %v)", name, Names())
	}
	return k, nil
}

// Names returns the registered kernel names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
