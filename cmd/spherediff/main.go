// Command spherediff computes derivative diagnostics (vorticity, divergence,
// baroclinic transfer) of gridded ocean and atmosphere fields.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.ngs.io/spherediff/internal/adapter/store/dataset"
	"go.ngs.io/spherediff/internal/config"
	"go.ngs.io/spherediff/internal/usecase"
)

const version = "0.1.0"

func main() {
	if err := Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "spherediff",
	Short: "Finite-difference diagnostics on latitude-longitude grids.",
	Long: `spherediff differentiates gridded (time, depth, lat, lon) fields read from
NetCDF files and assembles vorticity, divergence, kinetic energy and
baroclinic transfer. Land cells are taken from each variable's _FillValue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		lvl, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		level, err := log.ParseLevel(lvl)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spherediff v%s\n", version)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run kernels over a dataset and write the results.",
	Long: `run loads the variables a job needs, computes every requested kernel over
the full grid and writes one NetCDF variable per kernel. Options come from
the TOML file given by --config; flags override file values.

Available kernels: vorticity, divergence, kinetic_energy, baroclinic_transfer.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := jobFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		resp, err := runJob(cfg)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	Root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	f := runCmd.Flags()
	f.String("config", "", "Path to a TOML job file")
	f.String("input", "", "Input NetCDF dataset")
	f.String("output", "", "Output NetCDF file")
	f.StringSlice("kernel", nil, "Kernels to compute (repeatable)")
	f.StringToString("var", nil, "Role to variable mapping, e.g. u_lon=uo,u_lat=vo")
	f.String("mask-var", "", "Variable flagging water with nonzero values")
	f.Float64("alpha", 1, "Baroclinic transfer coefficient")
	f.Float64("radius", 0, "Sphere radius in meters (default Earth)")
	f.Int("time-start", 0, "First time step to load")
	f.Int("time-count", 0, "Number of time steps to load (0 = all)")

	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(synthCmd)
}

// jobFromFlags loads the job file, if any, and applies explicitly set flags.
func jobFromFlags(f *pflag.FlagSet) (*config.JobConfig, error) {
	cfg := config.Default()
	if path, _ := f.GetString("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if f.Changed("input") {
		cfg.Input, _ = f.GetString("input")
	}
	if f.Changed("output") {
		cfg.Output, _ = f.GetString("output")
	}
	if f.Changed("kernel") {
		cfg.Kernels, _ = f.GetStringSlice("kernel")
	}
	if f.Changed("var") {
		vars, _ := f.GetStringToString("var")
		if cfg.Variables == nil {
			cfg.Variables = make(map[string]string)
		}
		for role, name := range vars {
			cfg.Variables[role] = name
		}
	}
	if f.Changed("mask-var") {
		cfg.MaskVar, _ = f.GetString("mask-var")
	}
	if f.Changed("alpha") {
		cfg.Alpha, _ = f.GetFloat64("alpha")
	}
	if f.Changed("radius") {
		cfg.Radius, _ = f.GetFloat64("radius")
	}
	if f.Changed("time-start") {
		cfg.TimeStart, _ = f.GetInt("time-start")
	}
	if f.Changed("time-count") {
		cfg.TimeCount, _ = f.GetInt("time-count")
	}

	if err := cfg.Setup(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}
	return cfg, nil
}

// runJob executes a validated job against its NetCDF input.
func runJob(cfg *config.JobConfig) (*usecase.ComputeResponse, error) {
	loader := dataset.NewStore(cfg.Input, dataset.ReadOptions{
		TimeStart: cfg.TimeStart,
		TimeCount: cfg.TimeCount,
		Radius:    cfg.Radius,
	})
	uc := usecase.NewComputeUseCase(loader, dataset.NewWriter(), log.StandardLogger())

	log.WithFields(log.Fields{
		"input":  cfg.Input,
		"output": cfg.Output,
	}).Info("Running job")

	return uc.Execute(usecase.ComputeRequest{
		Kernels:   cfg.Kernels,
		Variables: cfg.Roles(),
		MaskVar:   cfg.MaskVar,
		Alpha:     cfg.Alpha,
		Output:    cfg.Output,
	})
}
