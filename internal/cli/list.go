package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/tfc/internal/config"
	"github.com/roach88/tfc/internal/loader"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Directory   string
	Weights     int
	ConfigFile  string
	ProjectRoot string
}

// UnitInfo describes a loaded unit for the list command.
type UnitInfo struct {
	Name         string   `json:"name"`
	NumProcs     int      `json:"num_procs"`
	WeightClass  string   `json:"weight_class"`
	Dependencies []string `json:"dependencies,omitempty"`
	Skip         string   `json:"skip,omitempty"`
	Checks       []string `json:"checks"`
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Files    []string   `json:"files"`
	Units    []UnitInfo `json:"units"`
	Problems []string   `json:"load_problems,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load and print the units under a directory without running them",
		Long: `Load every test definition file under the directory, resolving templates,
copy directives and env_var_skip, and print the resulting units.

Example:
  tfc list -d ./regression
  tfc list -d ./regression --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listUnits(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Directory, "directory", "d", "", "directory searched for test definition files (required)")
	cmd.Flags().IntVarP(&opts.Weights, "weights", "w", 1, config.WeightsHelp)
	cmd.Flags().StringVar(&opts.ConfigFile, "config", config.DefaultFileName, "scheduler configuration file, relative to the directory")
	cmd.Flags().StringVar(&opts.ProjectRoot, "project-root", "", "directory relative __executable values resolve against (default: working directory)")
	_ = cmd.MarkFlagRequired("directory")

	return cmd
}

func listUnits(cmd *cobra.Command, opts *ListOptions) error {
	logger := opts.logger()
	f := opts.formatter(cmd)

	weights, err := config.DecodeWeightMask(opts.Weights)
	if err != nil {
		_ = f.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid weights", err)
	}
	reg, err := newRegistry(logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register types", err)
	}
	cfg, err := config.LoadForDirectory(opts.Directory, opts.ConfigFile)
	if err != nil {
		_ = f.Error(CodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	root := opts.ProjectRoot
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return WrapExitError(ExitCommandError, "failed to resolve working directory", err)
		}
	}

	ldOpts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithWeights(weights),
		loader.WithProjectRoot(root),
	}
	if cfg.UnitType != "" {
		ldOpts = append(ldOpts, loader.WithUnitType(cfg.UnitType))
	}
	res, err := loader.New(reg, ldOpts...).Load(cmd.Context(), opts.Directory)
	if err != nil {
		_ = f.Error(CodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load tests", err)
	}
	reportLoad(f, logger, res)

	result := ListResult{Files: res.Files, Units: []UnitInfo{}}
	for _, u := range res.Units {
		info := UnitInfo{
			Name:         u.Name(),
			NumProcs:     u.NumProcs(),
			WeightClass:  string(u.WeightClass()),
			Dependencies: u.Dependencies(),
			Skip:         u.SkipReason(),
		}
		for _, c := range u.Checks() {
			info.Checks = append(info.Checks, c.TypeName())
		}
		result.Units = append(result.Units, info)
	}
	for _, p := range res.Problems {
		result.Problems = append(result.Problems, p.Error())
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	return f.Success(unitTable(result))
}

func unitTable(r ListResult) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "PROCS", "WEIGHT", "DEPENDENCIES", "CHECKS", "SKIP")
	for _, u := range r.Units {
		t.Row(u.Name, strconv.Itoa(u.NumProcs), u.WeightClass,
			strings.Join(u.Dependencies, ","), strings.Join(u.Checks, ","), u.Skip)
	}

	var b strings.Builder
	b.WriteString(t.String())
	fmt.Fprintf(&b, "\n%d units from %d files", len(r.Units), len(r.Files))
	for _, p := range r.Problems {
		fmt.Fprintf(&b, "\nproblem: %s", p)
	}
	return b.String()
}
