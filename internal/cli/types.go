package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// TypeInfo documents one registered type.
type TypeInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ParamInfo `json:"parameters"`
}

// ParamInfo documents one schema entry.
type ParamInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types [type...]",
		Short: "Print the registered unit and check types with their parameters",
		Long: `Print every registered type, or only the named ones, with the parameters
a definition entry of that type accepts.

Example:
  tfc types
  tfc types StrCompare --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return describeTypes(cmd, rootOpts, args)
		},
	}
}

func describeTypes(cmd *cobra.Command, opts *RootOptions, names []string) error {
	f := opts.formatter(cmd)
	reg, err := newRegistry(opts.logger())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register types", err)
	}
	if len(names) == 0 {
		names = reg.Types()
	}

	infos := make([]TypeInfo, 0, len(names))
	for _, name := range names {
		d, ok := reg.Lookup(name)
		if !ok {
			_ = f.Error(CodeConfig, fmt.Sprintf("unknown type %q", name), reg.Types())
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown type %q", name))
		}
		info := TypeInfo{Name: d.TypeName, Description: d.Description, Parameters: []ParamInfo{}}
		for _, decl := range d.Schema().Declarations() {
			p := ParamInfo{
				Name:        decl.Name,
				Kind:        decl.Kind.String(),
				Required:    decl.Required,
				Description: decl.Description,
			}
			if decl.Default != nil {
				p.Default = decl.Default.Literal()
			}
			info.Parameters = append(info.Parameters, p)
		}
		infos = append(infos, info)
	}

	if opts.Format == "json" {
		return f.Success(infos)
	}
	return f.Success(formatTypes(infos))
}

func formatTypes(infos []TypeInfo) string {
	var b strings.Builder
	for i, info := range infos {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s\n", info.Name, info.Description)
		for _, p := range info.Parameters {
			switch {
			case p.Required:
				fmt.Fprintf(&b, "  %s (%s, required): %s\n", p.Name, p.Kind, p.Description)
			case p.Default != nil:
				fmt.Fprintf(&b, "  %s (%s, default %v): %s\n", p.Name, p.Kind, p.Default, p.Description)
			default:
				fmt.Fprintf(&b, "  %s (%s): %s\n", p.Name, p.Kind, p.Description)
			}
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
