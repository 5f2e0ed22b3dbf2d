package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/library"
	"github.com/roach88/fnjit/internal/tuple"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Host bool // include host routines
}

// FunctionInfo describes one registered function.
type FunctionInfo struct {
	Name        string   `json:"name"`
	Signature   string   `json:"signature"`
	Description string   `json:"description,omitempty"`
	Body        string   `json:"body"`
	Calls       []string `json:"calls,omitempty"`
	InputSize   int      `json:"input_size"`
	OutputSize  int      `json:"output_size"`
	Host        bool     `json:"host,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <path>...",
		Short: "List function definitions",
		Long: `List the functions defined under the given paths with their
signatures, the functions they call and the byte size of their input and
output tuples.

Examples:
  fnjit list ./functions
  fnjit list ./functions --host --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Host, "host", false, "include host math routines")

	return cmd
}

func runList(opts *ListOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, defs, err := loadRegistry(paths)
	if err != nil {
		return err
	}

	descriptions := make(map[string]string, len(defs))
	for _, d := range defs {
		descriptions[d.Name] = d.Description
	}

	var infos []FunctionInfo
	for _, fn := range reg.Functions() {
		desc, defined := descriptions[fn.Name()]
		if !defined && !opts.Host {
			continue
		}
		infos = append(infos, describeFunction(reg, fn, desc, !defined))
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIGNATURE\tBODY\tIN\tOUT\tCALLS")
	for _, info := range infos {
		calls := "-"
		if len(info.Calls) > 0 {
			calls = fmt.Sprint(info.Calls)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			info.Name,
			info.Signature,
			info.Body,
			units.BytesSize(float64(info.InputSize)),
			units.BytesSize(float64(info.OutputSize)),
			calls)
	}
	return tw.Flush()
}

func describeFunction(reg *library.Registry, fn *core.Function, desc string, host bool) FunctionInfo {
	sig := fn.Signature()
	info := FunctionInfo{
		Name:        fn.Name(),
		Signature:   formatSignature(fn),
		Description: desc,
		Body:        library.MostConcrete(fn),
		InputSize:   tuple.NewMeta(sig.InputTypes()).Size(),
		OutputSize:  tuple.NewMeta(sig.OutputTypes()).Size(),
		Host:        host,
	}
	for _, dep := range reg.Dependencies(fn.Name()) {
		info.Calls = append(info.Calls, dep.Name())
	}
	return info
}
