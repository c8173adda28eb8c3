// ABOUTME: Cadence CLI commands
// ABOUTME: Lists the catalog and renders the cadence graph
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/viz"
)

func NewCadencesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cadences",
		Short: "Show the cadence catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := rootOpts.Config.Catalog()
			if err != nil {
				return err
			}
			names := catalog.Names()
			if len(args) == 1 {
				name, ok := cadence.ParseName(args[0])
				if !ok || !catalog.Has(args[0]) {
					return fmt.Errorf("unknown cadence %q", args[0])
				}
				names = []cadence.Name{name}
			}

			out := cmd.OutOrStdout()
			for i, name := range names {
				if i > 0 {
					_, _ = fmt.Fprintln(out)
				}
				steps, _ := catalog.Steps(name)
				_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s (%d steps)", name, len(steps))))
				for j, step := range steps {
					_, _ = fmt.Fprintf(out, "  %d. %s %s\n", j+1, dimStyle.Render(fmt.Sprintf("+%dd", step.DelayDays)), step.Intent)
				}
			}
			return nil
		},
	}
	cmd.AddCommand(newCadenceGraphCommand(rootOpts))
	return cmd
}

func newCadenceGraphCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		format string
		output string
		only   string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render cadence steps and transitions with GraphViz",
		Example: `  warmer cadences graph > cadences.dot
  warmer cadences graph --format svg --output cadences.svg
  warmer cadences graph --cadence RenewalPush`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := rootOpts.Config.Engine()
			if err != nil {
				return err
			}
			var name cadence.Name
			if only != "" {
				n, ok := cadence.ParseName(only)
				if !ok {
					return fmt.Errorf("unknown cadence %q", only)
				}
				name = n
			}
			f := viz.Format(format)
			if f != viz.FormatDOT && f != viz.FormatSVG {
				return fmt.Errorf("invalid --format %q (valid: dot, svg)", format)
			}

			rendered, _, err := viz.NewGraphGenerator(engine).Render(cmd.Context(), f, name)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
				return err
			}
			if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
				return fmt.Errorf("failed to write graph: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Graph written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "dot", "output format (dot|svg)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&only, "cadence", "", "only draw this cadence")
	return cmd
}
