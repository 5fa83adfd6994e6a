package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/intervalkit/pkg/prune"
)

func newPavingCommand(g *globals) *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "paving <file.pav>",
		Short: "Summarize a paving file written by solve",
		Example: `  # Count the boxes of each kind
  intervalkit paving circles.pav

  # List the solution and boundary boxes
  intervalkit paving --kind solution --kind boundary circles.pav`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPaving(args[0])
			if err != nil {
				return err
			}
			g.log.Debug().Str("file", args[0]).Int("records", len(p.Outputs)).Msg("read paving")

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:       %s (%s)\n", args[0], fileSize(args[0]))
			fmt.Fprintf(out, "dimension:  %d\n", p.Dim)
			for _, k := range []prune.OutputKind{prune.Solution, prune.Boundary, prune.Unknown, prune.Pending} {
				fmt.Fprintf(out, "%-11s %d\n", k.String()+":", p.Count(k))
			}

			if len(kinds) == 0 {
				return nil
			}
			want := make([]prune.OutputKind, len(kinds))
			for i, s := range kinds {
				if want[i], err = prune.ParseOutputKind(s); err != nil {
					return err
				}
			}
			for _, o := range p.Outputs {
				for _, k := range want {
					if o.Kind == k {
						fmt.Fprintln(out, o)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&kinds, "kind", "k", nil, "list the boxes of this kind (solution, boundary, unknown, pending)")

	return cmd
}
