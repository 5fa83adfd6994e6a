package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitrdm/intervalkit/pkg/interval"
	"github.com/gitrdm/intervalkit/pkg/problem"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

func newSolveCommand(g *globals) *cobra.Command {
	var (
		sf     searchFlags
		output string
		resume string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "solve <problem.yaml>",
		Short: "Enclose every solution of a system",
		Long: `Enclose every solution of the constraints of a problem file.

Boxes are reported as they are found:
  solution  a box holding a solution proven to exist (unique for square systems)
  boundary  a box where the solution set meets an inequality boundary
  unknown   a box too small to split that could not be decided
  pending   a box left unexplored when the search stopped early`,
		Example: `  # Solve and print the boxes
  intervalkit solve circles.yaml

  # Stop after one minute and keep the paving for a later run
  intervalkit solve --timeout 1m --output circles.pav circles.yaml

  # Resume from the unknown and pending boxes of that run
  intervalkit solve --resume circles.pav circles.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			cfg, err := sf.config(cmd, g, p)
			if err != nil {
				return err
			}
			solver, err := p.Solver(cfg)
			if err != nil {
				return err
			}

			start := []interval.Box{p.Box()}
			if resume != "" {
				prev, err := readPaving(resume)
				if err != nil {
					return err
				}
				start = prev.Boxes(prune.Unknown, prune.Pending)
				g.log.Info().Str("paving", resume).Int("boxes", len(start)).Msg("resuming")
			}
			if err := solver.StartWith(start); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for {
				o, ok, err := solver.Next(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				if !quiet && o.Kind != prune.Pending {
					fmt.Fprintln(out, o)
				}
			}
			printSolveReport(out, p, solver)

			if output != "" {
				if err := writePaving(output, solver.Paving()); err != nil {
					return err
				}
				fmt.Fprintf(out, "paving:     %s (%s)\n", output, fileSize(output))
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().IntVar(&sf.solutions, "solutions", 0, "stop after this many solutions")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the paving to this file")
	cmd.Flags().StringVar(&resume, "resume", "", "start from the unknown and pending boxes of a paving file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print the report only")

	return cmd
}

func printSolveReport(w io.Writer, p *problem.Problem, s *prune.Solver) {
	fmt.Fprintf(w, "problem:    %s\n", p.Name)
	fmt.Fprintf(w, "status:     %v\n", s.Status())
	fmt.Fprintf(w, "solutions:  %d\n", len(s.Solutions()))
	fmt.Fprintf(w, "boundaries: %d\n", len(s.Boundaries()))
	fmt.Fprintf(w, "unknowns:   %d\n", len(s.Unknowns()))
	fmt.Fprintf(w, "pending:    %d\n", len(s.Pendings()))
	fmt.Fprintf(w, "cells:      %d\n", s.CellCount())
	fmt.Fprintf(w, "time:       %s\n", duration(s.Elapsed()))
}

func writePaving(path string, p prune.Paving) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create paving file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return prune.WritePaving(f, p)
}

func readPaving(path string) (prune.Paving, error) {
	f, err := os.Open(path)
	if err != nil {
		return prune.Paving{}, fmt.Errorf("failed to open paving file: %w", err)
	}
	defer f.Close()
	return prune.ReadPaving(f)
}
