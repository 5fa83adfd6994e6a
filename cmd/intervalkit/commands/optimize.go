package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gitrdm/intervalkit/pkg/problem"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

func newOptimizeCommand(g *globals) *cobra.Command {
	var (
		sf       searchFlags
		relGap   float64
		absGap   float64
		samples  int
		critProb float64
	)

	cmd := &cobra.Command{
		Use:   "optimize <problem.yaml>",
		Short: "Bracket the global minimum of an objective",
		Long: `Bracket the global minimum of the objective of a problem file under its
constraints. The lower bound is proven; the upper bound is the value at the
best feasible point found, equations being relaxed by config.equality_eps.`,
		Example: `  intervalkit optimize --rel-gap 1e-6 disk.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			cfg, err := sf.config(cmd, g, p)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("rel-gap") {
				cfg.RelEpsF = relGap
			}
			if flags.Changed("abs-gap") {
				cfg.AbsEpsF = absGap
			}
			if flags.Changed("samples") {
				cfg.LoupSamples = samples
			}
			if flags.Changed("critpr") {
				cfg.CritPr = critProb
			}
			opt, err := p.Optimizer(cfg)
			if err != nil {
				return err
			}
			if _, err := opt.Optimize(cmd.Context(), p.Box()); err != nil {
				return err
			}
			printOptimReport(cmd.OutOrStdout(), p, opt)
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().Float64Var(&relGap, "rel-gap", 0, "relative gap between the bounds at which to stop")
	cmd.Flags().Float64Var(&absGap, "abs-gap", 0, "absolute gap between the bounds at which to stop")
	cmd.Flags().IntVar(&samples, "samples", 0, "random points probed per cell besides the midpoint")
	cmd.Flags().Float64Var(&critProb, "critpr", 0, "probability of picking the cell of least upper bound")

	return cmd
}

func printOptimReport(w io.Writer, p *problem.Problem, o *prune.Optimizer) {
	fmt.Fprintf(w, "problem:    %s\n", p.Name)
	fmt.Fprintf(w, "status:     %v\n", o.Status())
	fmt.Fprintf(w, "minimum in: [%.12g, %.12g]\n", o.Uplo(), o.Loup())
	if pt := o.LoupPoint(); pt != nil {
		fmt.Fprintf(w, "best point:")
		for i, name := range p.Vars() {
			fmt.Fprintf(w, " %s=%.12g", name, pt[i])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "cells:      %d\n", o.CellCount())
	fmt.Fprintf(w, "time:       %s\n", duration(o.Elapsed()))
}
