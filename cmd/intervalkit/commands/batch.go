package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/intervalkit/internal/parallel"
	"github.com/gitrdm/intervalkit/pkg/problem"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

// batchResult is one row of the batch summary.
type batchResult struct {
	path    string
	name    string
	mode    string
	status  string
	summary string
	cells   int
	elapsed time.Duration
	err     error
}

func newBatchCommand(g *globals) *cobra.Command {
	var (
		sf      searchFlags
		workers int
	)

	cmd := &cobra.Command{
		Use:   "batch <problem.yaml>...",
		Short: "Run several problems concurrently",
		Long: `Run every problem file given, solving or optimizing each depending on
whether it has an objective, and print one summary line per problem.
Each search runs on a single goroutine; problems run concurrently on a
pool of workers.`,
		Example: `  intervalkit batch --workers 4 --timeout 30s problems/*.yaml`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := parallel.NewWorkerPool(workers)
			defer pool.Shutdown()
			g.log.Info().Int("problems", len(args)).Int("workers", pool.Size()).Msg("starting batch")

			results, err := parallel.Map(cmd.Context(), pool, args, func(ctx context.Context, path string) batchResult {
				return runOne(ctx, cmd, g, &sf, path)
			})

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tPROBLEM\tMODE\tSTATUS\tRESULT\tCELLS\tTIME")
			failed := 0
			for i, r := range results {
				switch {
				case r.path == "":
					fmt.Fprintf(tw, "%s\t-\t-\tskipped\t-\t-\t-\n", args[i])
				case r.err != nil:
					failed++
					fmt.Fprintf(tw, "%s\t%s\t%s\terror\t%v\t-\t-\n", r.path, r.name, r.mode, r.err)
				default:
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
						r.path, r.name, r.mode, r.status, r.summary, r.cells, duration(r.elapsed))
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d problems failed", failed, len(args))
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of concurrent searches (default: number of CPUs)")

	return cmd
}

func runOne(ctx context.Context, cmd *cobra.Command, g *globals, sf *searchFlags, path string) batchResult {
	r := batchResult{path: path}
	p, err := problem.Load(path)
	if err != nil {
		r.err = err
		return r
	}
	r.name = p.Name
	cfg, err := sf.config(cmd, g, p)
	if err != nil {
		r.err = err
		return r
	}

	if p.Optimization() {
		r.mode = "optimize"
		opt, err := p.Optimizer(cfg)
		if err != nil {
			r.err = err
			return r
		}
		st, err := opt.Optimize(ctx, p.Box())
		if err != nil && st != prune.OptimCancelled {
			r.err = err
			return r
		}
		r.status = st.String()
		r.summary = fmt.Sprintf("[%.6g, %.6g]", opt.Uplo(), opt.Loup())
		r.cells, r.elapsed = opt.CellCount(), opt.Elapsed()
		return r
	}

	r.mode = "solve"
	solver, err := p.Solver(cfg)
	if err != nil {
		r.err = err
		return r
	}
	st, err := solver.Solve(ctx, p.Box())
	if err != nil && st != prune.Cancelled {
		r.err = err
		return r
	}
	r.status = st.String()
	r.summary = fmt.Sprintf("%d solutions, %d boundaries, %d unknowns",
		len(solver.Solutions()), len(solver.Boundaries()), len(solver.Unknowns()))
	r.cells, r.elapsed = solver.CellCount(), solver.Elapsed()
	return r
}
