package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gitrdm/intervalkit/pkg/problem"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

// globals holds the persistent flags and what they set up.
type globals struct {
	logLevel    string
	logFormat   string
	metricsAddr string

	log     zerolog.Logger
	metrics *prune.Metrics
	server  *http.Server
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:   "intervalkit",
		Short: "Interval branch-and-prune solver and global optimizer",
		Long: `intervalkit encloses every solution of a system of nonlinear equations
and inequalities, or brackets the global minimum of an objective under such
constraints, with outward-rounded interval arithmetic.

Problems are YAML files listing variables with their domains, constraints
and an optional objective to minimize.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return g.teardown(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(newSolveCommand(g))
	rootCmd.AddCommand(newOptimizeCommand(g))
	rootCmd.AddCommand(newBatchCommand(g))
	rootCmd.AddCommand(newPavingCommand(g))

	return rootCmd
}

func (g *globals) setup(stderr io.Writer) error {
	level, err := zerolog.ParseLevel(g.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	switch g.logFormat {
	case "console":
		g.log = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.TimeOnly})
	case "json":
		g.log = zerolog.New(stderr)
	default:
		return fmt.Errorf("invalid --log-format %q", g.logFormat)
	}
	g.log = g.log.Level(level).With().Timestamp().Logger()

	if g.metricsAddr == "" {
		return nil
	}
	g.metrics = prune.NewMetrics("intervalkit")
	ln, err := net.Listen("tcp", g.metricsAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.metricsAddr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", g.metrics.Handler())
	g.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	g.log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
	return nil
}

func (g *globals) teardown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}

// searchFlags are the settings a command line may override.
type searchFlags struct {
	precision float64
	timeout   time.Duration
	cellLimit string
	solutions int
	policy    string
	seed      int64
	trace     int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.precision, "precision", 0, "minimal width of split variables")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "stop the search after this duration")
	cmd.Flags().StringVar(&f.cellLimit, "cell-limit", "", "stop the search after this many cells (e.g. 500k, 2M)")
	cmd.Flags().StringVar(&f.policy, "bisection", "", "bisection policy (largest-first, round-robin)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "seed of random choices")
	cmd.Flags().IntVar(&f.trace, "trace", 0, "log progress every this many cells")
}

// config returns the settings of p with the flags set on cmd applied.
func (f *searchFlags) config(cmd *cobra.Command, g *globals, p *problem.Problem) (prune.Config, error) {
	if cmd.Flags().Changed("bisection") {
		p.Bisection = f.policy
	}
	cfg, err := p.Settings()
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("precision") {
		cfg.Precision = f.precision
	}
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if flags.Changed("cell-limit") {
		n, err := parseCount(f.cellLimit)
		if err != nil {
			return cfg, fmt.Errorf("invalid --cell-limit: %w", err)
		}
		cfg.CellLimit = n
	}
	if flags.Changed("solutions") {
		cfg.SolutionLimit = f.solutions
	}
	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}
	if flags.Changed("trace") {
		cfg.TraceEvery = f.trace
	}
	cfg.Logger = g.log.With().Str("problem", p.Name).Logger()
	cfg.Metrics = g.metrics
	return cfg, cfg.Validate()
}

// parseCount reads a count with an optional decimal suffix: 500k, 2M.
func parseCount(s string) (int, error) {
	n, err := units.FromHumanSize(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// fileSize formats the size of path, or "-" when it cannot be read.
func fileSize(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return units.HumanSize(float64(fi.Size()))
}

// duration formats a search time for humans, keeping the exact value for
// short runs.
func duration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Microsecond).String()
	}
	return units.HumanDuration(d)
}
