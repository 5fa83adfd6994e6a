package prune

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Config gathers the numeric settings of the search engines. The zero
// value is not usable; start from DefaultConfig.
//
// Several thresholds have no single right value: they trade completeness
// for speed and are exposed so that callers can tune them per problem.
type Config struct {
	// Precision is the width under which a variable is no longer split.
	Precision float64 `yaml:"precision" validate:"gt=0"`
	// Ratio places the split point of a bisection.
	Ratio float64 `yaml:"ratio" validate:"gt=0,lt=1"`
	// Policy selects the variable to split.
	Policy BisectPolicy `yaml:"-"`

	// PropagationRatio is the relative shrink of a variable that wakes the
	// contractors reading it.
	PropagationRatio float64 `yaml:"propagation_ratio" validate:"gte=0,lt=1"`
	// FixpointRatio stops a Fixpoint once an iteration shrinks the box by
	// no more than this.
	FixpointRatio float64 `yaml:"fixpoint_ratio" validate:"gte=0,lt=1"`
	// FixpointMaxIter caps the iterations of a Fixpoint.
	FixpointMaxIter int `yaml:"fixpoint_max_iter" validate:"gt=0"`
	// NewtonCeil is the width above which Newton is skipped.
	NewtonCeil float64 `yaml:"newton_ceil" validate:"gt=0"`
	// LPRelax adds the linear relaxation of the constraints, solved with
	// the simplex method, to the default contractor.
	LPRelax bool `yaml:"lp_relax"`
	// LPMargin widens the cuts and the bounds of the linear relaxation.
	LPMargin float64 `yaml:"lp_margin" validate:"gte=0"`

	// CertifyDelta and CertifyChi inflate the box of each certification
	// step: y ← mid + delta·(y - mid) + [-chi, chi].
	CertifyDelta float64 `yaml:"certify_delta" validate:"gte=1"`
	CertifyChi   float64 `yaml:"certify_chi" validate:"gte=0"`
	// CertifyMaxIter caps the inflation steps of a certification.
	CertifyMaxIter int `yaml:"certify_max_iter" validate:"gt=0"`

	// Timeout bounds the wall-clock duration of a search (0: none).
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	// CellLimit bounds the number of cells created (0: none).
	CellLimit int `yaml:"cell_limit" validate:"gte=0"`
	// SolutionLimit stops a Solver after that many solutions (0: none).
	SolutionLimit int `yaml:"solution_limit" validate:"gte=0"`

	// RelEpsF and AbsEpsF are the relative and absolute gaps between the
	// bounds of the optimum at which the Optimizer stops.
	RelEpsF float64 `yaml:"rel_eps_f" validate:"gte=0"`
	AbsEpsF float64 `yaml:"abs_eps_f" validate:"gte=0"`
	// EqualityEps relaxes equations to |f| ≤ EqualityEps when probing
	// candidate feasible points.
	EqualityEps float64 `yaml:"equality_eps" validate:"gte=0"`
	// LoupSamples is the number of random points probed per cell in
	// addition to its midpoint.
	LoupSamples int `yaml:"loup_samples" validate:"gte=0"`
	// CritPr is the probability of popping from the Optimizer's second
	// heap.
	CritPr float64 `yaml:"critpr" validate:"gte=0,lte=1"`
	// Seed drives every random choice of a run.
	Seed int64 `yaml:"seed"`

	// TraceEvery logs progress every that many cells (0: never).
	TraceEvery int `yaml:"trace_every" validate:"gte=0"`

	Logger  zerolog.Logger `yaml:"-" validate:"-"`
	Metrics *Metrics       `yaml:"-" validate:"-"`
}

// DefaultConfig returns the settings used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		Precision:        1e-8,
		Ratio:            DefaultRatio,
		Policy:           LargestFirst,
		PropagationRatio: 0.1,
		FixpointRatio:    0.01,
		FixpointMaxIter:  50,
		NewtonCeil:       DefaultNewtonCeil,
		LPMargin:         DefaultLPMargin,
		CertifyDelta:     1.1,
		CertifyChi:       1e-12,
		CertifyMaxIter:   20,
		RelEpsF:          1e-3,
		AbsEpsF:          1e-7,
		EqualityEps:      1e-8,
		LoupSamples:      1,
		CritPr:           0.5,
		Seed:             1,
		Logger:           zerolog.Nop(),
	}
}

var validate = validator.New()

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("prune: config: %v: %w", err, ErrInvalidParameter)
	}
	return nil
}

// Option adjusts a Config.
type Option func(*Config)

// NewConfig applies opts to DefaultConfig.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	for _, o := range opts {
		o(&c)
	}
	return c
}

// WithPrecision sets the minimal width of split variables.
func WithPrecision(p float64) Option { return func(c *Config) { c.Precision = p } }

// WithPolicy sets the bisection policy.
func WithPolicy(p BisectPolicy) Option { return func(c *Config) { c.Policy = p } }

// WithTimeout bounds the duration of a search.
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithCellLimit bounds the number of cells a search may create.
func WithCellLimit(n int) Option { return func(c *Config) { c.CellLimit = n } }

// WithLPRelax adds the linear relaxation to the default contractor.
func WithLPRelax() Option { return func(c *Config) { c.LPRelax = true } }

// WithSolutionLimit stops a Solver after n solutions.
func WithSolutionLimit(n int) Option { return func(c *Config) { c.SolutionLimit = n } }

// WithGaps sets the relative and absolute stopping gaps of the Optimizer.
func WithGaps(rel, abs float64) Option {
	return func(c *Config) { c.RelEpsF, c.AbsEpsF = rel, abs }
}

// WithSeed sets the seed of random choices.
func WithSeed(s int64) Option { return func(c *Config) { c.Seed = s } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option { return func(c *Config) { c.Metrics = m } }

// WithTrace logs progress every n cells.
func WithTrace(n int) Option { return func(c *Config) { c.TraceEvery = n } }
