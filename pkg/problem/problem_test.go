package problem

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/interval"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

func TestLoad(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "circles.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "circles", p.Name)
	assert.Equal(t, []string{"x", "y"}, p.Vars())
	assert.Equal(t, filepath.Join("testdata", "circles.yaml"), p.Path)
	assert.False(t, p.Optimization())
	assert.True(t, p.Box().Equal(interval.BoxOf(interval.New(-10, 10), interval.New(-10, 10))))

	cfg, err := p.Settings()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 1e-8, cfg.Precision)
	// Unset settings keep their defaults.
	def := prune.DefaultConfig()
	assert.Equal(t, def.NewtonCeil, cfg.NewtonCeil)
	assert.Equal(t, def.CertifyMaxIter, cfg.CertifyMaxIter)
	assert.Equal(t, prune.LargestFirst, cfg.Policy)

	_, err = Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsInvalidProblems(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":        "name: [",
		"unknown field": "name: p\nvariables: [{name: x, domain: [0, 1]}]\nconstraints: [x == 0]\ncolour: red\n",
		"no name":       "variables: [{name: x, domain: [0, 1]}]\nconstraints: [x == 0]\n",
		"no variables":  "name: p\nconstraints: [x == 0]\n",
		"short domain":  "name: p\nvariables: [{name: x, domain: [0]}]\nconstraints: [x == 0]\n",
		"empty domain":  "name: p\nvariables: [{name: x, domain: [1, 0]}]\nconstraints: [x == 0]\n",
		"twice":         "name: p\nvariables: [{name: x, domain: [0, 1]}, {name: x, domain: [0, 1]}]\nconstraints: [x == 0]\n",
		"nothing to do": "name: p\nvariables: [{name: x, domain: [0, 1]}]\n",
		"bad q":         "name: p\nvariables: [{name: x, domain: [0, 1]}]\nrobust: [{q: 3, constraints: [x <= 0, x >= 1]}]\n",
		"bad algorithm": "name: p\nvariables: [{name: x, domain: [0, 1]}]\nrobust: [{q: 1, algorithm: fast, constraints: [x <= 0]}]\n",
		"bad policy":    "name: p\nvariables: [{name: x, domain: [0, 1]}]\nconstraints: [x == 0]\nbisection: smallest-first\n",
		"bad config":    "name: p\nvariables: [{name: x, domain: [0, 1]}]\nconstraints: [x == 0]\nconfig: {precision: -1}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestBadExpressionsFailAtBuild(t *testing.T) {
	p, err := Parse([]byte("name: p\nvariables: [{name: x, domain: [0, 1]}]\nconstraints: [z == 0]\n"))
	require.NoError(t, err)
	cfg, err := p.Settings()
	require.NoError(t, err)
	_, err = p.Solver(cfg)
	assert.Error(t, err)

	_, err = p.Optimizer(cfg)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSolveCircles(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "circles.yaml"))
	require.NoError(t, err)
	cfg, err := p.Settings()
	require.NoError(t, err)
	sv, err := p.Solver(cfg)
	require.NoError(t, err)

	st, err := sv.Solve(context.Background(), p.Box())
	require.NoError(t, err)
	assert.Equal(t, prune.Success, st)
	assert.Len(t, sv.Solutions(), 2)
}

func TestRobustLocalization(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "localization.yaml"))
	require.NoError(t, err)
	cfg, err := p.Settings()
	require.NoError(t, err)
	assert.Equal(t, prune.RoundRobin, cfg.Policy)
	sv, err := p.Solver(cfg)
	require.NoError(t, err)

	st, err := sv.Solve(context.Background(), p.Box())
	require.NoError(t, err)
	// Without plain constraints nothing can be certified.
	assert.Equal(t, prune.NotAllValidated, st)
	assert.Empty(t, sv.Solutions())

	near := interval.BoxOf(interval.New(2.5, 3.5), interval.New(3.5, 4.5))
	outs := sv.Unknowns()
	require.NotEmpty(t, outs)
	found := false
	for _, o := range outs {
		assert.True(t, o.Box.Subset(near), "%v", o.Box)
		found = found || o.Box.Contains([]float64{3, 4})
	}
	assert.True(t, found, "the receiver position is not enclosed")
}

func TestOptimizeFromFile(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "minimize.yaml"))
	require.NoError(t, err)
	require.True(t, p.Optimization())
	cfg, err := p.Settings()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.LoupSamples)
	assert.Equal(t, int64(7), cfg.Seed)

	o, err := p.Optimizer(cfg)
	require.NoError(t, err)
	st, err := o.Optimize(context.Background(), p.Box())
	require.NoError(t, err)
	assert.Equal(t, prune.OptimSuccess, st)
	assert.InDelta(t, -math.Sqrt2, o.Loup(), 1e-3)
	assert.LessOrEqual(t, o.Uplo(), -math.Sqrt2+1e-12)
}

func TestContractorWithoutConstraints(t *testing.T) {
	p, err := Parse([]byte("name: p\nvariables: [{name: x, domain: [0, 1]}]\nminimize: sqr(x)\n"))
	require.NoError(t, err)
	sys, err := p.System()
	require.NoError(t, err)
	ctc, err := p.Contractor(sys, prune.DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &prune.Identity{}, ctc)
}

func TestLinearRelaxationFromFile(t *testing.T) {
	p, err := Parse([]byte(`name: lp
variables:
  - {name: x, domain: [0, 1]}
  - {name: y, domain: [0, 1]}
constraints: ["x + y >= 1.5", "x - y <= 0.25"]
config:
  lp_relax: true
`))
	require.NoError(t, err)
	cfg, err := p.Settings()
	require.NoError(t, err)
	assert.True(t, cfg.LPRelax)
	assert.Equal(t, prune.DefaultLPMargin, cfg.LPMargin)

	sys, err := p.System()
	require.NoError(t, err)
	ctc, err := p.Contractor(sys, cfg)
	require.NoError(t, err)
	b := p.Box()
	require.Equal(t, prune.Contracted, ctc.Contract(&b))
	assert.InDelta(t, 0.5, b.At(0).Lo(), 1e-6)
	assert.InDelta(t, 0.625, b.At(1).Lo(), 1e-6)
	assert.True(t, b.Contains([]float64{0.75, 0.75}))
}

func TestLoadFromTempDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "line.yaml")
	src := "name: line\nvariables:\n  - {name: x, domain: [-.inf, .inf]}\nconstraints: [2 * x == 3]\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.True(t, p.Box().At(0).IsEntire())
}
