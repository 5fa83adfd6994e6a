package prune

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optimizer(t *testing.T, cfg Config, goal string, constraints ...string) *Optimizer {
	t.Helper()
	sys := system(t, box(-10, 10, -10, 10), goal, constraints...)
	o, err := DefaultOptimizer(sys, cfg)
	require.NoError(t, err)
	return o
}

func TestOptimizeUnconstrained(t *testing.T) {
	o := optimizer(t, NewConfig(WithGaps(1e-3, 1e-6)), "sqr(x - 1) + sqr(y + 2)")
	st, err := o.Optimize(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)
	assert.Equal(t, OptimSuccess, st)

	assert.LessOrEqual(t, o.Uplo(), 0.0)
	assert.GreaterOrEqual(t, o.Loup(), 0.0)
	assert.LessOrEqual(t, o.Loup()-o.Uplo(), 1e-6)
	pt := o.LoupPoint()
	require.Len(t, pt, 2)
	assert.InDelta(t, 1, pt[0], 1e-2)
	assert.InDelta(t, -2, pt[1], 1e-2)
	assert.Contains(t, o.Report(), "status: success")
	assert.NotContains(t, o.Report(), "relaxed")
}

func TestOptimizeOverDisk(t *testing.T) {
	o := optimizer(t, NewConfig(), "x + y", "sqr(x) + sqr(y) <= 1")
	st, err := o.Optimize(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)
	assert.Equal(t, OptimSuccess, st)

	// The minimum is -√2 at (-√2/2, -√2/2).
	assert.LessOrEqual(t, o.Uplo(), -math.Sqrt2+1e-12)
	assert.GreaterOrEqual(t, o.Loup(), -math.Sqrt2-1e-12)
	assert.InDelta(t, -math.Sqrt2, o.Loup(), 1e-2)
	pt := o.LoupPoint()
	assert.LessOrEqual(t, pt[0]*pt[0]+pt[1]*pt[1], 1.0)
	assert.LessOrEqual(t, o.Loup()-o.Uplo(), 1e-3*math.Abs(o.Loup())+1e-12)
}

func TestOptimizeWithEquality(t *testing.T) {
	cfg := NewConfig(WithPrecision(1e-9), WithCellLimit(200000))
	cfg.EqualityEps = 1e-6
	o := optimizer(t, cfg, "x", "sqr(x) + sqr(y) == 1")
	st, err := o.Optimize(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)
	assert.NotEqual(t, NoFeasiblePoint, st)
	assert.NotEqual(t, OptimInfeasible, st)

	assert.LessOrEqual(t, o.Uplo(), -1.0)
	assert.InDelta(t, -1, o.Loup(), 1e-3)
	assert.LessOrEqual(t, o.Uplo(), o.Loup())
	assert.Contains(t, o.Report(), "upper bound relaxed for equations: |f| <= 1e-06")
}

func TestOptimizeEqualityRelaxationIsReported(t *testing.T) {
	cfg := NewConfig()
	cfg.EqualityEps = 1e-3
	o := optimizer(t, cfg, "x", "x - 1 == 0")
	_, err := o.Optimize(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)

	// Relaxed points may undercut the true minimum 1, but by no more than
	// the relaxation allows.
	assert.GreaterOrEqual(t, o.Loup(), 1-1e-3)
	assert.LessOrEqual(t, o.Uplo(), 1.0)
	assert.Contains(t, o.Report(), "upper bound relaxed for equations")

	plain := optimizer(t, NewConfig(), "x + y", "sqr(x) + sqr(y) <= 1")
	_, err = plain.Optimize(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)
	assert.NotContains(t, plain.Report(), "relaxed")
}

func TestOptimizeInfeasible(t *testing.T) {
	o := optimizer(t, NewConfig(), "x + y", "sqr(x) + sqr(y) + 1 <= 0")
	st, err := o.Optimize(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)
	assert.Equal(t, OptimInfeasible, st)
	assert.True(t, math.IsInf(o.Loup(), 1))
	assert.Nil(t, o.LoupPoint())
}

func TestOptimizeStopsEarly(t *testing.T) {
	// Nine global minima of -2 in the box, none of them at a point the
	// probes can evaluate to exactly -2: the gap cannot close in 9 cells.
	o := optimizer(t, NewConfig(WithCellLimit(9), WithGaps(0, 0)), "sin(x) + sin(y)")
	st, err := o.Optimize(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)
	assert.Equal(t, OptimCellOverflow, st)
	assert.LessOrEqual(t, o.CellCount(), 9)
	assert.LessOrEqual(t, o.Uplo(), o.Loup())
	assert.LessOrEqual(t, o.Uplo(), -2.0)
	assert.Contains(t, o.Report(), "status: cell-overflow")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err = o.Optimize(ctx, box(-10, 10, -10, 10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OptimCancelled, st)
	assert.LessOrEqual(t, o.Uplo(), -2.0)
}

func TestNewOptimizerValidates(t *testing.T) {
	sys := system(t, box(-1, 1, -1, 1), "", "x + y <= 0")
	_, err := DefaultOptimizer(sys, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidParameter)

	withGoal := system(t, box(-1, 1, -1, 1), "x", "x + y <= 0")
	bsc, err := NewUniformBisector(LargestFirst, 2, 1e-3, DefaultRatio)
	require.NoError(t, err)
	_, err = NewOptimizer(withGoal, NewIdentity(1), bsc, DefaultConfig())
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	o, err := NewOptimizer(withGoal, NewIdentity(2), bsc, DefaultConfig())
	require.NoError(t, err)
	_, err = o.Optimize(context.Background(), box(0, 1))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
