package prune

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

func lpContractor(t *testing.T, b interval.Box, constraints ...string) *LPContractor {
	t.Helper()
	lin, err := NewCornerLinearizer(system(t, b, "", constraints...))
	require.NoError(t, err)
	c, err := NewLPContractor(lin, DefaultLPMargin)
	require.NoError(t, err)
	return c
}

func TestCornerLinearizerCuts(t *testing.T) {
	lin, err := NewCornerLinearizer(system(t, box(0, 1, 0, 1), "", "x + y >= 1.5", "x - y == 0"))
	require.NoError(t, err)
	A, rhs := lin.Linearize(box(0, 1, 0, 1))
	require.NotNil(t, A)
	rows, cols := A.Dims()
	assert.Equal(t, 2, cols)
	// Two corners for the inequality, two corners times two sides for the
	// equation.
	assert.Equal(t, 6, rows)
	assert.Len(t, rhs, rows)

	// Every cut holds at the points satisfying both constraints.
	for _, v := range []float64{0.75, 0.8, 1} {
		for i := 0; i < rows; i++ {
			assert.LessOrEqual(t, A.At(i, 0)*v+A.At(i, 1)*v, rhs[i], "cut %d at %g", i, v)
		}
	}

	unbounded := interval.BoxOf(interval.Entire(), interval.New(0, 1))
	A, rhs = lin.Linearize(unbounded)
	assert.Nil(t, A)
	assert.Nil(t, rhs)
}

func TestLPContractorNarrowsLinearConstraints(t *testing.T) {
	c := lpContractor(t, box(0, 1, 0, 1), "x + y >= 1.5")
	b := box(0, 1, 0, 1)
	require.Equal(t, Contracted, c.Contract(&b))
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 0.5, b.At(i).Lo(), 1e-6, "%v", b)
		assert.LessOrEqual(t, b.At(i).Lo(), 0.5)
		assert.Equal(t, 1.0, b.At(i).Hi())
	}
}

func TestLPContractorProvesEmpty(t *testing.T) {
	c := lpContractor(t, box(0, 1, 0, 1), "x + y >= 3")
	b := box(0, 1, 0, 1)
	assert.Equal(t, Empty, c.Contract(&b))
	assert.True(t, b.IsEmpty())
}

func TestLPContractorKeepsFeasiblePoints(t *testing.T) {
	c := lpContractor(t, box(-2, 2, -2, 2),
		"sqr(x) + sqr(y) <= 1", "x * y >= 0.2", "x - 2 * y <= 0.5")
	feasible := func(x, y float64) bool {
		return x*x+y*y <= 1 && x*y >= 0.2 && x-2*y <= 0.5
	}

	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 60; trial++ {
		x0, y0 := -2+3*rng.Float64(), -2+3*rng.Float64()
		b := box(x0, x0+0.2+rng.Float64(), y0, y0+0.2+rng.Float64())
		var pts [][]float64
		for k := 0; k < 200; k++ {
			x := b.At(0).Lo() + rng.Float64()*b.At(0).Diam()
			y := b.At(1).Lo() + rng.Float64()*b.At(1).Diam()
			if feasible(x, y) {
				pts = append(pts, []float64{x, y})
			}
		}

		before := b.Clone()
		out := c.Contract(&b)
		if out == Empty {
			require.Empty(t, pts, "box %v emptied with feasible points", before)
			continue
		}
		require.True(t, b.Subset(before))
		for _, pt := range pts {
			require.True(t, b.Contains(pt), "%v lost %v (was %v)", b, pt, before)
		}
	}
}

func TestLPContractorSkipsUnboundedBoxes(t *testing.T) {
	c := lpContractor(t, box(0, 1, 0, 1), "x + y >= 1.5")
	b := interval.BoxOf(interval.Entire(), interval.New(0, 1))
	assert.Equal(t, Contracted, c.Contract(&b))
	assert.True(t, b.At(0).IsEntire())
}

func TestLPContractorValidates(t *testing.T) {
	_, err := NewLPContractor(nil, DefaultLPMargin)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	lin, err := NewCornerLinearizer(system(t, box(0, 1, 0, 1), "", "x <= y"))
	require.NoError(t, err)
	_, err = NewLPContractor(lin, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewCornerLinearizer(system(t, box(0, 1, 0, 1), "x"))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSolveWithLinearRelaxation(t *testing.T) {
	sys := system(t, box(-10, 10, -10, 10), "", circles...)
	sv, err := DefaultSolver(sys, NewConfig(WithLPRelax()))
	require.NoError(t, err)
	_, err = sv.Solve(context.Background(), box(-10, 10, -10, 10))
	require.NoError(t, err)

	assert.Empty(t, sv.Pendings())
	h := math.Sqrt(3) / 2
	for _, want := range [][]float64{{0.5, h}, {0.5, -h}} {
		assert.True(t, covered(sv.Solutions(), want, 1e-12), "solution %v", want)
	}
}
