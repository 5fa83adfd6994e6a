package prune

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

func box(bounds ...float64) interval.Box {
	itv := make([]interval.Interval, len(bounds)/2)
	for i := range itv {
		itv[i] = interval.New(bounds[2*i], bounds[2*i+1])
	}
	return interval.BoxOf(itv...)
}

var xy = []string{"x", "y"}

func system(t *testing.T, b interval.Box, goal string, constraints ...string) *expr.System {
	t.Helper()
	vars := xy
	if b.Size() == 1 {
		vars = []string{"x"}
	}
	sys, err := expr.ParseSystem(vars, b, constraints, goal)
	require.NoError(t, err)
	return sys
}

func fwdbwd(t *testing.T, vars []string, src string) *Fwdbwd {
	t.Helper()
	c, err := expr.ParseConstraint(src, vars)
	require.NoError(t, err)
	return NewFwdbwd(c)
}

// rect accepts the points of [x0, x1] × [y0, y1].
func rect(t *testing.T, x0, x1, y0, y1 float64) Contractor {
	t.Helper()
	x := NewFwdbwdTarget(expr.MustCompile(expr.Var(0), 2), interval.New(x0, x1))
	y := NewFwdbwdTarget(expr.MustCompile(expr.Var(1), 2), interval.New(y0, y1))
	c, err := NewCompo(x, y)
	require.NoError(t, err)
	return c
}

// covered reports whether some box, padded by pad, contains pt.
func covered(outs []Output, pt []float64, pad float64) bool {
	for _, o := range outs {
		if o.Box.Inflate(1, pad).Contains(pt) {
			return true
		}
	}
	return false
}
