package prune

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

func TestVarSet(t *testing.T) {
	var zero VarSet
	assert.True(t, zero.Empty())
	assert.False(t, zero.Has(0))
	assert.Equal(t, "{}", zero.String())

	s := NewVarSet(3, 1)
	assert.Equal(t, []int{1, 3}, s.Indices())
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(3))
	assert.False(t, s.Has(2))
	assert.Equal(t, "{1,3}", s.String())

	u := s.Union(NewVarSet(2))
	assert.Equal(t, []int{1, 2, 3}, u.Indices())
	assert.Equal(t, []int{3}, u.Intersect(NewVarSet(3, 7)).Indices())
	assert.True(t, u.Intersects(NewVarSet(2)))
	assert.False(t, s.Intersects(NewVarSet(2)))

	c := s.Clone()
	c.Remove(1)
	assert.True(t, s.Has(1), "clone must be independent")
	assert.True(t, AllVars(3).Equal(NewVarSet(0, 1, 2)))
	assert.True(t, zero.Union(s).Equal(s))
}

func TestFwdbwdCircle(t *testing.T) {
	c := fwdbwd(t, xy, "sqr(x) + sqr(y) == 1")
	b := box(-10, 10, 0.5, 10)
	require.Equal(t, Contracted, c.Contract(&b))
	assert.InDelta(t, -math.Sqrt(0.75), b.At(0).Lo(), 1e-12)
	assert.InDelta(t, math.Sqrt(0.75), b.At(0).Hi(), 1e-12)
	assert.InDelta(t, 1, b.At(1).Hi(), 1e-12)
	assert.Equal(t, 0.5, b.At(1).Lo())
	assert.Equal(t, NewVarSet(0, 1).Indices(), c.Input().Indices())
}

func TestFwdbwdProvesEmpty(t *testing.T) {
	c := fwdbwd(t, xy, "sqr(x) + sqr(y) == 1")
	b := box(2, 3, -1, 1)
	assert.Equal(t, Empty, c.Contract(&b))
	assert.True(t, b.IsEmpty())
	assert.Equal(t, Empty, c.Contract(&b), "empty stays empty")
}

func TestFwdbwdSoundness(t *testing.T) {
	constraints := []string{
		"x*y + sin(x) <= 0.5",
		"cos(x + y) >= 0.3",
		"sqr(x) + sqr(y) <= 4",
		"exp(x) - y >= 0",
		"abs(x - y) + sqrt(sqr(y) + 1) <= 3",
		"min(x, y) + max(x, 2*y) <= 3",
	}
	rng := rand.New(rand.NewSource(5))
	for _, src := range constraints {
		con, err := expr.ParseConstraint(src, xy)
		require.NoError(t, err)
		ctc := NewFwdbwd(con)
		for i := 0; i < 300; i++ {
			pt := []float64{rng.Float64()*6 - 3, rng.Float64()*6 - 3}
			if ok, _ := con.Holds(interval.PointBox(pt)); !ok {
				continue
			}
			b := box(
				pt[0]-rng.Float64()*2, pt[0]+rng.Float64()*2,
				pt[1]-rng.Float64()*2, pt[1]+rng.Float64()*2,
			)
			before := b.Clone()
			require.Equal(t, Contracted, ctc.Contract(&b), "%s on %v", src, before)
			assert.True(t, b.Contains(pt), "%s lost %v from %v: %v", src, pt, before, b)
			assert.True(t, b.Subset(before))
		}
	}
}

func TestPropagationWakesWatchers(t *testing.T) {
	// The first revision learns nothing until the second fixes y.
	p, err := NewPropagation([]Contractor{
		fwdbwd(t, xy, "x - y - 1 == 0"),
		fwdbwd(t, xy, "y - 2 == 0"),
	}, 0.1)
	require.NoError(t, err)
	b := box(0, 10, 0, 10)
	require.Equal(t, Contracted, p.Contract(&b))
	assert.True(t, b.Equal(box(3, 3, 2, 2)), "%v", b)
}

func TestPropagationRejectsBadInput(t *testing.T) {
	_, err := NewPropagation(nil, 0.1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewPropagation([]Contractor{NewIdentity(2)}, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewPropagation([]Contractor{NewIdentity(2), NewIdentity(3)}, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFixpointIsIdempotent(t *testing.T) {
	compo, err := NewCompo(
		fwdbwd(t, xy, "x - y - 1 == 0"),
		fwdbwd(t, xy, "x + y - 5 == 0"),
	)
	require.NoError(t, err)
	fp, err := NewFixpoint(compo, 0, 1000)
	require.NoError(t, err)

	b := box(0, 10, 0, 10)
	require.Equal(t, Contracted, fp.Contract(&b))
	// HC4 alone stalls on this linear system.
	assert.True(t, b.Equal(box(1, 5, 0, 4)), "%v", b)

	again := b.Clone()
	require.Equal(t, Contracted, fp.Contract(&again))
	assert.True(t, again.Equal(b))
}

func TestCompoStopsAtEmpty(t *testing.T) {
	calls := 0
	spy := &countingContractor{Identity: NewIdentity(1), calls: &calls}
	c, err := NewCompo(fwdbwd(t, []string{"x"}, "x >= 5"), spy)
	require.NoError(t, err)
	b := box(0, 1)
	assert.Equal(t, Empty, c.Contract(&b))
	assert.Zero(t, calls)
}

type countingContractor struct {
	*Identity
	calls *int
}

func (c *countingContractor) Contract(b *interval.Box) Outcome {
	*c.calls++
	return c.Identity.Contract(b)
}

func TestUnionKeepsHull(t *testing.T) {
	x := []string{"x"}
	u, err := NewUnion(fwdbwd(t, x, "x + 5 <= 0"), fwdbwd(t, x, "x - 5 >= 0"), fwdbwd(t, x, "x - 6 == 0"))
	require.NoError(t, err)

	b := box(-3, 8)
	require.Equal(t, Contracted, u.Contract(&b))
	assert.True(t, b.Equal(box(5, 8)), "%v", b)

	b = box(-10, 10)
	require.Equal(t, Contracted, u.Contract(&b))
	assert.True(t, b.Equal(box(-10, 10)))

	b = box(-4, 4)
	assert.Equal(t, Empty, u.Contract(&b))
}

func TestIdentity(t *testing.T) {
	id := NewIdentity(2)
	b := box(0, 1, 2, 3)
	assert.Equal(t, Contracted, id.Contract(&b))
	assert.True(t, b.Equal(box(0, 1, 2, 3)))
	assert.True(t, id.Input().Empty())

	e := interval.EmptyBox(2)
	assert.Equal(t, Empty, id.Contract(&e))
}

func TestContractPanicsOnDimensionMismatch(t *testing.T) {
	b := box(0, 1)
	assert.Panics(t, func() { NewIdentity(2).Contract(&b) })
	assert.Panics(t, func() { fwdbwd(t, xy, "x + y == 0").Contract(&b) })
}
