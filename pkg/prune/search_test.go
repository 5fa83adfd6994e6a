package prune

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

func TestBisectorLargestFirst(t *testing.T) {
	bsc, err := NewUniformBisector(LargestFirst, 3, 0.1, DefaultRatio)
	require.NoError(t, err)

	c := NewCell(box(0, 1, 0, 4, 0, 2))
	c.Solve = &SolveData{Params: NewVarSet(2)}
	l, r, ok := bsc.Bisect(c)
	require.True(t, ok)
	assert.Equal(t, 1, l.LastVar)
	assert.Equal(t, 1, l.Depth)
	assert.True(t, l.Box.Equal(box(0, 1, 0, 1.8, 0, 2)), "%v", l.Box)
	assert.True(t, r.Box.Equal(box(0, 1, 1.8, 4, 0, 2)), "%v", r.Box)
	assert.True(t, l.Box.Hull(r.Box).Equal(c.Box))

	// Children own their properties.
	l.Solve.Params.Add(0)
	assert.False(t, c.Solve.Params.Has(0))
	assert.False(t, r.Solve.Params.Has(0))
}

func TestBisectorRoundRobin(t *testing.T) {
	bsc, err := NewUniformBisector(RoundRobin, 3, 0.1, 0.5)
	require.NoError(t, err)
	c := NewCell(box(0, 1, 0, 1, 0, 1))
	var order []int
	for i := 0; i < 4; i++ {
		l, _, ok := bsc.Bisect(c)
		require.True(t, ok)
		order = append(order, l.LastVar)
		c = l
	}
	assert.Equal(t, []int{0, 1, 2, 0}, order)
}

func TestBisectorPrecision(t *testing.T) {
	bsc, err := NewBisector(LargestFirst, []float64{1, 0.01}, DefaultRatio)
	require.NoError(t, err)

	// x is below its precision, y is not.
	l, _, ok := bsc.Bisect(NewCell(box(0, 0.5, 0, 0.1)))
	require.True(t, ok)
	assert.Equal(t, 1, l.LastVar)

	_, _, ok = bsc.Bisect(NewCell(box(0, 0.5, 0, 0.001)))
	assert.False(t, ok)

	// A degenerate interval cannot be split whatever the precision.
	zero, err := NewUniformBisector(LargestFirst, 1, 0, DefaultRatio)
	require.NoError(t, err)
	_, _, ok = zero.Bisect(NewCell(box(1, 1)))
	assert.False(t, ok)
	_, _, ok = zero.Bisect(NewCell(box(1, math.Nextafter(1, 2))))
	assert.False(t, ok)

	assert.Panics(t, func() { zero.Bisect(NewCell(box(0, 1, 0, 1))) })
}

func TestBisectorValidation(t *testing.T) {
	_, err := NewUniformBisector(LargestFirst, 2, 0.1, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewBisector(LargestFirst, []float64{-1}, 0.5)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	p, err := ParseBisectPolicy("rr")
	require.NoError(t, err)
	assert.Equal(t, RoundRobin, p)
	assert.Equal(t, "largest-first", LargestFirst.String())
	_, err = ParseBisectPolicy("smallest")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func cellWithLB(lb, ub float64) *Cell {
	c := NewCell(box(0, 1))
	c.Optim = &OptimData{PF: interval.New(lb, ub)}
	return c
}

func popAll(buf CellBuffer) []*Cell {
	var out []*Cell
	for !buf.Empty() {
		top := buf.Top()
		c := buf.Pop()
		if top != c {
			panic("Top and Pop disagree")
		}
		out = append(out, c)
	}
	return out
}

func TestCellStackAndQueue(t *testing.T) {
	cells := []*Cell{NewCell(box(0, 1)), NewCell(box(1, 2)), NewCell(box(2, 3))}

	st := NewCellStack()
	q := NewCellQueue()
	assert.Nil(t, st.Pop())
	assert.Nil(t, q.Top())
	for _, c := range cells {
		st.Push(c)
		q.Push(c)
	}
	assert.Equal(t, 3, st.Size())
	assert.Equal(t, 3, q.Size())
	assert.Equal(t, []*Cell{cells[2], cells[1], cells[0]}, popAll(st))
	assert.Equal(t, cells, popAll(q))

	q.Push(cells[0])
	q.Push(cells[1])
	q.Pop()
	assert.Equal(t, []*Cell{cells[1]}, q.Flush())
	assert.True(t, q.Empty())
}

func TestCellHeapOrdersByCost(t *testing.T) {
	h := NewCellHeap(CostLB)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		lb := rng.Float64() * 100
		h.Push(cellWithLB(lb, lb+1))
	}
	assert.Equal(t, 50, h.Size())
	least := h.MinCost()
	var lbs []float64
	for _, c := range popAll(h) {
		lbs = append(lbs, c.Optim.PF.Lo())
	}
	assert.Equal(t, least, lbs[0])
	assert.True(t, sort.Float64sAreSorted(lbs))
	assert.True(t, math.IsInf(h.MinCost(), 1))
}

func TestCellHeapDiscardWorseThan(t *testing.T) {
	h := NewCellHeap(CostLB)
	rng := rand.New(rand.NewSource(2))
	want := 0
	for i := 0; i < 200; i++ {
		lb := rng.Float64() * 100
		if lb <= 40 {
			want++
		}
		h.Push(cellWithLB(lb, lb+1))
	}
	removed := h.DiscardWorseThan(40)
	assert.Equal(t, 200-want, removed)
	assert.Equal(t, want, h.Size())

	cells := popAll(h)
	require.Len(t, cells, want)
	for _, c := range cells {
		assert.LessOrEqual(t, c.Optim.PF.Lo(), 40.0)
	}
}

func TestCellDoubleHeap(t *testing.T) {
	// With critpr 0 only the first cost matters, with critpr 1 only the
	// second.
	for _, tc := range []struct {
		critpr float64
		key    func(*Cell) float64
	}{
		{0, func(c *Cell) float64 { return c.Optim.PF.Lo() }},
		{1, func(c *Cell) float64 { return c.Optim.PF.Hi() }},
	} {
		h := NewCellDoubleHeap(CostLB, CostUB, tc.critpr, 3)
		rng := rand.New(rand.NewSource(3))
		for i := 0; i < 40; i++ {
			lb := rng.Float64() * 10
			h.Push(cellWithLB(lb, lb+rng.Float64()*10))
		}
		var keys []float64
		for _, c := range popAll(h) {
			keys = append(keys, tc.key(c))
		}
		assert.Len(t, keys, 40)
		assert.True(t, sort.Float64sAreSorted(keys), "critpr=%g", tc.critpr)
	}
}

func TestCellDoubleHeapSharedOwnership(t *testing.T) {
	h := NewCellDoubleHeap(CostLB, CostUB, 0.5, 4)
	rng := rand.New(rand.NewSource(4))
	pushed := map[*Cell]bool{}
	for i := 0; i < 100; i++ {
		lb := rng.Float64() * 10
		c := cellWithLB(lb, lb+rng.Float64())
		pushed[c] = true
		h.Push(c)
	}
	removed := h.DiscardWorseThan(5)
	seen := map[*Cell]bool{}
	for _, c := range popAll(h) {
		assert.False(t, seen[c], "cell popped twice")
		assert.True(t, pushed[c])
		assert.LessOrEqual(t, c.Optim.PF.Lo(), 5.0)
		seen[c] = true
	}
	assert.Equal(t, 100, len(seen)+removed)
}

func TestCostByName(t *testing.T) {
	for _, name := range []string{"lb", "ub", "depth", "maxdiam"} {
		_, ok := CostByName(name)
		assert.True(t, ok, name)
	}
	_, ok := CostByName("volume")
	assert.False(t, ok)

	c := NewCell(box(0, 2, 0, 1))
	c.Depth = 3
	assert.Equal(t, -3.0, CostDepth(c))
	assert.Equal(t, 2.0, CostMaxDiam(c))
	assert.True(t, math.IsInf(CostLB(c), -1))
}
