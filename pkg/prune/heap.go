package prune

import (
	"container/heap"
	"math"
	"math/rand"
)

// CostFunc orders cells in a heap: smaller costs are popped first.
type CostFunc func(*Cell) float64

// Cost functions over the Optimizer's cell data and the box.
var (
	// CostLB is the lower bound of the objective over the cell.
	CostLB CostFunc = func(c *Cell) float64 {
		if c.Optim == nil {
			return math.Inf(-1)
		}
		return c.Optim.PF.Lo()
	}
	// CostUB is the upper bound of the objective over the cell.
	CostUB CostFunc = func(c *Cell) float64 {
		if c.Optim == nil {
			return math.Inf(-1)
		}
		return c.Optim.PF.Hi()
	}
	// CostDepth favors deep cells.
	CostDepth CostFunc = func(c *Cell) float64 { return -float64(c.Depth) }
	// CostMaxDiam favors small cells.
	CostMaxDiam CostFunc = func(c *Cell) float64 { return c.Box.MaxDiam() }
)

// CostByName maps "lb", "ub", "depth" and "maxdiam" to cost functions.
func CostByName(name string) (CostFunc, bool) {
	switch name {
	case "lb":
		return CostLB, true
	case "ub":
		return CostUB, true
	case "depth":
		return CostDepth, true
	case "maxdiam":
		return CostMaxDiam, true
	}
	return nil, false
}

// entry is a buffered cell with its cached keys and its position in each
// of the heaps that index it.
type entry struct {
	cell *Cell
	key  [2]float64
	pos  [3]int
}

// keyedHeap orders entries by one key. slot selects the pos field kept up
// to date; max reverses the order.
type keyedHeap struct {
	items []*entry
	key   int
	slot  int
	max   bool
}

func (h *keyedHeap) Len() int { return len(h.items) }

func (h *keyedHeap) Less(i, j int) bool {
	a, b := h.items[i].key[h.key], h.items[j].key[h.key]
	if h.max {
		return a > b
	}
	return a < b
}

func (h *keyedHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].pos[h.slot] = i
	h.items[j].pos[h.slot] = j
}

func (h *keyedHeap) Push(x any) {
	e := x.(*entry)
	e.pos[h.slot] = len(h.items)
	h.items = append(h.items, e)
}

func (h *keyedHeap) Pop() any {
	n := len(h.items)
	e := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	e.pos[h.slot] = -1
	return e
}

func (h *keyedHeap) top() *entry {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// pool is the set of heaps indexing the same entries. Removing an entry
// through one heap removes it from all of them.
type pool struct {
	heaps []*keyedHeap
	costs []CostFunc
}

func (p *pool) push(c *Cell) {
	e := &entry{cell: c}
	for k, f := range p.costs {
		e.key[k] = f(c)
	}
	for _, h := range p.heaps {
		heap.Push(h, e)
	}
}

func (p *pool) remove(e *entry) {
	for _, h := range p.heaps {
		if i := e.pos[h.slot]; i >= 0 {
			heap.Remove(h, i)
		}
	}
}

func (p *pool) size() int { return p.heaps[0].Len() }

func (p *pool) flush() []*Cell {
	out := make([]*Cell, 0, p.size())
	for _, e := range p.heaps[0].items {
		out = append(out, e.cell)
	}
	for _, h := range p.heaps {
		h.items = nil
	}
	return out
}

// discard removes every entry whose key 0 exceeds bound, walking the
// max-ordered prune heap.
func (p *pool) discard(prune *keyedHeap, bound float64) int {
	n := 0
	for {
		e := prune.top()
		if e == nil || !(e.key[0] > bound) {
			return n
		}
		p.remove(e)
		n++
	}
}

func (p *pool) minKey0(h *keyedHeap) float64 {
	if e := h.top(); e != nil {
		return e.key[0]
	}
	return math.Inf(1)
}

// CellHeap is a CostBuffer popping the cell of least cost.
type CellHeap struct {
	pool
	byCost *keyedHeap
	prune  *keyedHeap
}

// NewCellHeap returns an empty heap ordered by cost.
func NewCellHeap(cost CostFunc) *CellHeap {
	h := &CellHeap{
		byCost: &keyedHeap{key: 0, slot: 0},
		prune:  &keyedHeap{key: 0, slot: 2, max: true},
	}
	h.pool = pool{heaps: []*keyedHeap{h.byCost, h.prune}, costs: []CostFunc{cost}}
	return h
}

func (h *CellHeap) Push(c *Cell) { h.push(c) }

func (h *CellHeap) Pop() *Cell {
	e := h.byCost.top()
	if e == nil {
		return nil
	}
	h.remove(e)
	return e.cell
}

func (h *CellHeap) Top() *Cell {
	if e := h.byCost.top(); e != nil {
		return e.cell
	}
	return nil
}

func (h *CellHeap) Flush() []*Cell                     { return h.flush() }
func (h *CellHeap) Empty() bool                        { return h.size() == 0 }
func (h *CellHeap) Size() int                          { return h.size() }
func (h *CellHeap) MinCost() float64                   { return h.minKey0(h.byCost) }
func (h *CellHeap) DiscardWorseThan(bound float64) int { return h.discard(h.prune, bound) }

// CellDoubleHeap holds the same cells in two heaps ordered by two costs.
// Pop takes the top of the second heap with probability critpr and of the
// first heap otherwise; the cell is removed from both. The first cost is
// the lower bound used by MinCost and DiscardWorseThan.
//
// The optimizer pairs CostLB, which drives the proof of optimality, with a
// second criterion that helps find good feasible points early.
type CellDoubleHeap struct {
	pool
	h1, h2 *keyedHeap
	prune  *keyedHeap
	critpr float64
	rng    *rand.Rand
	second bool // source of the next Pop
}

// NewCellDoubleHeap returns an empty double heap. critpr is clamped to
// [0, 1]; seed makes the choice sequence reproducible.
func NewCellDoubleHeap(cost1, cost2 CostFunc, critpr float64, seed int64) *CellDoubleHeap {
	h := &CellDoubleHeap{
		h1:     &keyedHeap{key: 0, slot: 0},
		h2:     &keyedHeap{key: 1, slot: 1},
		prune:  &keyedHeap{key: 0, slot: 2, max: true},
		critpr: math.Max(0, math.Min(1, critpr)),
		rng:    rand.New(rand.NewSource(seed)),
	}
	h.pool = pool{heaps: []*keyedHeap{h.h1, h.h2, h.prune}, costs: []CostFunc{cost1, cost2}}
	h.draw()
	return h
}

func (h *CellDoubleHeap) draw() {
	h.second = h.critpr > 0 && h.rng.Float64() < h.critpr
}

func (h *CellDoubleHeap) next() *keyedHeap {
	if h.second {
		return h.h2
	}
	return h.h1
}

func (h *CellDoubleHeap) Push(c *Cell) { h.push(c) }

func (h *CellDoubleHeap) Pop() *Cell {
	e := h.next().top()
	if e == nil {
		return nil
	}
	h.remove(e)
	h.draw()
	return e.cell
}

func (h *CellDoubleHeap) Top() *Cell {
	if e := h.next().top(); e != nil {
		return e.cell
	}
	return nil
}

func (h *CellDoubleHeap) Flush() []*Cell                     { return h.flush() }
func (h *CellDoubleHeap) Empty() bool                        { return h.size() == 0 }
func (h *CellDoubleHeap) Size() int                          { return h.size() }
func (h *CellDoubleHeap) MinCost() float64                   { return h.minKey0(h.h1) }
func (h *CellDoubleHeap) DiscardWorseThan(bound float64) int { return h.discard(h.prune, bound) }
