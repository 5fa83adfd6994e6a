package prune

import (
	"fmt"
	"sort"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// QInterAlgo selects how QInter combines the contracted boxes.
type QInterAlgo int

const (
	// QInterProjection computes, per variable, the hull of the values
	// covered by at least q of the contracted boxes. It is cheap and
	// usually slightly weaker than the exact hull.
	QInterProjection QInterAlgo = iota
	// QInterExact computes the hull of the points covered by at least q
	// boxes by a pruned enumeration of q-subsets. The enumeration is
	// bounded by a node budget; past it the projection result is kept.
	QInterExact
)

func (a QInterAlgo) String() string {
	if a == QInterExact {
		return "exact"
	}
	return "projection"
}

// QInter is the q-relaxed intersection of m contractors: it retains the
// points accepted by at least q of them, so up to m-q constraints (outlier
// measurements) may be violated by a solution.
type QInter struct {
	ctcs   []Contractor
	q      int
	algo   QInterAlgo
	limit  int
	n      int
	input  VarSet
	output VarSet
}

// DefaultQInterExactLimit bounds the number of subsets visited by the
// exact algorithm.
const DefaultQInterExactLimit = 100000

// NewQInter returns the q-relaxed intersection of ctcs with 1 ≤ q ≤ m.
// limit bounds the exact enumeration and is ignored by the projection
// algorithm; a non-positive value selects DefaultQInterExactLimit.
func NewQInter(ctcs []Contractor, q int, algo QInterAlgo, limit int) (*QInter, error) {
	if len(ctcs) == 0 {
		return nil, fmt.Errorf("prune: q-intersection of no contractor: %w", ErrInvalidParameter)
	}
	if q < 1 || q > len(ctcs) {
		return nil, fmt.Errorf("prune: q=%d with %d contractors: %w", q, len(ctcs), ErrInvalidParameter)
	}
	n := ctcs[0].Dim()
	if err := sameDim(n, ctcs); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultQInterExactLimit
	}
	c := &QInter{ctcs: ctcs, q: q, algo: algo, limit: limit, n: n, input: NewVarSet(), output: NewVarSet()}
	for _, k := range ctcs {
		c.input = c.input.Union(k.Input())
		c.output = c.output.Union(k.Output())
	}
	return c, nil
}

// Contract implements Contractor.
func (c *QInter) Contract(b *interval.Box) Outcome {
	checkDim(c, b)
	if b.IsEmpty() {
		return Empty
	}
	boxes := make([]interval.Box, 0, len(c.ctcs))
	for _, k := range c.ctcs {
		tmp := b.Clone()
		if k.Contract(&tmp) == Contracted {
			boxes = append(boxes, tmp)
		}
	}
	if len(boxes) < c.q {
		b.SetEmpty()
		return Empty
	}
	res := qinterProjection(boxes, c.q)
	if !res.IsEmpty() && c.algo == QInterExact {
		if ex, ok := qinterExact(boxes, c.q, c.limit); ok {
			res.IntersectWith(ex)
		}
	}
	if res.IsEmpty() {
		b.SetEmpty()
		return Empty
	}
	b.IntersectWith(res)
	return result(b)
}

func (c *QInter) Input() VarSet  { return c.input }
func (c *QInter) Output() VarSet { return c.output }
func (c *QInter) Dim() int       { return c.n }

type endpoint struct {
	v    float64
	open bool
}

// qinterProjection returns, component by component, the hull of the values
// lying in at least q of the boxes.
func qinterProjection(boxes []interval.Box, q int) interval.Box {
	n := boxes[0].Size()
	res := interval.NewBox(n)
	ev := make([]endpoint, 0, 2*len(boxes))
	for j := 0; j < n; j++ {
		ev = ev[:0]
		for _, bx := range boxes {
			x := bx.At(j)
			ev = append(ev, endpoint{x.Lo(), true}, endpoint{x.Hi(), false})
		}
		// Openings sort before closings at equal values, so touching
		// intervals count as overlapping.
		sort.Slice(ev, func(a, b int) bool {
			if ev[a].v != ev[b].v {
				return ev[a].v < ev[b].v
			}
			return ev[a].open && !ev[b].open
		})
		lo := interval.Empty().Lo()
		count := 0
		for _, e := range ev {
			if e.open {
				count++
				if count >= q {
					lo = e.v
					break
				}
			} else {
				count--
			}
		}
		hi := interval.Empty().Hi()
		count = 0
		for k := len(ev) - 1; k >= 0; k-- {
			e := ev[k]
			if !e.open {
				count++
				if count >= q {
					hi = e.v
					break
				}
			} else {
				count--
			}
		}
		x := interval.New(lo, hi)
		if x.IsEmpty() {
			return interval.EmptyBox(n)
		}
		res.Set(j, x)
	}
	return res
}

// qinterExact returns the hull of every non-empty intersection of q boxes.
// ok is false when more than limit subsets would be visited.
func qinterExact(boxes []interval.Box, q, limit int) (hull interval.Box, ok bool) {
	n := boxes[0].Size()
	hull = interval.EmptyBox(n)
	visited := 0
	var rec func(start, depth int, cur interval.Box) bool
	rec = func(start, depth int, cur interval.Box) bool {
		if depth == q {
			hull = hull.Hull(cur)
			return true
		}
		// Not enough boxes left to reach q.
		for i := start; i <= len(boxes)-(q-depth); i++ {
			visited++
			if visited > limit {
				return false
			}
			next := cur.Intersect(boxes[i])
			if next.IsEmpty() || next.Subset(hull) {
				continue
			}
			if !rec(i+1, depth+1, next) {
				return false
			}
		}
		return true
	}
	if !rec(0, 0, interval.NewBox(n)) {
		return interval.Box{}, false
	}
	return hull, true
}
