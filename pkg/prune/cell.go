package prune

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// Cell is a node of the search tree: a box plus the bookkeeping a search
// engine attaches to it. A cell is owned by exactly one buffer slot or by
// the engine processing it.
type Cell struct {
	Box     interval.Box
	Depth   int
	ID      uint64
	LastVar int // variable split to create the cell, -1 for a root

	Solve *SolveData // set by Solver
	Optim *OptimData // set by Optimizer
}

// SolveData is the Solver's per-cell state.
type SolveData struct {
	// Params is the parametric partition found when certifying an
	// under-determined system: the variables fixed at their midpoint.
	Params VarSet
}

// OptimData is the Optimizer's per-cell state.
type OptimData struct {
	// PF encloses the objective over the cell's box. Costs are read from
	// it: PF.Lo() is the cell's lower bound.
	PF interval.Interval
}

// NewCell returns a root cell over b.
func NewCell(b interval.Box) *Cell {
	return &Cell{Box: b, LastVar: -1}
}

// split builds the two children of c from the halves of its box. Each child
// receives an independent copy of c's properties, updated for the split.
func (c *Cell) split(l, r interval.Box, v int) (*Cell, *Cell) {
	return c.child(l, v), c.child(r, v)
}

func (c *Cell) child(b interval.Box, v int) *Cell {
	ch := &Cell{Box: b, Depth: c.Depth + 1, LastVar: v}
	if c.Solve != nil {
		ch.Solve = &SolveData{Params: c.Solve.Params.Clone()}
	}
	if c.Optim != nil {
		// The parent's enclosure remains a valid bound on each half.
		ch.Optim = &OptimData{PF: c.Optim.PF}
	}
	return ch
}

func (c *Cell) String() string {
	return fmt.Sprintf("cell#%d(depth=%d, %v)", c.ID, c.Depth, c.Box)
}
