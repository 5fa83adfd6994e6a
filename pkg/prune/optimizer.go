package prune

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

// OptimStatus is the termination status of an Optimizer run.
type OptimStatus int

const (
	// OptimSuccess: the gap between Uplo and Loup meets the tolerances.
	OptimSuccess OptimStatus = iota
	// OptimInfeasible: the constraints have no solution in the box.
	OptimInfeasible
	// NoFeasiblePoint: the search completed without finding a feasible
	// point, but could not prove infeasibility either.
	NoFeasiblePoint
	// UnreachedPrec: the search completed with a gap above the tolerances,
	// limited by the bisection precision.
	UnreachedPrec
	// OptimTimeout: Config.Timeout elapsed.
	OptimTimeout
	// OptimCellOverflow: Config.CellLimit cells were created.
	OptimCellOverflow
	// OptimCancelled: the context was cancelled.
	OptimCancelled
)

func (s OptimStatus) String() string {
	switch s {
	case OptimSuccess:
		return "success"
	case OptimInfeasible:
		return "infeasible"
	case NoFeasiblePoint:
		return "no-feasible-point"
	case UnreachedPrec:
		return "unreached-precision"
	case OptimTimeout:
		return "timeout"
	case OptimCellOverflow:
		return "cell-overflow"
	case OptimCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("OptimStatus(%d)", int(s))
}

// Optimizer brackets the global minimum of sys.Goal subject to the
// constraints of sys: Uplo ≤ min ≤ Loup at all times.
//
// Loup is the objective's upper bound at the best feasible point found.
// Points are probed at the midpoint of each cell and at Config.LoupSamples
// random points; an equation counts as satisfied when |f| ≤
// Config.EqualityEps, so Loup is only as rigorous as that relaxation.
//
// Uplo is the least lower bound of the pending cells and of the cells too
// small to split. Cells are kept in a CellDoubleHeap ordered by the lower
// and the upper bound of the objective, and every improvement of Loup
// discards the cells that cannot beat it.
type Optimizer struct {
	sys   *expr.System
	ctc   Contractor
	bsc   Bisector
	cfg   Config
	goal  *expr.Function
	cut   *Fwdbwd
	log   zerolog.Logger
	mon   *Monitor
	buf   *CellDoubleHeap
	rng   *rand.Rand
	cons  []expr.Constraint
	dim   int
	cells int

	loup      float64
	loupPoint []float64
	uplo      float64
	uploSmall float64 // least lower bound of discarded unsplittable cells
	status    OptimStatus
	start     time.Time
	elapsed   time.Duration
}

// NewOptimizer returns an optimizer of sys, which must have a goal.
func NewOptimizer(sys *expr.System, ctc Contractor, bsc Bisector, cfg Config) (*Optimizer, error) {
	if sys == nil || ctc == nil || bsc == nil {
		return nil, fmt.Errorf("prune: optimizer needs a system, a contractor and a bisector: %w", ErrInvalidParameter)
	}
	if sys.Goal == nil {
		return nil, fmt.Errorf("prune: optimizer needs an objective: %w", ErrInvalidParameter)
	}
	if err := sys.Validate(); err != nil {
		return nil, fmt.Errorf("prune: %w", err)
	}
	if ctc.Dim() != sys.Dim() {
		return nil, fmt.Errorf("prune: contractor of dimension %d for %d variables: %w", ctc.Dim(), sys.Dim(), ErrDimensionMismatch)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{
		sys:  sys,
		ctc:  ctc,
		bsc:  bsc,
		cfg:  cfg,
		goal: sys.Goal,
		cut:  NewFwdbwdTarget(sys.Goal, interval.Entire()),
		log:  cfg.Logger.With().Str("component", "optimizer").Logger(),
		mon:  NewMonitor(),
		cons: sys.Constraints,
		dim:  sys.Dim(),
		loup: math.Inf(1),
		uplo: math.Inf(-1),
	}, nil
}

// DefaultOptimizer returns an optimizer of sys with the default contractor
// and a bisector built from cfg.
func DefaultOptimizer(sys *expr.System, cfg Config) (*Optimizer, error) {
	ctc, err := DefaultContractor(sys, cfg)
	if err != nil {
		return nil, err
	}
	bsc, err := NewUniformBisector(cfg.Policy, sys.Dim(), cfg.Precision, cfg.Ratio)
	if err != nil {
		return nil, err
	}
	return NewOptimizer(sys, ctc, bsc, cfg)
}

// Optimize runs the search on box. A cancelled context stops it with
// status OptimCancelled and ctx.Err(); the bounds found so far remain
// valid.
func (o *Optimizer) Optimize(ctx context.Context, box interval.Box) (OptimStatus, error) {
	if box.Size() != o.dim {
		return 0, fmt.Errorf("prune: start box of dimension %d for %d variables: %w", box.Size(), o.dim, ErrDimensionMismatch)
	}
	o.reset()
	if !box.IsEmpty() {
		root := NewCell(box.Clone())
		root.Optim = &OptimData{PF: o.goal.Eval(root.Box)}
		o.push(root)
	}

	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			o.finish(OptimCancelled)
			return o.status, err
		}
		if o.cfg.Timeout > 0 && time.Since(o.start) >= o.cfg.Timeout {
			o.finish(OptimTimeout)
			return o.status, nil
		}
		if o.buf.Empty() {
			break
		}
		o.updateUplo()
		if o.gapReached() {
			break
		}

		c := o.buf.Pop()
		processed++
		if n := o.cfg.TraceEvery; n > 0 && processed%n == 0 {
			o.log.Debug().
				Float64("loup", o.loup).
				Float64("uplo", o.uplo).
				Int("buffer", o.buf.Size()).
				Int("cells", o.cells).
				Msg("progress")
		}
		if !o.process(c) {
			o.finish(OptimCellOverflow)
			return o.status, nil
		}
	}
	o.finish(o.completeStatus())
	return o.status, nil
}

func (o *Optimizer) reset() {
	o.buf = NewCellDoubleHeap(CostLB, CostUB, o.cfg.CritPr, o.cfg.Seed)
	o.rng = rand.New(rand.NewSource(o.cfg.Seed))
	o.mon.Reset()
	o.cut.SetTarget(interval.Entire())
	o.cells = 0
	o.loup = math.Inf(1)
	o.loupPoint = nil
	o.uplo = math.Inf(-1)
	o.uploSmall = math.Inf(1)
	o.start = time.Now()
	o.elapsed = 0
}

func (o *Optimizer) push(c *Cell) {
	o.cells++
	c.ID = uint64(o.cells)
	o.mon.RecordCells(1)
	o.cfg.Metrics.recordCell()
	o.buf.Push(c)
	o.mon.RecordBufferSize(o.buf.Size())
	o.cfg.Metrics.setBufferSize(o.buf.Size())
}

// process handles one cell. It returns false when the cell limit stops the
// search.
func (o *Optimizer) process(c *Cell) bool {
	o.mon.RecordProcessed(c.Depth)

	t := time.Now()
	out := o.ctc.Contract(&c.Box)
	if out == Contracted && !math.IsInf(o.loup, 1) {
		out = o.cut.Contract(&c.Box)
	}
	o.mon.RecordContraction(time.Since(t))
	o.cfg.Metrics.recordContraction(out)
	if out == Empty {
		o.mon.RecordDiscard(1)
		return true
	}

	pf := o.goal.Eval(c.Box).Intersect(c.Optim.PF)
	if pf.IsEmpty() || pf.Lo() > o.loup {
		o.mon.RecordDiscard(1)
		return true
	}
	c.Optim.PF = pf

	o.probe(c.Box)

	l, r, ok := o.bsc.Bisect(c)
	if !ok {
		o.uploSmall = math.Min(o.uploSmall, pf.Lo())
		return true
	}
	if o.cfg.CellLimit > 0 && o.cells+2 > o.cfg.CellLimit {
		o.buf.Push(c)
		return false
	}
	o.mon.RecordBisection()
	for _, ch := range []*Cell{l, r} {
		ch.Optim.PF = o.goal.Eval(ch.Box).Intersect(pf)
		if ch.Optim.PF.IsEmpty() || ch.Optim.PF.Lo() > o.loup {
			o.mon.RecordDiscard(1)
			continue
		}
		o.push(ch)
	}
	return true
}

// probe looks for a feasible point in b better than the loup.
func (o *Optimizer) probe(b interval.Box) {
	o.try(b.Mid())
	for k := 0; k < o.cfg.LoupSamples; k++ {
		o.try(o.sample(b))
	}
}

func (o *Optimizer) sample(b interval.Box) []float64 {
	pt := b.Mid()
	for i := range pt {
		x := b.At(i)
		if x.IsUnbounded() {
			continue
		}
		v := x.Lo() + o.rng.Float64()*x.Diam()
		pt[i] = math.Max(x.Lo(), math.Min(x.Hi(), v))
	}
	return pt
}

func (o *Optimizer) try(pt []float64) {
	for _, v := range pt {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
	}
	if !o.feasible(pt) {
		return
	}
	f := o.goal.EvalPoint(pt)
	if f.IsEmpty() || !(f.Hi() < o.loup) {
		return
	}
	o.loup = f.Hi()
	o.loupPoint = pt
	o.cut.SetTarget(interval.New(math.Inf(-1), o.loup))
	n := o.buf.DiscardWorseThan(o.loup)
	o.mon.RecordDiscard(n)
	o.cfg.Metrics.setBounds(o.uplo, o.loup)
	o.log.Debug().Float64("loup", o.loup).Floats64("point", pt).Int("discarded", n).Msg("new loup")
}

// feasible checks every constraint at pt, relaxing equations by
// EqualityEps.
func (o *Optimizer) feasible(pt []float64) bool {
	eps := interval.New(-o.cfg.EqualityEps, o.cfg.EqualityEps)
	for _, c := range o.cons {
		y := c.F.EvalPoint(pt)
		if y.IsEmpty() {
			return false
		}
		var ok bool
		switch c.Op {
		case expr.EQ:
			ok = y.Subset(eps)
		case expr.LEQ:
			ok = y.Hi() <= 0
		case expr.LT:
			ok = y.Hi() < 0
		case expr.GEQ:
			ok = y.Lo() >= 0
		case expr.GT:
			ok = y.Lo() > 0
		}
		if !ok {
			return false
		}
	}
	return true
}

func (o *Optimizer) updateUplo() {
	o.uplo = math.Min(math.Min(o.buf.MinCost(), o.uploSmall), o.loup)
	o.cfg.Metrics.setBounds(o.uplo, o.loup)
}

// gapReached reports whether Loup - Uplo meets the absolute or the
// relative tolerance.
func (o *Optimizer) gapReached() bool {
	if math.IsInf(o.loup, 1) {
		return false
	}
	gap := o.loup - o.uplo
	if gap <= o.cfg.AbsEpsF {
		return true
	}
	return o.loup != 0 && gap/math.Abs(o.loup) <= o.cfg.RelEpsF
}

func (o *Optimizer) completeStatus() OptimStatus {
	switch {
	case math.IsInf(o.loup, 1) && math.IsInf(o.uploSmall, 1) && o.buf.Empty():
		return OptimInfeasible
	case math.IsInf(o.loup, 1):
		return NoFeasiblePoint
	case o.gapReached():
		return OptimSuccess
	}
	return UnreachedPrec
}

func (o *Optimizer) finish(st OptimStatus) {
	o.updateUplo()
	if st == OptimInfeasible {
		o.uplo = math.Inf(1)
	}
	o.status = st
	o.elapsed = time.Since(o.start)
	o.buf.Flush()
	o.cfg.Metrics.setBufferSize(0)
	o.cfg.Metrics.recordRun("optimizer", st.String(), o.elapsed)
	o.log.Info().
		Stringer("status", st).
		Float64("loup", o.loup).
		Float64("uplo", o.uplo).
		Int("cells", o.cells).
		Dur("elapsed", o.elapsed).
		Msg("optimization finished")
}

// Status returns the termination status of the last run.
func (o *Optimizer) Status() OptimStatus { return o.status }

// Loup returns the objective's upper bound at the best feasible point
// found (+∞ if none). It is relaxed for equations: a point counts as
// feasible when every equation is within Config.EqualityEps of zero, so
// with equations Loup may fall slightly below the true minimum.
func (o *Optimizer) Loup() float64 { return o.loup }

// LoupPoint returns the feasible point achieving Loup, or nil.
func (o *Optimizer) LoupPoint() []float64 { return append([]float64(nil), o.loupPoint...) }

// Uplo returns the proven lower bound of the minimum.
func (o *Optimizer) Uplo() float64 { return o.uplo }

// Elapsed returns the duration of the last run.
func (o *Optimizer) Elapsed() time.Duration { return o.elapsed }

// CellCount returns the number of cells created.
func (o *Optimizer) CellCount() int { return o.cells }

// Stats returns the statistics of the last run.
func (o *Optimizer) Stats() SearchStats {
	st := o.mon.Stats()
	st.SearchTime = o.elapsed
	return st
}

// Report summarizes the last run.
func (o *Optimizer) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "status: %v\n", o.status)
	fmt.Fprintf(&sb, "minimum in [%g, %g]\n", o.uplo, o.loup)
	if len(o.sys.Equalities()) > 0 {
		fmt.Fprintf(&sb, "upper bound relaxed for equations: |f| <= %g\n", o.cfg.EqualityEps)
	}
	if o.loupPoint != nil {
		fmt.Fprintf(&sb, "best point: %v\n", o.loupPoint)
	}
	fmt.Fprintf(&sb, "cells: %d\n", o.cells)
	fmt.Fprintf(&sb, "time: %v\n", o.elapsed)
	return sb.String()
}
