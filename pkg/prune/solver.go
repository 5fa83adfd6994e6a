package prune

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
)

// ErrNotStarted is returned by Next before Start.
var ErrNotStarted = errors.New("search not started")

// Solver encloses the solutions of a system of equations and inequalities
// by branch and prune.
//
// Each cell popped from the buffer is contracted, discarded when proven
// empty, split by the bisector, and classified once it cannot be split.
// Terminal cells of systems with equations go through the Certifier.
// Systems with only inequalities report inner boxes as soon as every
// inequality certainly holds over them. Systems without constraints leave
// everything to the contractor: its leaves are reported Unknown.
//
// The outputs cover every solution in the initial box: a solution is in a
// Solution, Boundary, Unknown or Pending box.
type Solver struct {
	sys   *expr.System
	ctc   Contractor
	bsc   Bisector
	buf   CellBuffer
	cfg   Config
	cert  *Certifier
	eqs   []expr.Constraint
	ineqs []expr.Constraint
	log   zerolog.Logger
	mon   *Monitor

	started  bool
	status   Status
	start    time.Time
	elapsed  time.Duration
	cells    int
	nextID   uint64
	overflow bool
	outputs  []Output
	counts   [Pending + 1]int
	proofs   []Certificate // square systems: already reported solutions
}

// NewSolver returns a solver of sys using the contractor ctc, the bisector
// bsc and the buffer buf.
func NewSolver(sys *expr.System, ctc Contractor, bsc Bisector, buf CellBuffer, cfg Config) (*Solver, error) {
	if sys == nil || ctc == nil || bsc == nil || buf == nil {
		return nil, fmt.Errorf("prune: solver needs a system, a contractor, a bisector and a buffer: %w", ErrInvalidParameter)
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
	s := &Solver{
		sys:    sys,
		ctc:    ctc,
		bsc:    bsc,
		buf:    buf,
		cfg:    cfg,
		eqs:    sys.Equalities(),
		ineqs:  sys.Inequalities(),
		log:    cfg.Logger.With().Str("component", "solver").Logger(),
		mon:    NewMonitor(),
		status: Running,
	}
	if len(s.eqs) > 0 && len(s.eqs) <= sys.Dim() {
		cert, err := NewCertifier(s.eqs, sys.Dim(), cfg)
		if err != nil {
			return nil, err
		}
		s.cert = cert
	}
	return s, nil
}

// DefaultContractor returns the contractor used when none is given: HC4
// propagation of every constraint, followed by Newton on square systems of
// equations and, with Config.LPRelax, by the LP contractor of the corner
// linearization, iterated to a fixpoint.
func DefaultContractor(sys *expr.System, cfg Config) (Contractor, error) {
	n := sys.Dim()
	if len(sys.Constraints) == 0 {
		return NewIdentity(n), nil
	}
	hc4, err := NewPropagation(FwdbwdAll(sys), cfg.PropagationRatio)
	if err != nil {
		return nil, err
	}
	ctcs := []Contractor{hc4}
	if eqs := sys.Equalities(); len(eqs) == n {
		newton, err := NewNewton(eqs, cfg.NewtonCeil)
		if err != nil {
			return nil, err
		}
		ctcs = append(ctcs, newton)
	}
	if cfg.LPRelax {
		lin, err := NewCornerLinearizer(sys)
		if err != nil {
			return nil, err
		}
		lpc, err := NewLPContractor(lin, cfg.LPMargin)
		if err != nil {
			return nil, err
		}
		ctcs = append(ctcs, lpc)
	}
	compo, err := NewCompo(ctcs...)
	if err != nil {
		return nil, err
	}
	return NewFixpoint(compo, cfg.FixpointRatio, cfg.FixpointMaxIter)
}

// DefaultSolver returns a solver of sys with the default contractor, a
// bisector built from cfg and a depth-first buffer.
func DefaultSolver(sys *expr.System, cfg Config) (*Solver, error) {
	ctc, err := DefaultContractor(sys, cfg)
	if err != nil {
		return nil, err
	}
	bsc, err := NewUniformBisector(cfg.Policy, sys.Dim(), cfg.Precision, cfg.Ratio)
	if err != nil {
		return nil, err
	}
	return NewSolver(sys, ctc, bsc, NewCellStack(), cfg)
}

// Start resets the solver and seeds the search with box.
func (s *Solver) Start(box interval.Box) error {
	return s.StartWith([]interval.Box{box})
}

// StartWith resets the solver and seeds the search with several boxes, for
// instance the unknown and pending boxes of a previous run.
func (s *Solver) StartWith(boxes []interval.Box) error {
	for i, b := range boxes {
		if b.Size() != s.sys.Dim() {
			return fmt.Errorf("prune: start box %d of dimension %d for %d variables: %w", i, b.Size(), s.sys.Dim(), ErrDimensionMismatch)
		}
	}
	s.buf.Flush()
	s.mon.Reset()
	s.started = true
	s.status = Running
	s.start = time.Now()
	s.elapsed = 0
	s.cells = 0
	s.nextID = 0
	s.overflow = false
	s.outputs = nil
	s.counts = [Pending + 1]int{}
	s.proofs = nil
	for _, b := range boxes {
		if b.IsEmpty() {
			continue
		}
		c := NewCell(b.Clone())
		c.Solve = &SolveData{Params: NewVarSet()}
		s.push(c)
	}
	s.log.Debug().Int("boxes", len(boxes)).Msg("search started")
	return nil
}

// Solve runs the search on box until it terminates.
func (s *Solver) Solve(ctx context.Context, box interval.Box) (Status, error) {
	if err := s.Start(box); err != nil {
		return s.status, err
	}
	for {
		_, ok, err := s.Next(ctx)
		if err != nil {
			return s.status, err
		}
		if !ok {
			return s.status, nil
		}
	}
}

// Next runs the search until it reports a box. ok is false once the search
// has terminated; Status then tells why. A cancelled context terminates the
// search with status Cancelled and ctx.Err().
func (s *Solver) Next(ctx context.Context) (out Output, ok bool, err error) {
	if !s.started {
		return Output{}, false, ErrNotStarted
	}
	for s.status == Running {
		if err := ctx.Err(); err != nil {
			s.finish(Cancelled)
			return Output{}, false, err
		}
		if s.cfg.Timeout > 0 && time.Since(s.start) >= s.cfg.Timeout {
			s.finish(Timeout)
			break
		}
		if s.cfg.SolutionLimit > 0 && s.counts[Solution] >= s.cfg.SolutionLimit {
			s.finish(SolutionLimit)
			break
		}
		if s.buf.Empty() {
			s.finish(s.completeStatus())
			break
		}
		c := s.buf.Pop()
		out, ok := s.process(c)
		if s.overflow {
			s.finish(CellOverflow)
			break
		}
		if ok {
			s.emit(out)
			return out, true, nil
		}
	}
	return Output{}, false, nil
}

func (s *Solver) push(c *Cell) {
	s.nextID++
	c.ID = s.nextID
	s.cells++
	s.mon.RecordCells(1)
	s.cfg.Metrics.recordCell()
	s.buf.Push(c)
	s.mon.RecordBufferSize(s.buf.Size())
}

// process handles one cell. ok reports an output.
func (s *Solver) process(c *Cell) (Output, bool) {
	s.mon.RecordProcessed(c.Depth)
	if n := s.cfg.TraceEvery; n > 0 && s.mon.Stats().CellsProcessed%n == 0 {
		s.log.Debug().
			Int("cells", s.cells).
			Int("buffer", s.buf.Size()).
			Int("solutions", s.counts[Solution]).
			Int("depth", c.Depth).
			Msg("progress")
	}
	s.cfg.Metrics.setBufferSize(s.buf.Size())

	if s.dominated(c.Box) {
		s.mon.RecordDiscard(1)
		return Output{}, false
	}

	t := time.Now()
	o := s.ctc.Contract(&c.Box)
	s.mon.RecordContraction(time.Since(t))
	s.cfg.Metrics.recordContraction(o)
	if o == Empty {
		s.mon.RecordDiscard(1)
		return Output{}, false
	}

	if len(s.eqs) == 0 && len(s.ineqs) > 0 {
		certain, possible := s.holds(c.Box)
		if !possible {
			s.mon.RecordDiscard(1)
			return Output{}, false
		}
		if certain {
			return Output{Kind: Solution, Box: c.Box}, true
		}
	}

	l, r, ok := s.bsc.Bisect(c)
	if ok {
		if s.cfg.CellLimit > 0 && s.cells+2 > s.cfg.CellLimit {
			s.buf.Push(c)
			s.overflow = true
			return Output{}, false
		}
		s.mon.RecordBisection()
		s.push(l)
		s.push(r)
		return Output{}, false
	}
	return s.classify(c)
}

// classify decides a cell that cannot be split.
func (s *Solver) classify(c *Cell) (Output, bool) {
	unknown := Output{Kind: Unknown, Box: c.Box}
	switch {
	case len(s.eqs) > 0:
	case len(s.ineqs) > 0:
		return Output{Kind: Boundary, Box: c.Box}, true
	default:
		// Nothing to check: the contractor alone defines the set.
		return unknown, true
	}
	if s.cert == nil {
		return unknown, true
	}
	cert, ok := s.cert.Certify(c.Box)
	s.mon.RecordCertification(ok)
	if !ok {
		return unknown, true
	}

	square := s.cert.Square()
	unique := square && c.Box.Subset(cert.Unicity)
	box := c.Box
	switch {
	case unique:
		box = cert.Existence
	case cert.Existence.Subset(c.Box):
	default:
		return unknown, true
	}
	if square && s.duplicate(cert) {
		s.mon.RecordDiscard(1)
		return Output{}, false
	}

	kind := Solution
	if len(s.ineqs) > 0 {
		certain, possible := s.holds(cert.Existence)
		switch {
		case certain:
		case possible:
			kind = Boundary
		case unique:
			// The only solution of the cell violates an inequality.
			s.mon.RecordDiscard(1)
			return Output{}, false
		default:
			return unknown, true
		}
	}
	if square {
		s.proofs = append(s.proofs, cert)
	}
	c.Solve.Params = cert.Params
	return Output{Kind: kind, Box: box, Existence: cert.Existence, Params: cert.Params}, true
}

// holds evaluates every inequality over b.
func (s *Solver) holds(b interval.Box) (certain, possible bool) {
	certain, possible = true, true
	for _, in := range s.ineqs {
		c, p := in.Holds(b)
		certain = certain && c
		possible = possible && p
	}
	return certain, possible
}

// dominated reports whether b lies in the unicity box of a reported
// solution of a square system.
func (s *Solver) dominated(b interval.Box) bool {
	for _, p := range s.proofs {
		if b.Subset(p.Unicity) {
			return true
		}
	}
	return false
}

// duplicate reports whether cert proves a solution already reported.
func (s *Solver) duplicate(cert Certificate) bool {
	for _, p := range s.proofs {
		if cert.Existence.Subset(p.Unicity) || p.Existence.Subset(cert.Unicity) {
			return true
		}
	}
	return false
}

func (s *Solver) emit(out Output) {
	s.outputs = append(s.outputs, out)
	s.counts[out.Kind]++
	s.cfg.Metrics.recordOutput(out.Kind)
	s.log.Debug().Stringer("kind", out.Kind).Stringer("box", out.Box).Msg("output")
}

func (s *Solver) completeStatus() Status {
	switch {
	case s.counts[Unknown] > 0:
		return NotAllValidated
	case len(s.outputs) == 0:
		return InfeasibleProblem
	}
	return Success
}

// finish terminates the search. Incomplete searches report their pending
// cells.
func (s *Solver) finish(st Status) {
	if !st.Complete() {
		for _, c := range s.buf.Flush() {
			s.emit(Output{Kind: Pending, Box: c.Box})
		}
	}
	s.status = st
	s.elapsed = time.Since(s.start)
	s.cfg.Metrics.setBufferSize(0)
	s.cfg.Metrics.recordRun("solver", st.String(), s.elapsed)
	s.log.Info().
		Stringer("status", st).
		Int("solutions", s.counts[Solution]).
		Int("boundaries", s.counts[Boundary]).
		Int("unknowns", s.counts[Unknown]).
		Int("pending", s.counts[Pending]).
		Int("cells", s.cells).
		Dur("elapsed", s.elapsed).
		Msg("search finished")
}

// Status returns the termination status, or Running.
func (s *Solver) Status() Status { return s.status }

// Elapsed returns the duration of the search so far.
func (s *Solver) Elapsed() time.Duration {
	if s.started && s.status == Running {
		return time.Since(s.start)
	}
	return s.elapsed
}

// CellCount returns the number of cells created.
func (s *Solver) CellCount() int { return s.cells }

// Outputs returns every box reported so far, in order.
func (s *Solver) Outputs() []Output { return append([]Output(nil), s.outputs...) }

func (s *Solver) filter(k OutputKind) []Output {
	out := make([]Output, 0, s.counts[k])
	for _, o := range s.outputs {
		if o.Kind == k {
			out = append(out, o)
		}
	}
	return out
}

// Solutions returns the Solution outputs.
func (s *Solver) Solutions() []Output { return s.filter(Solution) }

// Boundaries returns the Boundary outputs.
func (s *Solver) Boundaries() []Output { return s.filter(Boundary) }

// Unknowns returns the Unknown outputs.
func (s *Solver) Unknowns() []Output { return s.filter(Unknown) }

// Pendings returns the Pending outputs.
func (s *Solver) Pendings() []Output { return s.filter(Pending) }

// Stats returns the statistics of the search.
func (s *Solver) Stats() SearchStats {
	st := s.mon.Stats()
	st.SearchTime = s.Elapsed()
	return st
}

// Report summarizes the search.
func (s *Solver) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "status:     %v\n", s.status)
	fmt.Fprintf(&sb, "solutions:  %d\n", s.counts[Solution])
	fmt.Fprintf(&sb, "boundaries: %d\n", s.counts[Boundary])
	fmt.Fprintf(&sb, "unknowns:   %d\n", s.counts[Unknown])
	fmt.Fprintf(&sb, "pending:    %d\n", s.counts[Pending])
	fmt.Fprintf(&sb, "cells:      %d\n", s.cells)
	fmt.Fprintf(&sb, "time:       %v\n", s.Elapsed())
	return sb.String()
}
