package problem

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

// Contractor builds the contractor of p over sys: the default contractor of
// the constraints, composed with one q-intersection per robust group and
// iterated to a fixpoint.
func (p *Problem) Contractor(sys *expr.System, cfg prune.Config) (prune.Contractor, error) {
	var ctcs []prune.Contractor
	if len(sys.Constraints) > 0 {
		ctc, err := prune.DefaultContractor(sys, cfg)
		if err != nil {
			return nil, err
		}
		ctcs = append(ctcs, ctc)
	}
	for i, r := range p.Robust {
		q, err := r.contractor(sys.Vars)
		if err != nil {
			return nil, fmt.Errorf("robust group %d: %w", i, err)
		}
		ctcs = append(ctcs, q)
	}
	switch len(ctcs) {
	case 0:
		return prune.NewIdentity(sys.Dim()), nil
	case 1:
		if len(p.Robust) == 0 {
			return ctcs[0], nil
		}
	}
	compo, err := prune.NewCompo(ctcs...)
	if err != nil {
		return nil, err
	}
	return prune.NewFixpoint(compo, cfg.FixpointRatio, cfg.FixpointMaxIter)
}

func (r Robust) contractor(vars []string) (prune.Contractor, error) {
	ctcs := make([]prune.Contractor, len(r.Constraints))
	for i, src := range r.Constraints {
		c, err := expr.ParseConstraint(src, vars)
		if err != nil {
			return nil, fmt.Errorf("constraint %q: %w", src, err)
		}
		ctcs[i] = prune.NewFwdbwd(c)
	}
	algo := prune.QInterProjection
	if r.Algorithm == "exact" {
		algo = prune.QInterExact
	}
	return prune.NewQInter(ctcs, r.Q, algo, r.Limit)
}

// Solver builds the solver of p with cfg, typically p.Settings() with a
// logger and metrics attached.
func (p *Problem) Solver(cfg prune.Config) (*prune.Solver, error) {
	sys, err := p.System()
	if err != nil {
		return nil, err
	}
	ctc, err := p.Contractor(sys, cfg)
	if err != nil {
		return nil, err
	}
	bsc, err := prune.NewUniformBisector(cfg.Policy, sys.Dim(), cfg.Precision, cfg.Ratio)
	if err != nil {
		return nil, err
	}
	var buf prune.CellBuffer = prune.NewCellStack()
	if p.Buffer == "breadth-first" {
		buf = prune.NewCellQueue()
	}
	return prune.NewSolver(sys, ctc, bsc, buf, cfg)
}

// Optimizer builds the optimizer of p with cfg. p must have an objective.
func (p *Problem) Optimizer(cfg prune.Config) (*prune.Optimizer, error) {
	if !p.Optimization() {
		return nil, fmt.Errorf("problem %q has no objective: %w", p.Name, ErrInvalid)
	}
	sys, err := p.System()
	if err != nil {
		return nil, err
	}
	ctc, err := p.Contractor(sys, cfg)
	if err != nil {
		return nil, err
	}
	bsc, err := prune.NewUniformBisector(cfg.Policy, sys.Dim(), cfg.Precision, cfg.Ratio)
	if err != nil {
		return nil, err
	}
	return prune.NewOptimizer(sys, ctc, bsc, cfg)
}
