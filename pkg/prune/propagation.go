package prune

import (
	"fmt"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

// Propagation runs a set of contractors to a common fixpoint (HC4 when the
// contractors are Fwdbwd revisions).
//
// Every contractor starts on the agenda. After a contractor runs, each
// output variable whose domain shrank by more than the ratio wakes up the
// other contractors reading it. The loop ends when the agenda is empty or
// the box is proven empty.
type Propagation struct {
	ctcs     []Contractor
	ratio    float64
	n        int
	watchers [][]int // variable -> contractors reading it
	outputs  [][]int
	input    VarSet
	output   VarSet
}

// NewPropagation returns a propagation loop over ctcs. ratio is the minimal
// relative shrink of a variable that triggers its watchers; it must lie in
// [0, 1).
func NewPropagation(ctcs []Contractor, ratio float64) (*Propagation, error) {
	if len(ctcs) == 0 {
		return nil, fmt.Errorf("prune: propagation over no contractor: %w", ErrInvalidParameter)
	}
	if ratio < 0 || ratio >= 1 {
		return nil, fmt.Errorf("prune: propagation ratio %g not in [0, 1): %w", ratio, ErrInvalidParameter)
	}
	n := ctcs[0].Dim()
	if err := sameDim(n, ctcs); err != nil {
		return nil, err
	}
	p := &Propagation{
		ctcs:     ctcs,
		ratio:    ratio,
		n:        n,
		watchers: make([][]int, n),
		outputs:  make([][]int, len(ctcs)),
		input:    NewVarSet(),
		output:   NewVarSet(),
	}
	for k, c := range ctcs {
		for _, v := range c.Input().Indices() {
			p.watchers[v] = append(p.watchers[v], k)
		}
		p.outputs[k] = c.Output().Indices()
		p.input = p.input.Union(c.Input())
		p.output = p.output.Union(c.Output())
	}
	return p, nil
}

// Contract implements Contractor.
func (p *Propagation) Contract(b *interval.Box) Outcome {
	checkDim(p, b)
	if b.IsEmpty() {
		return Empty
	}
	queue := make([]int, len(p.ctcs))
	queued := make([]bool, len(p.ctcs))
	for k := range p.ctcs {
		queue[k] = k
		queued[k] = true
	}
	before := make([]interval.Interval, p.n)
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		queued[k] = false

		for _, v := range p.outputs[k] {
			before[v] = b.At(v)
		}
		if p.ctcs[k].Contract(b) == Empty {
			return Empty
		}
		for _, v := range p.outputs[k] {
			if before[v].Reduction(b.At(v)) <= p.ratio {
				continue
			}
			for _, w := range p.watchers[v] {
				if w != k && !queued[w] {
					queue = append(queue, w)
					queued[w] = true
				}
			}
		}
	}
	return Contracted
}

func (p *Propagation) Input() VarSet  { return p.input }
func (p *Propagation) Output() VarSet { return p.output }
func (p *Propagation) Dim() int       { return p.n }
