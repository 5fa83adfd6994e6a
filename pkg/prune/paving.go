package prune

// paving.go: binary export of the boxes reported by a Solver
//
// Layout, little endian:
//
//	signature  "INTERVALKIT-PAVING\x00"
//	version    uint32
//	dimension  uint32
//	records    until end of file:
//	    bounds  dimension × (lo, hi float64)
//	    kind    uint8 (OutputKind)
//	    nparams uint32, then nparams × uint32 variable indices

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/gitrdm/intervalkit/pkg/interval"
)

const (
	pavingSignature = "INTERVALKIT-PAVING\x00"
	pavingVersion   = 1
)

// ErrPavingFormat reports a malformed paving file.
var ErrPavingFormat = errors.New("malformed paving")

// MaxPavingDim is the largest dimension a paving file may declare.
const MaxPavingDim = 1 << 16

// Paving is the set of boxes reported by a search.
type Paving struct {
	Dim     int
	Outputs []Output
}

// Paving returns the outputs of the search so far.
func (s *Solver) Paving() Paving {
	return Paving{Dim: s.sys.Dim(), Outputs: s.Outputs()}
}

// Boxes returns the boxes of the given kinds, or of every kind when none is
// given. Resuming a search from the Unknown and Pending boxes of a previous
// run goes through Boxes and Solver.StartWith.
func (p Paving) Boxes(kinds ...OutputKind) []interval.Box {
	var out []interval.Box
	for _, o := range p.Outputs {
		if len(kinds) == 0 || containsKind(kinds, o.Kind) {
			out = append(out, o.Box)
		}
	}
	return out
}

func containsKind(kinds []OutputKind, k OutputKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

// Count returns the number of outputs of kind k.
func (p Paving) Count(k OutputKind) int {
	n := 0
	for _, o := range p.Outputs {
		if o.Kind == k {
			n++
		}
	}
	return n
}

// WritePaving writes p to w.
func WritePaving(w io.Writer, p Paving) error {
	if p.Dim < 0 || p.Dim > MaxPavingDim {
		return fmt.Errorf("prune: paving of dimension %d: %w", p.Dim, ErrDimensionMismatch)
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(pavingSignature); err != nil {
		return err
	}
	le := binary.LittleEndian
	if err := binary.Write(bw, le, [2]uint32{pavingVersion, uint32(p.Dim)}); err != nil {
		return err
	}
	for i, o := range p.Outputs {
		if o.Box.Size() != p.Dim {
			return fmt.Errorf("prune: paving record %d has dimension %d, want %d: %w", i, o.Box.Size(), p.Dim, ErrDimensionMismatch)
		}
		bounds := make([]float64, 0, 2*p.Dim)
		for k := 0; k < p.Dim; k++ {
			x := o.Box.At(k)
			bounds = append(bounds, x.Lo(), x.Hi())
		}
		params := o.Params.Indices()
		idx := make([]uint32, len(params))
		for k, v := range params {
			idx[k] = uint32(v)
		}
		if err := binary.Write(bw, le, bounds); err != nil {
			return err
		}
		if err := binary.Write(bw, le, uint8(o.Kind)); err != nil {
			return err
		}
		if err := binary.Write(bw, le, uint32(len(idx))); err != nil {
			return err
		}
		if err := binary.Write(bw, le, idx); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadPaving reads a paving written by WritePaving.
func ReadPaving(r io.Reader) (Paving, error) {
	br := bufio.NewReader(r)
	sig := make([]byte, len(pavingSignature))
	if _, err := io.ReadFull(br, sig); err != nil || !bytes.Equal(sig, []byte(pavingSignature)) {
		return Paving{}, fmt.Errorf("prune: bad signature: %w", ErrPavingFormat)
	}
	le := binary.LittleEndian
	var head [2]uint32
	if err := binary.Read(br, le, &head); err != nil {
		return Paving{}, fmt.Errorf("prune: reading header: %v: %w", err, ErrPavingFormat)
	}
	if head[0] != pavingVersion {
		return Paving{}, fmt.Errorf("prune: unsupported version %d: %w", head[0], ErrPavingFormat)
	}
	if head[1] > MaxPavingDim {
		return Paving{}, fmt.Errorf("prune: dimension %d out of range: %w", head[1], ErrPavingFormat)
	}
	p := Paving{Dim: int(head[1])}
	for {
		if _, err := br.Peek(1); err == io.EOF {
			return p, nil
		}
		o, err := readRecord(br, p.Dim)
		if err != nil {
			return Paving{}, fmt.Errorf("prune: record %d: %v: %w", len(p.Outputs), err, ErrPavingFormat)
		}
		p.Outputs = append(p.Outputs, o)
	}
}

func readRecord(r io.Reader, dim int) (Output, error) {
	le := binary.LittleEndian
	bounds := make([]float64, 2*dim)
	if err := binary.Read(r, le, bounds); err != nil {
		return Output{}, err
	}
	var kind uint8
	if err := binary.Read(r, le, &kind); err != nil {
		return Output{}, err
	}
	if OutputKind(kind) > Pending {
		return Output{}, fmt.Errorf("kind %d", kind)
	}
	var n uint32
	if err := binary.Read(r, le, &n); err != nil {
		return Output{}, err
	}
	if int(n) > dim {
		return Output{}, fmt.Errorf("%d parameters in dimension %d", n, dim)
	}
	idx := make([]uint32, n)
	if err := binary.Read(r, le, idx); err != nil {
		return Output{}, err
	}
	lo := make([]float64, dim)
	hi := make([]float64, dim)
	for k := 0; k < dim; k++ {
		lo[k], hi[k] = bounds[2*k], bounds[2*k+1]
	}
	box, err := interval.BoxFromBounds(lo, hi)
	if err != nil {
		return Output{}, err
	}
	params := NewVarSet()
	for _, v := range idx {
		if int(v) >= dim {
			return Output{}, fmt.Errorf("parameter index %d in dimension %d", v, dim)
		}
		params.Add(int(v))
	}
	return Output{Kind: OutputKind(kind), Box: box, Params: params}, nil
}
