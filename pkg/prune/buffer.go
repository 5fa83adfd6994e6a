package prune

// CellBuffer holds the pending cells of a search.
//
// Pop and Top on an empty buffer return nil. Flush returns the cells that
// were held, in no particular order, and leaves the buffer empty.
type CellBuffer interface {
	Push(c *Cell)
	Pop() *Cell
	Top() *Cell
	Flush() []*Cell
	Empty() bool
	Size() int
}

// CostBuffer is a CellBuffer ordered by a cost lower-bounding some
// objective. It can discard every cell that cannot beat a bound.
type CostBuffer interface {
	CellBuffer
	// MinCost returns the smallest cost of a pending cell (+∞ if empty).
	MinCost() float64
	// DiscardWorseThan removes every cell whose cost exceeds bound and
	// returns how many were removed.
	DiscardWorseThan(bound float64) int
}

// CellStack is a LIFO buffer: the search explores depth-first.
type CellStack struct {
	cells []*Cell
}

// NewCellStack returns an empty stack.
func NewCellStack() *CellStack { return &CellStack{} }

func (s *CellStack) Push(c *Cell) { s.cells = append(s.cells, c) }

func (s *CellStack) Pop() *Cell {
	if len(s.cells) == 0 {
		return nil
	}
	c := s.cells[len(s.cells)-1]
	s.cells[len(s.cells)-1] = nil
	s.cells = s.cells[:len(s.cells)-1]
	return c
}

func (s *CellStack) Top() *Cell {
	if len(s.cells) == 0 {
		return nil
	}
	return s.cells[len(s.cells)-1]
}

func (s *CellStack) Flush() []*Cell {
	out := s.cells
	s.cells = nil
	return out
}

func (s *CellStack) Empty() bool { return len(s.cells) == 0 }
func (s *CellStack) Size() int   { return len(s.cells) }

// CellQueue is a FIFO buffer: the search explores breadth-first.
type CellQueue struct {
	cells []*Cell
	head  int
}

// NewCellQueue returns an empty queue.
func NewCellQueue() *CellQueue { return &CellQueue{} }

func (q *CellQueue) Push(c *Cell) { q.cells = append(q.cells, c) }

func (q *CellQueue) Pop() *Cell {
	if q.head == len(q.cells) {
		return nil
	}
	c := q.cells[q.head]
	q.cells[q.head] = nil
	q.head++
	if q.head == len(q.cells) {
		q.cells, q.head = q.cells[:0], 0
	}
	return c
}

func (q *CellQueue) Top() *Cell {
	if q.head == len(q.cells) {
		return nil
	}
	return q.cells[q.head]
}

func (q *CellQueue) Flush() []*Cell {
	out := append([]*Cell(nil), q.cells[q.head:]...)
	q.cells, q.head = nil, 0
	return out
}

func (q *CellQueue) Empty() bool { return q.head == len(q.cells) }
func (q *CellQueue) Size() int   { return len(q.cells) - q.head }
