package prune

// monitor.go: in-process statistics of a search

import (
	"fmt"
	"sync"
	"time"
)

// SearchStats holds statistics about a search.
type SearchStats struct {
	// Tree statistics
	CellsCreated   int // Cells created, root included
	CellsProcessed int // Cells popped and contracted
	Bisections     int // Cells split in two
	Discarded      int // Cells proven empty or dominated
	MaxDepth       int // Deepest cell processed

	// Contraction statistics
	Contractions int           // Contractor calls on cells
	ContractTime time.Duration // Time spent contracting

	// Certification statistics
	Certified       int // Successful existence proofs
	CertifyFailures int // Attempts that ended UNKNOWN

	PeakBufferSize int           // Largest number of pending cells
	SearchTime     time.Duration // Wall-clock duration
}

func (s SearchStats) String() string {
	return fmt.Sprintf("cells=%d processed=%d bisections=%d discarded=%d depth=%d contractions=%d certified=%d/%d time=%v",
		s.CellsCreated, s.CellsProcessed, s.Bisections, s.Discarded, s.MaxDepth,
		s.Contractions, s.Certified, s.Certified+s.CertifyFailures, s.SearchTime)
}

// Monitor accumulates SearchStats. It is safe to read from another
// goroutine while a search runs.
type Monitor struct {
	mu        sync.Mutex
	stats     SearchStats
	startTime time.Time
}

// NewMonitor returns a monitor whose clock starts now.
func NewMonitor() *Monitor {
	return &Monitor{startTime: time.Now()}
}

// Stats returns a snapshot of the statistics.
func (m *Monitor) Stats() SearchStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.SearchTime = time.Since(m.startTime)
	return s
}

// Reset clears the statistics and restarts the clock.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = SearchStats{}
	m.startTime = time.Now()
}

// RecordCells records the creation of n cells.
func (m *Monitor) RecordCells(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CellsCreated += n
}

// RecordProcessed records popping a cell at the given depth.
func (m *Monitor) RecordProcessed(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CellsProcessed++
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

// RecordContraction records one contractor call and its duration.
func (m *Monitor) RecordContraction(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Contractions++
	m.stats.ContractTime += d
}

// RecordBisection records a split.
func (m *Monitor) RecordBisection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Bisections++
}

// RecordDiscard records n discarded cells.
func (m *Monitor) RecordDiscard(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Discarded += n
}

// RecordCertification records the result of an existence proof.
func (m *Monitor) RecordCertification(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.stats.Certified++
	} else {
		m.stats.CertifyFailures++
	}
}

// RecordBufferSize records the current number of pending cells.
func (m *Monitor) RecordBufferSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.stats.PeakBufferSize {
		m.stats.PeakBufferSize = size
	}
}
