// Package parallel runs independent searches concurrently. Each search
// stays single-threaded; the pool only spreads whole problems over the
// available cores.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when submitting to a pool that was shut down.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// WorkerPool manages a fixed set of goroutines consuming submitted tasks.
// The task queue is bounded, so Submit blocks while every worker is busy
// and the queue is full.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once

	mu     sync.RWMutex // held for writing while closing taskChan
	closed bool
}

// NewWorkerPool creates a pool of maxWorkers goroutines, or one per CPU
// when maxWorkers is not positive.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}
	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}
	return pool
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()
	for task := range wp.taskChan {
		task()
	}
}

// Submit queues task. It blocks until the queue has room, ctx is done or
// the pool is shut down.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	if task == nil {
		return nil
	}
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolShutdown
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops accepting tasks and waits for the accepted ones to
// complete.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskChan)
		wp.mu.Unlock()
		wp.workerWg.Wait()
	})
}

// Map applies fn to every item on the pool and returns the results in the
// order of items. Items not yet submitted when ctx is done are skipped and
// their results left at the zero value; the returned error is then
// ctx.Err().
func Map[T, R any](ctx context.Context, wp *WorkerPool, items []T, fn func(context.Context, T) R) ([]R, error) {
	results := make([]R, len(items))
	var wg sync.WaitGroup
	var err error
	for i, item := range items {
		i, item := i, item
		wg.Add(1)
		if err = wp.Submit(ctx, func() {
			defer wg.Done()
			results[i] = fn(ctx, item)
		}); err != nil {
			wg.Done()
			break
		}
	}
	wg.Wait()
	return results, err
}
