// Package parallel provides the bounded worker pool the interpreter uses
// for its fork-join regions. Parallel scans submit chunk tasks to the pool
// (Parallel statements fan out separately); the pool bounds concurrency to the configured
// job count and provides backpressure so large scans cannot exhaust
// resources.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when submitting to a pool that has been shut
// down.
var ErrPoolShutdown = fmt.Errorf("parallel: pool is shut down")

// Pool manages a fixed set of worker goroutines processing submitted tasks.
type Pool struct {
	workers      int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewPool creates a pool with the given number of workers. A count of zero
// or below defaults to the number of CPU cores.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		workers:      workers,
		taskChan:     make(chan func(), workers*4),
		shutdownChan: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.workerWg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker() {
	defer p.workerWg.Done()
	for {
		select {
		case task := <-p.taskChan:
			if task != nil {
				task()
			}
		case <-p.shutdownChan:
			return
		}
	}
}

// Submit hands a task to the pool, blocking for a free queue slot. It
// returns early when the context is cancelled or the pool shut down.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	select {
	case p.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.shutdownChan:
		return ErrPoolShutdown
	}
}

// TrySubmit hands a task to the pool without blocking; it reports whether
// the task was accepted.
func (p *Pool) TrySubmit(task func()) bool {
	select {
	case p.taskChan <- task:
		return true
	default:
		return false
	}
}

// Run executes all tasks and waits for them to finish — one fork-join
// region. Tasks the pool cannot accept immediately run inline on the
// caller, and while it waits the caller runs queued tasks itself, which
// keeps nested regions from deadlocking on a saturated pool.
func (p *Pool) Run(ctx context.Context, tasks []func()) {
	var wg sync.WaitGroup
	for _, task := range tasks {
		task := task
		wg.Add(1)
		wrapped := func() {
			defer wg.Done()
			task()
		}
		if ctx.Err() != nil || !p.TrySubmit(wrapped) {
			wrapped()
		}
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			return
		case task := <-p.taskChan:
			if task != nil {
				task()
			}
		}
	}
}

// Shutdown stops the workers after the currently executing tasks finish.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.shutdownChan)
		p.workerWg.Wait()
	})
}
