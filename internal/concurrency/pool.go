// Package concurrency provides the bounded worker pool used by batch
// operations. Each job is independent; a job that fails records its own
// outcome and never aborts its siblings.
package concurrency

import (
	"context"
	"log/slog"
	"sync"
)

// Pool fans independent jobs out across a fixed number of goroutines.
type Pool struct {
	workers int
	logger  *slog.Logger
}

// NewPool creates a pool with the given worker count. Counts below one are
// raised to one.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, logger: logger}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Run executes job(ctx, i) for every i in [0, n) using at most the
// configured number of goroutines, and blocks until all jobs finish or the
// context is cancelled. Jobs write results into caller-owned slots indexed
// by i, so no synchronization is needed on the caller side.
func (p *Pool) Run(ctx context.Context, n int, job func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}

	indices := make(chan int)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > n {
		workers = n
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.logger.Debug("worker started", "worker_id", id)
			defer p.logger.Debug("worker stopped", "worker_id", id)

			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-indices:
					if !ok {
						return
					}
					job(ctx, i)
				}
			}
		}(w)
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			close(indices)
			wg.Wait()
			return
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()
}
