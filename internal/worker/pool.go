// Package worker provides a bounded-concurrency task pool used by the
// batch fetch engine to dispatch per-entity requests.
package worker

import (
	"context"
	"sync"
)

// Pool runs submitted tasks on at most size concurrent goroutines.
// Submit blocks while every slot is busy, so a slow remote naturally
// throttles dispatch, and Wait blocks until all submitted tasks return,
// forming the batch barrier that checkpointing relies on.
type Pool struct {
	sem chan struct{} // semaphore for bounded concurrency
	wg  sync.WaitGroup
}

// NewPool creates a pool with the given concurrency bound.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Submit schedules task on a pool goroutine, blocking until a slot frees
// up or ctx is done.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		task()
	}()

	return nil
}

// Wait blocks until every submitted task has completed. The pool is
// reusable for further batches afterwards.
func (p *Pool) Wait() {
	p.wg.Wait()
}
