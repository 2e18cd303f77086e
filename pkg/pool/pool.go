// Package pool runs independent units of work on a bounded number of
// goroutines and hands back futures whose completion can be polled.
package pool

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Runner accepts units of work. Go must not block the caller: work may be
// submitted from inside other work running on the same Runner.
type Runner interface {
	Go(fn func())
}

// Pool is a Runner that executes at most Size units of work at a time.
// There is no ordering guarantee between submitted units.
//
// Go starts a goroutine per unit right away and the goroutine waits for a
// slot, so concurrency is bounded but the number of parked goroutines is
// not. That is sized for check trees (tens to hundreds of units) and keeps
// Go from blocking when work submits its own children.
type Pool struct {
	size int
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
}

// New returns a pool running at most size units concurrently.
// A size of zero or less uses the number of available CPUs.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &Pool{
		size: size,
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

// Size returns the maximum number of concurrently running units.
func (p *Pool) Size() int {
	return p.size
}

// Go queues fn and returns immediately. A panic in fn is logged and
// swallowed so that one unit cannot take down its siblings.
func (p *Pool) Go(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Acquire only fails on a cancelled context.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("pool: unit of work panicked", "panic", r)
			}
		}()
		fn()
	}()
}

// Wait blocks until every unit submitted so far, and every unit those
// units submitted, has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
