// Package syncenv implements the synctask worker pool of spec.md §5: a
// fixed number of runnable synctasks, each a goroutine that blocks on a
// channel receive standing in for the cooperative-fiber suspension point
// described in spec.md §9 ("Callback plus blocking via synctasks"). Go's
// runtime-scheduled goroutines are the idiomatic substitute for the
// hand-rolled fiber stacks of the original; the pool only bounds how many
// run concurrently.
package syncenv

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs synctasks with a bound on how many may run at once. A task
// holds its slot for as long as its function runs, including while it is
// blocked on a Future; the slot is released only when the task function
// returns.
type Pool struct {
	sem   *semaphore.Weighted
	group *errgroup.Group
	ctx   context.Context
}

// NewPool constructs a pool allowing up to workers synctasks to run
// concurrently. ctx cancels every outstanding and future task, and is the
// context passed to each task function.
func NewPool(ctx context.Context, workers int64) *Pool {
	g, gctx := errgroup.WithContext(ctx)
	return &Pool{sem: semaphore.NewWeighted(workers), group: g, ctx: gctx}
}

// Spawn blocks until a worker slot is free, then runs task on its own
// goroutine. The first task to return a non-nil error cancels the pool's
// context, propagated to every other task (matching errgroup.WithContext,
// spec.md's "a cancelled call unwinds with a transport-level error").
func (p *Pool) Spawn(task func(ctx context.Context) error) error {
	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		return err
	}
	p.group.Go(func() error {
		defer p.sem.Release(1)
		return task(p.ctx)
	})
	return nil
}

// Wait blocks until every spawned task has returned, yielding the first
// non-nil error (if any).
func (p *Pool) Wait() error {
	return p.group.Wait()
}

// Context is the pool's cancellation context, cancelled either by the
// parent passed to NewPool or by the first failing task.
func (p *Pool) Context() context.Context {
	return p.ctx
}
