// Package recordpool pools AckRecord-shaped allocations to avoid a heap
// allocation on every request_bookmark call, generalizing the teacher's
// size-bucketed byte-buffer pool to a single fixed-shape record pool.
package recordpool

import "sync"

// Pool hands out pointers to T, resetting each value before reuse.
// Uses the *T pattern (rather than boxing T in an `any`) to match the
// teacher's sync.Pool idiom and avoid an extra allocation per Get/Put.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)
}

// New creates a pool of *T. reset, if non-nil, is invoked on a value
// immediately before it is returned to the pool so a future Get never
// observes stale fields.
func New[T any](reset func(*T)) *Pool[T] {
	return &Pool[T]{
		pool:  sync.Pool{New: func() any { return new(T) }},
		reset: reset,
	}
}

// Get returns a zero-valued or reset T from the pool.
func (p *Pool[T]) Get() *T {
	return p.pool.Get().(*T)
}

// Put resets v (if a reset func was supplied) and returns it to the pool.
func (p *Pool[T]) Put(v *T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.pool.Put(v)
}
