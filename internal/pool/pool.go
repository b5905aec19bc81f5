// Package pool provides typed object pooling for argtree parsing.
// The mode driver borrows token slices from it for speculative matching.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a generic, type-safe wrapper around sync.Pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)
	gets  atomic.Int64
	puts  atomic.Int64
}

// NewPool creates a pool that builds new objects with factory.
func NewPool[T any](factory func() *T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return factory()
			},
		},
	}
}

// NewPoolWithReset creates a pool whose objects are reset before reuse.
func NewPoolWithReset[T any](factory func() *T, reset func(*T)) *Pool[T] {
	p := NewPool(factory)
	p.reset = reset
	return p
}

// Get retrieves an object from the pool or creates a new one.
func (p *Pool[T]) Get() *T {
	obj := p.pool.Get().(*T)
	if p.reset != nil {
		p.reset(obj)
	}
	p.gets.Add(1)
	return obj
}

// Put returns obj to the pool.
func (p *Pool[T]) Put(obj *T) {
	if obj == nil {
		return
	}
	p.puts.Add(1)
	p.pool.Put(obj)
}

// Outstanding reports how many objects were taken and not returned.
func (p *Pool[T]) Outstanding() int64 {
	return p.gets.Load() - p.puts.Load()
}

// SlicePool pools slices of E, truncated to zero length on reuse.
type SlicePool[E any] struct {
	*Pool[[]E]
	maxCap int
}

// NewSlicePool creates a slice pool. Slices that grew beyond maxCap are
// dropped on Put instead of being retained.
func NewSlicePool[E any](defaultCap, maxCap int) *SlicePool[E] {
	return &SlicePool[E]{
		Pool: NewPoolWithReset(
			func() *[]E {
				s := make([]E, 0, defaultCap)
				return &s
			},
			func(s *[]E) {
				clear(*s)
				*s = (*s)[:0]
			},
		),
		maxCap: maxCap,
	}
}

// Put returns s to the pool unless it outgrew the retention limit.
func (sp *SlicePool[E]) Put(s *[]E) {
	if s == nil {
		return
	}
	if sp.maxCap > 0 && cap(*s) > sp.maxCap {
		// still counted so Outstanding stays balanced
		sp.Pool.puts.Add(1)
		return
	}
	sp.Pool.Put(s)
}
