// Package pool wraps sync.Pool with type safety for the buffers the
// server reuses across requests.
package pool

import "sync"

// Pool is a generic sync.Pool wrapper that provides type safety and
// convenience methods.
type Pool[T any] struct {
	pool sync.Pool
}

// New creates a new Pool with the given factory function.
// The factory function is called when the pool needs to create a new item.
func New[T any](factory func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() interface{} {
				return factory()
			},
		},
	}
}

// Get retrieves an item from the pool, or creates a new one if the pool is empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns an item to the pool.
func (p *Pool[T]) Put(x T) {
	p.pool.Put(x)
}

// Bytes is a pool of byte slices with a fixed size.
// Slices come back with length equal to their size so readers can fill
// them directly.
type Bytes struct {
	pool sync.Pool
}

// NewBytes creates a byte-slice pool whose members have size bytes.
func NewBytes(size int) *Bytes {
	return &Bytes{
		pool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get retrieves a buffer from the pool.
func (p *Bytes) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

// Put returns a buffer to the pool.
func (p *Bytes) Put(b []byte) {
	p.pool.Put(&b)
}
