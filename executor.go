package kilat

import (
	"runtime"

	"github.com/panjf2000/ants/v2"
)

// Executor is the bounded worker set that runs connection jobs. It
// wraps an ants pool: a fixed number of workers fed from a shared
// queue. Submit blocks while every worker is busy; Shutdown closes the
// queue and the workers exit.
type Executor struct {
	pool *ants.Pool
}

// NewExecutor creates an executor with the given number of workers.
// A size of zero or less selects DefaultThreadCount.
func NewExecutor(size int) (*Executor, error) {
	if size <= 0 {
		size = DefaultThreadCount()
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Executor{pool: p}, nil
}

// Submit queues task for a worker.
func (e *Executor) Submit(task func()) error {
	return e.pool.Submit(task)
}

// Workers returns the worker capacity.
func (e *Executor) Workers() int {
	return e.pool.Cap()
}

// Shutdown stops accepting tasks and releases the workers; running
// tasks finish.
func (e *Executor) Shutdown() {
	e.pool.Release()
}

// DefaultThreadCount derives the worker count from the hardware: twice
// the available parallelism, with a floor of 10.
func DefaultThreadCount() int {
	if n := runtime.NumCPU() * 2; n > 10 {
		return n
	}
	return 10
}
