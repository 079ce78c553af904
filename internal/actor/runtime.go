package actor

import (
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Pool selects which cooperative executor pool an actor's handler runs on.
type Pool int

const (
	// NonBlocking is for most actors: streaming, mailbox-driven, I/O bound.
	NonBlocking Pool = iota
	// Blocking is for CPU-heavy parsing or model inference handlers that
	// must not starve the non-blocking pool.
	Blocking
)

// Runtimes is the process-wide, once-initialized pair of executor pools.
// It is exposed as a singleton-style resource: call InitializeRuntimes once
// at startup; later calls return the already-initialized runtimes and ignore
// their argument.
type Runtimes struct {
	nonBlocking *workerPool
	blocking    *workerPool
}

var (
	globalOnce sync.Once
	global     *Runtimes
)

// InitializeRuntimes sets up the process-wide pools. numThreads <= 0 picks
// max(4, NumCPU()/3), overridable by the QUERENT_RUNTIME_NUM_THREADS
// environment variable.
func InitializeRuntimes(numThreads int) *Runtimes {
	globalOnce.Do(func() {
		n := numThreads
		if n <= 0 {
			n = nonBlockingThreadCount()
		}
		global = &Runtimes{
			nonBlocking: newWorkerPool(n),
			blocking:    newWorkerPool(max(n, runtime.NumCPU())),
		}
	})
	return global
}

// Global returns the process-wide runtimes, initializing with defaults if
// InitializeRuntimes has not yet been called.
func Global() *Runtimes {
	if global == nil {
		return InitializeRuntimes(0)
	}
	return global
}

func nonBlockingThreadCount() int {
	if v := os.Getenv("QUERENT_RUNTIME_NUM_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	n := runtime.NumCPU() / 3
	if n < 4 {
		n = 4
	}
	return n
}

// Spawn schedules f on the given pool. Both pools cap how many submitted
// funcs run at once; Spawn blocks while the chosen pool is full.
func (r *Runtimes) Spawn(pool Pool, f func()) {
	switch pool {
	case Blocking:
		r.blocking.submit(f)
	default:
		r.nonBlocking.submit(f)
	}
}

// workerPool runs submitted funcs with bounded concurrency using a simple
// semaphore-gated goroutine-per-task model: submit blocks until one of the
// n slots is free, and a func holds its slot until it returns (for an actor,
// its whole lifetime).
type workerPool struct {
	sem chan struct{}
}

func newWorkerPool(n int) *workerPool {
	if n <= 0 {
		n = 1
	}
	return &workerPool{sem: make(chan struct{}, n)}
}

func (p *workerPool) submit(f func()) {
	p.sem <- struct{}{}
	go func() {
		defer func() { <-p.sem }()
		f()
	}()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
