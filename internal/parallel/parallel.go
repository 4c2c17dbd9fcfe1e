// Package parallel distributes bulk pixel work across goroutines.
//
// The scheduling is a trimmed-down work-stealing scheme: indices are
// handed out in small grabs from a shared atomic cursor, so fast workers
// naturally take over the share of slow ones without per-worker queues.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// grabSize is the number of consecutive indices a worker claims at once.
// Small enough to balance uneven rows, large enough to amortize the
// atomic increment.
const grabSize = 16

// Workers returns the effective worker count for a requested value.
// Zero or negative requests resolve to GOMAXPROCS.
func Workers(requested int) int {
	if requested <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return requested
}

// ForEach runs fn(i) for every i in [0, n) across the given number of
// workers and blocks until all calls have returned. With a single
// effective worker or tiny n it degrades to a plain loop on the calling
// goroutine.
func ForEach(n, workers int, fn func(i int)) {
	workers = Workers(workers)
	if workers == 1 || n <= grabSize {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	if workers > n/grabSize+1 {
		workers = n/grabSize + 1
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				start := int(cursor.Add(grabSize)) - grabSize
				if start >= n {
					return
				}
				end := start + grabSize
				if end > n {
					end = n
				}
				for i := start; i < end; i++ {
					fn(i)
				}
			}
		}()
	}
	wg.Wait()
}

// ForEachErr is ForEach for work that can fail. The first error wins;
// remaining work still runs to completion so workers never leak.
func ForEachErr(n, workers int, fn func(i int) error) error {
	var mu sync.Mutex
	var firstErr error
	ForEach(n, workers, func(i int) {
		if err := fn(i); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	})
	return firstErr
}
