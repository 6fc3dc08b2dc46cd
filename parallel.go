package imgprep

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var maxProcs int64

// SetMaxProcs limits the number of goroutines a stage uses for row work.
// Zero or less means GOMAXPROCS.
func SetMaxProcs(n int) {
	atomic.StoreInt64(&maxProcs, int64(n))
}

// parallel hands the rows [start, stop) out to worker goroutines.
func parallel(start, stop int, fn func(<-chan int)) {
	count := stop - start
	if count < 1 {
		return
	}

	procs := runtime.GOMAXPROCS(0)
	if limit := int(atomic.LoadInt64(&maxProcs)); limit > 0 && procs > limit {
		procs = limit
	}
	if procs > count {
		procs = count
	}

	c := make(chan int, count)
	for i := start; i < stop; i++ {
		c <- i
	}
	close(c)

	var wg sync.WaitGroup
	for range procs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(c)
		}()
	}
	wg.Wait()
}

// clamp rounds and clamps x to fit into uint8.
func clamp(x float64) uint8 {
	v := int64(x + 0.5)
	if v > 255 {
		return 255
	}
	if v > 0 {
		return uint8(v)
	}
	return 0
}
