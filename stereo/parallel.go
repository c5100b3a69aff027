package stereo

import "sync"

// parallelRows runs fn over [0, n) split into contiguous row ranges, one per
// worker. With numWorkers <= 1 it runs fn(0, n) on the calling goroutine.
//
// Callers must make sure row ranges never write to shared memory, in which
// case the result is identical to the sequential run.
func parallelRows(n, numWorkers int, fn func(start, end int)) {
	if numWorkers <= 1 || n <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > n {
			endRow = n
		}
		if startRow >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(startRow, endRow)
	}

	wg.Wait()
}
