package utils

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// GetInParallel runs f for every index in [0, count) with at most ParallelFactor calls in flight
// and returns the results in index order. The first failure cancels the context handed to the
// calls that have not finished; all errors are combined.
func GetInParallel[T any](ctx context.Context, count int, f func(ctx context.Context, i int) (T, error)) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	var bigError error
	var bigErrorMutex sync.Mutex
	storeError := func(err error) {
		bigErrorMutex.Lock()
		defer bigErrorMutex.Unlock()
		if bigError == nil || !errors.Is(err, context.Canceled) {
			bigError = multierr.Combine(bigError, err)
		}
	}

	results := make([]T, count)
	sem := make(chan struct{}, ParallelFactor)

	helper := func(i int) {
		defer func() {
			if thePanic := recover(); thePanic != nil {
				storeError(fmt.Errorf("got panic running something in parallel: %v", thePanic))
				cancel()
			}
			<-sem
			wg.Done()
		}()
		value, err := f(ctx, i)
		if err != nil {
			storeError(err)
			cancel()
			return
		}
		results[i] = value
	}

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			storeError(ctx.Err())
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		iCopy := i
		go helper(iCopy)
	}

	wg.Wait()
	return results, bigError
}
