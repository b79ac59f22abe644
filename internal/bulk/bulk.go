// Package bulk runs a batch of indexed work items on a bounded worker pool.
package bulk

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

// Operation represents a bulk operation configuration
type Operation struct {
	Jobs            int
	ContinueOnError bool
	Ordered         bool
	// Log receives one line per processed item when set.
	Log io.Writer
}

// Result represents the result of a bulk operation
type Result struct {
	TotalItems int
	Succeeded  int
	Failed     int
	Skipped    int
	Errors     []ItemError
}

// ItemError represents an error for a specific item
type ItemError struct {
	Index int
	Item  string
	Error error
}

// ItemFunc is the function to execute for each item
type ItemFunc func(ctx context.Context, index int) error

// Execute runs fn once per label. Labels name the items in logs and errors.
// Items not started because of an earlier failure or a cancelled context are
// counted as skipped.
func (op *Operation) Execute(ctx context.Context, labels []string, fn ItemFunc) *Result {
	if len(labels) == 0 {
		return &Result{}
	}

	// Auto-detect CPU count if jobs == 0
	jobs := op.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > len(labels) {
		jobs = len(labels)
	}

	// Force sequential if ordered or jobs == 1
	if op.Ordered || jobs == 1 {
		return op.executeSequential(ctx, labels, fn)
	}
	return op.executeParallel(ctx, labels, fn, jobs)
}

// executeSequential processes items one by one
func (op *Operation) executeSequential(ctx context.Context, labels []string, fn ItemFunc) *Result {
	result := &Result{TotalItems: len(labels)}

	for i, label := range labels {
		if ctx.Err() != nil {
			result.Skipped = len(labels) - i
			break
		}

		if err := fn(ctx, i); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Index: i, Item: label, Error: err})
			op.logf("%s: error: %v\n", label, err)
			if !op.ContinueOnError {
				result.Skipped = len(labels) - i - 1
				break
			}
			continue
		}
		result.Succeeded++
		op.logf("%s: success\n", label)
	}

	return result
}

// executeParallel processes items in parallel using a worker pool
func (op *Operation) executeParallel(ctx context.Context, labels []string, fn ItemFunc, workers int) *Result {
	result := &Result{TotalItems: len(labels)}

	workQueue := make(chan int, len(labels))
	for i := range labels {
		workQueue <- i
	}
	close(workQueue)

	var (
		succeeded  int32
		failed     int32
		skipped    int32
		errorsMux  sync.Mutex
		stopSignal int32 // 0 = continue, 1 = stop
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := range workQueue {
				if ctx.Err() != nil || atomic.LoadInt32(&stopSignal) == 1 {
					atomic.AddInt32(&skipped, 1)
					continue
				}

				err := fn(ctx, i)
				if err != nil {
					atomic.AddInt32(&failed, 1)
					errorsMux.Lock()
					result.Errors = append(result.Errors, ItemError{Index: i, Item: labels[i], Error: err})
					errorsMux.Unlock()

					if !op.ContinueOnError {
						atomic.StoreInt32(&stopSignal, 1)
					}
					op.logf("%s: error: %v\n", labels[i], err)
				} else {
					atomic.AddInt32(&succeeded, 1)
					op.logf("%s: success\n", labels[i])
				}
			}
		}()
	}

	wg.Wait()

	sort.Slice(result.Errors, func(a, b int) bool {
		return result.Errors[a].Index < result.Errors[b].Index
	})
	result.Succeeded = int(succeeded)
	result.Failed = int(failed)
	result.Skipped = int(skipped)

	return result
}

var logMu sync.Mutex

func (op *Operation) logf(format string, args ...any) {
	if op.Log == nil {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	fmt.Fprintf(op.Log, format, args...)
}

// ExitCode returns the appropriate exit code for the result
func (r *Result) ExitCode() int {
	if r.Failed == 0 && r.Skipped == 0 {
		return 0 // All succeeded
	}
	if r.Succeeded > 0 {
		return 5 // Partial success
	}
	return 1 // All failed
}

// PrintSummary prints a human-readable summary of the result
func (r *Result) PrintSummary(w io.Writer) {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		fmt.Fprintf(w, "\n✓ All %d operations succeeded\n", r.TotalItems)
	case r.Succeeded == 0:
		fmt.Fprintf(w, "\n✗ All %d operations failed\n", r.TotalItems)
	default:
		fmt.Fprintf(w, "\n⚠ Partial success: %d succeeded, %d failed (out of %d)\n",
			r.Succeeded, r.Failed, r.TotalItems)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "  %d operations skipped\n", r.Skipped)
	}

	if len(r.Errors) > 0 && len(r.Errors) <= 10 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	} else if len(r.Errors) > 10 {
		fmt.Fprintf(w, "\nShowing first 10 errors (of %d):\n", len(r.Errors))
		for _, e := range r.Errors[:10] {
			fmt.Fprintf(w, "  %s: %v\n", e.Item, e.Error)
		}
	}
}
