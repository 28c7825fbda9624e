package worker

import (
	"context"
	"log/slog"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

// WorkerPool runs jobs on a fixed number of goroutines. With a single worker
// jobs are processed strictly in submission order.
type WorkerPool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	onDrop     func(T)

	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWorkerPool[T any](numWorkers int, bufferSize int, processor ProcessFunc[T]) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
		done:       make(chan struct{}),
	}
}

// OnDrop registers fn to receive jobs still queued when the pool stops.
// Must be called before Start.
func (wp *WorkerPool[T]) OnDrop(fn func(T)) {
	wp.onDrop = fn
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool[T]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				wp.drop(job)
				return
			}
			if err := wp.processor(ctx, job); err != nil {
				slog.Debug("job failed", "worker", id, "error", err)
			}
		}
	}
}

// Submit queues job. It reports false if the pool is stopped or ctx ends
// before the job could be queued.
func (wp *WorkerPool[T]) Submit(ctx context.Context, job T) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	select {
	case wp.jobs <- job:
		return true
	case <-wp.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// TrySubmit queues job only if there is room right now. It never blocks.
func (wp *WorkerPool[T]) TrySubmit(job T) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	select {
	case wp.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for the workers. Jobs left in the queue
// are handed to the OnDrop callback. Safe to call more than once.
func (wp *WorkerPool[T]) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.done)

		wp.mu.Lock()
		wp.closed = true
		close(wp.jobs)
		wp.mu.Unlock()

		wp.wg.Wait()

		for job := range wp.jobs {
			wp.drop(job)
		}
	})
}

func (wp *WorkerPool[T]) drop(job T) {
	if wp.onDrop != nil {
		wp.onDrop(job)
	}
}
