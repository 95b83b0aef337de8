package archive

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner executes a submitted job, or records why it never ran.
type Runner interface {
	Build(ctx context.Context, jobID string) error
	Abort(ctx context.Context, jobID, reason string)
}

// Queue feeds backup jobs to a fixed pool of workers. Submission never
// blocks the caller: when the buffer is full the job is marked failed
// instead of queued.
type Queue struct {
	jobs    chan string
	workers int
	logger  zerolog.Logger

	runner Runner
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewQueue(workers, capacity int, logger zerolog.Logger) *Queue {
	return &Queue{
		jobs:    make(chan string, capacity),
		workers: workers,
		logger:  logger.With().Str("component", "backup-queue").Logger(),
	}
}

// Start launches the worker pool. Must be called exactly once, before any
// Submit.
func (q *Queue) Start(runner Runner) {
	q.runner = runner
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.logger.Info().Int("workers", q.workers).Int("capacity", cap(q.jobs)).Msg("backup queue started")
}

// Submit enqueues a job for archive assembly. If the queue is shut down or
// full, the job is marked failed so it never sits in pending forever.
func (q *Queue) Submit(jobID string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.runner.Abort(context.Background(), jobID, "backup queue shut down")
		return
	}
	select {
	case q.jobs <- jobID:
		q.mu.Unlock()
		queueDepth.Inc()
	default:
		q.mu.Unlock()
		queueRejected.Inc()
		q.logger.Warn().Str("backup", jobID).Msg("backup queue full, rejecting job")
		q.runner.Abort(context.Background(), jobID, "backup queue full")
	}
}

// Close stops accepting jobs and waits up to grace for in-flight and queued
// work to drain.
func (q *Queue) Close(grace time.Duration) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info().Msg("backup queue drained")
	case <-time.After(grace):
		q.logger.Warn().Dur("grace", grace).Msg("backup queue shutdown grace expired")
	}
}

// work runs jobs with a background context. A build in flight survives the
// request that triggered it; jobs cut short by process death are failed at
// next startup.
func (q *Queue) work() {
	defer q.wg.Done()
	for jobID := range q.jobs {
		queueDepth.Dec()
		if err := q.runner.Build(context.Background(), jobID); err != nil {
			q.logger.Error().Err(err).Str("backup", jobID).Msg("backup build failed")
		}
	}
}
