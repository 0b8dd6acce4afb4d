package mail

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/campushub/notifier/internal/observability/logger"
)

// Job is one logical send request. Immutable once enqueued.
type Job struct {
	ID         uuid.UUID
	Recipients []string
	Subject    string
	HTMLBody   string
	TextBody   string
	// Callback, if set, receives the dispatch result on the worker
	// goroutine. Callback panics are contained.
	Callback func(Result)
}

// stopJoinTimeout bounds how long Stop waits for workers to drain.
const stopJoinTimeout = 2 * time.Second

// Queue is a bounded FIFO of send jobs consumed by a fixed worker pool.
// Put blocks when the queue is full (backpressure; nothing is dropped).
// A nil job is the sentinel that makes a worker exit.
type Queue struct {
	mu      sync.Mutex
	jobs    chan *Job
	workers int
	handler func(*Job)
	running bool
	group   *errgroup.Group
}

// NewQueue creates a stopped queue. handler runs every claimed job.
func NewQueue(workers, capacity int, handler func(*Job)) *Queue {
	return &Queue{
		jobs:    make(chan *Job, capacity),
		workers: workers,
		handler: handler,
	}
}

// Start launches the worker pool. Idempotent.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.startLocked()
}

func (q *Queue) startLocked() {
	if q.running {
		return
	}
	q.running = true
	q.group = &errgroup.Group{}
	for i := 0; i < q.workers; i++ {
		q.group.Go(q.workerLoop)
	}
	logger.L().Info("mail queue started",
		logger.Component("Queue"),
		logger.Int("workers", q.workers),
		logger.Int("capacity", cap(q.jobs)),
	)
}

// Put enqueues a job, starting the pool on first use. Blocks while the
// queue is full.
func (q *Queue) Put(job *Job) {
	q.mu.Lock()
	if !q.running {
		q.startLocked()
	}
	q.mu.Unlock()

	q.jobs <- job
}

// Stop pushes one sentinel per worker and joins them with a bounded
// timeout. In-flight jobs run to completion. Idempotent; safe to call
// when not running.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}

	for i := 0; i < q.workers; i++ {
		q.jobs <- nil
	}

	done := make(chan struct{})
	go func(g *errgroup.Group) {
		_ = g.Wait()
		close(done)
	}(q.group)

	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		logger.L().Warn("mail queue workers did not drain in time",
			logger.Component("Queue"),
		)
	}

	q.group = nil
	q.running = false
	logger.L().Info("mail queue stopped", logger.Component("Queue"))
}

// Depth reports how many jobs are waiting.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

func (q *Queue) workerLoop() error {
	for job := range q.jobs {
		if job == nil {
			return nil
		}
		q.runJob(job)
	}
	return nil
}

// runJob isolates one job: a panicking handler or callback is logged and
// never takes the worker down.
func (q *Queue) runJob(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("mail job panicked",
				logger.Component("Queue"),
				logger.JobID(job.ID.String()),
				logger.Any("panic", r),
			)
		}
	}()
	q.handler(job)
}
