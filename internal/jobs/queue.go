package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/metrics"
	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrNotFound is returned for unknown job IDs
	ErrNotFound = errors.New("job not found")
)

const (
	// DefaultMaxPending bounds the number of jobs waiting for the worker.
	DefaultMaxPending = 16

	// DefaultRetain is how many finished jobs are remembered.
	DefaultRetain = 64

	subscriberBuffer = 16
)

// Stats tracks queue activity.
type Stats struct {
	TotalSubmitted int64
	TotalDone      int64
	TotalFailed    int64
	TotalCanceled  int64
	TotalRejected  int64
	Pending        int
	PeakPending    int
}

type entry struct {
	job    Job
	task   Task
	ctx    context.Context
	cancel context.CancelFunc
	subs   []chan Update
}

// Queue executes submitted tasks on a single worker goroutine in FIFO
// order, so synthesis never runs concurrently.
type Queue struct {
	mu       sync.RWMutex
	jobs     map[string]*entry
	finished []string
	retain   int

	pending chan *entry
	closed  bool
	stats   Stats

	baseCtx    context.Context
	cancelBase context.CancelFunc
	done       chan struct{}
}

// New starts a queue holding at most maxPending waiting jobs.
func New(maxPending int) *Queue {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:       make(map[string]*entry),
		retain:     DefaultRetain,
		pending:    make(chan *entry, maxPending),
		baseCtx:    ctx,
		cancelBase: cancel,
		done:       make(chan struct{}),
	}
	go q.work()
	return q
}

// Submit queues task and returns its initial snapshot.
func (q *Queue) Submit(task Task) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Job{}, ErrQueueClosed
	}

	ctx, cancel := context.WithCancel(q.baseCtx)
	e := &entry{
		job: Job{
			ID:      uuid.NewString(),
			State:   StateQueued,
			Message: "Waiting to start...",
			Created: time.Now(),
		},
		task:   task,
		ctx:    ctx,
		cancel: cancel,
	}

	select {
	case q.pending <- e:
	default:
		cancel()
		q.stats.TotalRejected++
		return Job{}, ErrQueueFull
	}

	q.jobs[e.job.ID] = e
	q.stats.TotalSubmitted++
	q.stats.Pending = len(q.pending)
	if q.stats.Pending > q.stats.PeakPending {
		q.stats.PeakPending = q.stats.Pending
	}
	metrics.JobQueued()
	log.Debug("job queued", "id", e.job.ID, "pending", q.stats.Pending)

	return e.job, nil
}

// Get returns the current snapshot of a job.
func (q *Queue) Get(id string) (Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	e, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

// Subscribe returns a channel receiving the job's current state followed by
// every change. The channel is closed once the job finishes or the returned
// function is called. Updates are dropped when the subscriber falls behind.
func (q *Queue) Subscribe(id string) (<-chan Update, func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.jobs[id]
	if !ok {
		return nil, nil, ErrNotFound
	}

	ch := make(chan Update, subscriberBuffer)
	ch <- e.job.update()
	if e.job.State.Terminal() {
		close(ch)
		return ch, func() {}, nil
	}

	e.subs = append(e.subs, ch)
	unsubscribe := func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		for i, s := range e.subs {
			if s == ch {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe, nil
}

// Cancel stops a queued or running job. Canceling a finished job is a
// no-op.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.jobs[id]
	if !ok {
		return ErrNotFound
	}
	e.cancel()

	// A queued job is finished right away; the worker skips it later.
	if e.job.State == StateQueued {
		q.finishLocked(e, StateCanceled, "Canceled", "")
	}
	return nil
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := q.stats
	stats.Pending = len(q.pending)
	return stats
}

// Close cancels every job, waits for the worker to stop and rejects
// further submissions.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.cancelBase()
	close(q.pending)
	q.mu.Unlock()

	<-q.done
	return nil
}

func (q *Queue) work() {
	defer close(q.done)
	for e := range q.pending {
		q.run(e)
	}
}

func (q *Queue) run(e *entry) {
	q.mu.Lock()
	if e.job.State != StateQueued {
		q.mu.Unlock()
		return
	}
	if e.ctx.Err() != nil {
		q.finishLocked(e, StateCanceled, "Canceled", "")
		q.mu.Unlock()
		return
	}
	e.job.State = StateRunning
	e.job.Started = time.Now()
	e.job.Message = "Starting..."
	q.publishLocked(e)
	q.mu.Unlock()

	log.Info("job started", "id", e.job.ID)

	report := func(fraction float64, message string) {
		q.mu.Lock()
		defer q.mu.Unlock()
		if e.job.State != StateRunning {
			return
		}
		e.job.Progress = fraction
		e.job.Message = message
		q.publishLocked(e)
	}

	result, err := e.task(e.ctx, report)

	q.mu.Lock()
	defer q.mu.Unlock()

	e.job.Files = result.Files
	e.job.Complete = result.Complete
	switch {
	case e.ctx.Err() != nil:
		q.finishLocked(e, StateCanceled, "Canceled", "")
	case err != nil:
		log.Error("job failed", "id", e.job.ID, "err", err)
		q.finishLocked(e, StateFailed, "Failed", err.Error())
	default:
		e.job.Progress = 1
		q.finishLocked(e, StateDone, "Done", "")
	}
	e.cancel()
}

// finishLocked moves e to a terminal state, notifies and releases its
// subscribers and forgets the oldest finished jobs beyond the retention
// limit.
func (q *Queue) finishLocked(e *entry, state State, message, errText string) {
	e.job.State = state
	e.job.Message = message
	e.job.Err = errText
	e.job.Finished = time.Now()
	q.publishLocked(e)
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil

	switch state {
	case StateDone:
		q.stats.TotalDone++
	case StateFailed:
		q.stats.TotalFailed++
	case StateCanceled:
		q.stats.TotalCanceled++
	}
	metrics.JobFinished(string(state))
	log.Info("job finished", "id", e.job.ID, "state", state, "files", len(e.job.Files))

	q.finished = append(q.finished, e.job.ID)
	for len(q.finished) > q.retain {
		delete(q.jobs, q.finished[0])
		q.finished = q.finished[1:]
	}
}

func (q *Queue) publishLocked(e *entry) {
	u := e.job.update()
	for _, ch := range e.subs {
		select {
		case ch <- u:
		default:
			// Subscriber is behind, drop the update
		}
	}
}
