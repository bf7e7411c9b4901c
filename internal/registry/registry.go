// Package registry holds the in-memory set of pending scheduled jobs and the
// timer loop that fires them. Jobs are never persisted: the reconciler
// rebuilds the registry from the store, which stays the sole source of truth.
package registry

import (
	"container/heap"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dispatcher delivers a notification payload to a recipient. Implementations
// must isolate their own failures; the registry only logs a returned error.
type Dispatcher interface {
	Deliver(recipient int64, text string) error
}

const idleWait = time.Minute

// Registry is the time-ordered set of pending jobs plus its timer loop.
// All mutating operations are safe for concurrent use; the loop itself is a
// single goroutine, so at most one Tick is ever in flight.
type Registry struct {
	mu      sync.Mutex
	pending jobHeap
	byID    map[string]*entry
	byKey   map[Key]map[string]*entry
	seq     uint64

	dispatcher Dispatcher
	logger     *logrus.Entry
	clock      func() time.Time
	grace      time.Duration

	running atomic.Bool
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a stopped Registry. clock may be nil, defaulting to time.Now;
// tests inject a fake clock for deterministic firing. grace is the lateness
// tolerance beyond which a due job is flagged as past-due before it fires.
func New(dispatcher Dispatcher, logger *logrus.Entry, grace time.Duration, clock func() time.Time) *Registry {
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		byID:       make(map[string]*entry),
		byKey:      make(map[Key]map[string]*entry),
		dispatcher: dispatcher,
		logger:     logger,
		clock:      clock,
		grace:      grace,
		wake:       make(chan struct{}, 1),
	}
}

// Insert schedules a job and returns its instance ID (assigned when empty).
func (r *Registry) Insert(job Job) string {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	r.mu.Lock()
	r.insertLocked(job)
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"kind":     job.Key.Kind,
		"owner_id": job.Key.OwnerID,
		"fire_at":  job.FireAt.Format(time.RFC3339),
	}).Debug("Job inserted")

	r.signalWake()
	return job.ID
}

func (r *Registry) insertLocked(job Job) {
	r.seq++
	e := &entry{job: job, seq: r.seq}
	heap.Push(&r.pending, e)
	r.byID[job.ID] = e
	owned, ok := r.byKey[job.Key]
	if !ok {
		owned = make(map[string]*entry)
		r.byKey[job.Key] = owned
	}
	owned[job.ID] = e
}

// CancelByOwner removes every pending job matching (kind, ownerID) and
// returns the number removed. Zero matches is a no-op, not an error.
func (r *Registry) CancelByOwner(kind Kind, ownerID int64) int {
	r.mu.Lock()
	removed := r.cancelKeyLocked(Key{Kind: kind, OwnerID: ownerID})
	r.mu.Unlock()

	if removed > 0 {
		r.logger.WithFields(logrus.Fields{
			"kind":     kind,
			"owner_id": ownerID,
			"removed":  removed,
		}).Debug("Cancelled jobs by owner")
		r.signalWake()
	}
	return removed
}

// CancelKind removes every pending job of the given kind. Used by the
// reconciler's bulk clear before a rebuild.
func (r *Registry) CancelKind(kind Kind) int {
	r.mu.Lock()
	removed := 0
	for key := range r.byKey {
		if key.Kind == kind {
			removed += r.cancelKeyLocked(key)
		}
	}
	r.mu.Unlock()

	if removed > 0 {
		r.signalWake()
	}
	return removed
}

// CancelByID removes a single job by its instance ID.
func (r *Registry) CancelByID(id string) bool {
	r.mu.Lock()
	e, ok := r.byID[id]
	if ok {
		r.dropLocked(e)
	}
	r.mu.Unlock()

	if ok {
		r.signalWake()
	}
	return ok
}

func (r *Registry) cancelKeyLocked(key Key) int {
	owned := r.byKey[key]
	removed := 0
	for _, e := range owned {
		r.dropLocked(e)
		removed++
	}
	return removed
}

// dropLocked marks an entry cancelled and detaches it from both indexes.
// The heap itself discards marked entries lazily during Tick.
func (r *Registry) dropLocked(e *entry) {
	e.removed = true
	delete(r.byID, e.job.ID)
	if owned, ok := r.byKey[e.job.Key]; ok {
		delete(owned, e.job.ID)
		if len(owned) == 0 {
			delete(r.byKey, e.job.Key)
		}
	}
}

// Tick fires every due job (fire instant ≤ now) in fire-instant order, ties
// by insertion order, and returns the fired jobs in that order. Recurring
// jobs are re-armed for their next occurrence before any delivery starts, so
// a recurring rule is never absent from the registry between fires. The next
// occurrence is computed from now, never from the missed instant: a job late
// beyond the grace window still fires exactly once, with no catch-up.
func (r *Registry) Tick(now time.Time) []Job {
	r.mu.Lock()
	var due []Job
	for r.pending.Len() > 0 {
		top := r.pending[0]
		if top.removed {
			heap.Pop(&r.pending)
			continue
		}
		if top.job.FireAt.After(now) {
			break
		}
		heap.Pop(&r.pending)
		r.dropLocked(top)
		due = append(due, top.job)
	}
	for _, job := range due {
		if job.Rule != nil {
			next := job.Rule.Next(now)
			rearmed := job
			rearmed.ID = uuid.NewString()
			rearmed.FireAt = next
			r.insertLocked(rearmed)
		}
	}
	r.mu.Unlock()

	for _, job := range due {
		logCtx := r.logger.WithFields(logrus.Fields{
			"job_id":   job.ID,
			"kind":     job.Key.Kind,
			"owner_id": job.Key.OwnerID,
		})
		if late := now.Sub(job.FireAt); late > r.grace {
			logCtx.WithField("late_by", late.String()).Warn("Firing job past its grace window")
		}
		// Each delivery runs on its own goroutine so a hung send cannot
		// stall the remaining due jobs or the timer loop.
		go func(job Job) {
			if err := r.dispatcher.Deliver(job.Recipient, job.Text); err != nil {
				logCtx.WithError(err).Error("Job delivery failed")
			}
		}(job)
	}
	return due
}

// Snapshot returns a copy of all pending jobs ordered by fire instant.
func (r *Registry) Snapshot() []Job {
	r.mu.Lock()
	jobs := make([]Job, 0, len(r.byID))
	for _, e := range r.byID {
		jobs = append(jobs, e.job)
	}
	r.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].FireAt.Before(jobs[j].FireAt) })
	return jobs
}

// Len returns the number of pending jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// IsRunning reports whether the timer loop is active.
func (r *Registry) IsRunning() bool {
	return r.running.Load()
}

// Start launches the timer loop. Starting an already-running registry is a
// logged no-op, not an error.
func (r *Registry) Start() {
	if r.running.Swap(true) {
		r.logger.Warn("Job registry already running. Ignoring duplicate start.")
		return
	}
	r.done = make(chan struct{})
	r.wg.Add(1)
	go r.run()
	r.logger.Info("Job registry started")
}

// Stop halts the timer loop and discards all pending jobs. Recovery after a
// restart is a full rebuild from the store; nothing here is the source of
// truth.
func (r *Registry) Stop() {
	if !r.running.Swap(false) {
		return
	}
	close(r.done)
	r.wg.Wait()

	r.mu.Lock()
	discarded := len(r.byID)
	r.pending = nil
	r.byID = make(map[string]*entry)
	r.byKey = make(map[Key]map[string]*entry)
	r.mu.Unlock()

	r.logger.WithField("discarded", discarded).Info("Job registry stopped, pending jobs discarded")
}

// run drives Tick, sleeping until the earliest fire instant or until a
// mutation moves it.
func (r *Registry) run() {
	defer r.wg.Done()
	for {
		wait := idleWait
		r.mu.Lock()
		if next, ok := r.nextFireLocked(); ok {
			wait = next.Sub(r.clock())
			if wait < 0 {
				wait = 0
			}
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-r.done:
			timer.Stop()
			return
		case <-r.wake:
			timer.Stop()
		case <-timer.C:
			r.Tick(r.clock())
		}
	}
}

func (r *Registry) nextFireLocked() (time.Time, bool) {
	for r.pending.Len() > 0 {
		top := r.pending[0]
		if top.removed {
			heap.Pop(&r.pending)
			continue
		}
		return top.job.FireAt, true
	}
	return time.Time{}, false
}

func (r *Registry) signalWake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}
