package registry

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Kind distinguishes the two job families the registry holds.
type Kind string

const (
	KindFeeding     Kind = "FEEDING"
	KindVaccination Kind = "VACCINATION"
)

// Key identifies the declarative record a job was derived from: the feeding
// schedule row for FEEDING jobs, the pet for VACCINATION jobs. The registry
// is indexed by Key so cancel-by-owner needs no scan over pending jobs.
type Key struct {
	Kind    Kind
	OwnerID int64
}

// Job is one pending scheduled notification.
type Job struct {
	// ID is the unique instance identifier. Assigned on insert when empty.
	ID string

	Key    Key
	FireAt time.Time

	// Recipient is the Telegram chat ID the payload is delivered to.
	Recipient int64
	Text      string

	// Rule regenerates the next fire instant after each firing.
	// Nil means the job is one-shot (vaccination anniversaries).
	Rule cron.Schedule
}

// entry wraps a Job on the pending heap. Cancelled entries are only marked
// and dropped lazily when they surface at the top of the heap.
type entry struct {
	job     Job
	seq     uint64
	index   int
	removed bool
}

// jobHeap orders entries by fire instant, ties broken by insertion order.
type jobHeap []*entry

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].job.FireAt.Equal(h[j].job.FireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].job.FireAt.Before(h[j].job.FireAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
