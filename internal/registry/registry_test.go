package registry

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// captureDispatcher records deliveries; Tick dispatches on goroutines, so
// assertions on captured state go through Eventually.
type captureDispatcher struct {
	mu        sync.Mutex
	delivered []string
}

func (d *captureDispatcher) Deliver(recipient int64, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, fmt.Sprintf("%d:%s", recipient, text))
	return nil
}

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

// fixedIntervalRule re-arms a recurring job a fixed duration after each fire.
type fixedIntervalRule time.Duration

func (r fixedIntervalRule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(r))
}

func newTestRegistry(d Dispatcher) *Registry {
	return New(d, testLogger(), time.Hour, nil)
}

func TestTickFiresDueJobsInOrder(t *testing.T) {
	dispatcher := &captureDispatcher{}
	reg := newTestRegistry(dispatcher)

	t0 := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	reg.Insert(Job{Key: Key{KindFeeding, 2}, FireAt: t0.Add(2 * time.Minute), Recipient: 1, Text: "second"})
	reg.Insert(Job{Key: Key{KindFeeding, 1}, FireAt: t0.Add(1 * time.Minute), Recipient: 1, Text: "first"})

	require.Empty(t, reg.Tick(t0), "nothing is due yet")

	fired := reg.Tick(t0.Add(2 * time.Minute))
	require.Len(t, fired, 2)
	assert.Equal(t, "first", fired[0].Text)
	assert.Equal(t, "second", fired[1].Text)
	assert.Equal(t, 0, reg.Len(), "one-shot jobs leave the registry after firing")

	assert.Eventually(t, func() bool { return dispatcher.count() == 2 },
		time.Second, 10*time.Millisecond)
}

func TestTickTiesBrokenByInsertionOrder(t *testing.T) {
	reg := newTestRegistry(&captureDispatcher{})

	at := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	reg.Insert(Job{Key: Key{KindFeeding, 1}, FireAt: at, Text: "a"})
	reg.Insert(Job{Key: Key{KindFeeding, 2}, FireAt: at, Text: "b"})
	reg.Insert(Job{Key: Key{KindFeeding, 3}, FireAt: at, Text: "c"})

	fired := reg.Tick(at)
	require.Len(t, fired, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{fired[0].Text, fired[1].Text, fired[2].Text})
}

func TestCancelByOwner(t *testing.T) {
	dispatcher := &captureDispatcher{}
	reg := newTestRegistry(dispatcher)

	at := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	reg.Insert(Job{Key: Key{KindFeeding, 7}, FireAt: at, Text: "cancelled"})
	reg.Insert(Job{Key: Key{KindFeeding, 7}, FireAt: at.Add(time.Hour), Text: "cancelled too"})
	reg.Insert(Job{Key: Key{KindVaccination, 7}, FireAt: at, Text: "other kind survives"})

	assert.Equal(t, 2, reg.CancelByOwner(KindFeeding, 7))
	assert.Equal(t, 0, reg.CancelByOwner(KindFeeding, 7), "cancelling again is a no-op")

	fired := reg.Tick(at.Add(2 * time.Hour))
	require.Len(t, fired, 1)
	assert.Equal(t, "other kind survives", fired[0].Text)
}

func TestCancelByID(t *testing.T) {
	reg := newTestRegistry(&captureDispatcher{})

	at := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	id := reg.Insert(Job{Key: Key{KindVaccination, 3}, FireAt: at, Text: "anniversary"})

	assert.True(t, reg.CancelByID(id))
	assert.False(t, reg.CancelByID(id), "already removed")
	assert.Empty(t, reg.Tick(at))
}

func TestCancelKindClearsOnlyThatKind(t *testing.T) {
	reg := newTestRegistry(&captureDispatcher{})

	at := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	reg.Insert(Job{Key: Key{KindFeeding, 1}, FireAt: at})
	reg.Insert(Job{Key: Key{KindFeeding, 2}, FireAt: at})
	reg.Insert(Job{Key: Key{KindVaccination, 1}, FireAt: at})

	assert.Equal(t, 2, reg.CancelKind(KindFeeding))
	assert.Equal(t, 1, reg.Len())
}

func TestRecurringJobRearmsAfterFire(t *testing.T) {
	reg := newTestRegistry(&captureDispatcher{})

	t0 := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	reg.Insert(Job{
		Key:    Key{KindFeeding, 42},
		FireAt: t0,
		Text:   "feed",
		Rule:   fixedIntervalRule(24 * time.Hour),
	})

	fired := reg.Tick(t0)
	require.Len(t, fired, 1)

	// The rule is re-armed immediately: exactly one pending job remains,
	// scheduled for the next occurrence.
	require.Equal(t, 1, reg.Len())
	pending := reg.Snapshot()
	assert.Equal(t, Key{KindFeeding, 42}, pending[0].Key)
	assert.Equal(t, t0.Add(24*time.Hour), pending[0].FireAt)
	assert.NotEqual(t, fired[0].ID, pending[0].ID, "re-armed instance gets a fresh ID")

	fired = reg.Tick(t0.Add(24 * time.Hour))
	require.Len(t, fired, 1)
	require.Equal(t, 1, reg.Len())
}

func TestLateJobFiresOnceWithoutCatchUp(t *testing.T) {
	dispatcher := &captureDispatcher{}
	reg := newTestRegistry(dispatcher)

	t0 := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	reg.Insert(Job{
		Key:    Key{KindFeeding, 5},
		FireAt: t0,
		Text:   "feed",
		Rule:   fixedIntervalRule(24 * time.Hour),
	})

	// The process slept for three days past the fire instant: the job fires
	// exactly once and the next occurrence is computed from now, skipping the
	// missed instants.
	late := t0.Add(72 * time.Hour)
	fired := reg.Tick(late)
	require.Len(t, fired, 1)

	pending := reg.Snapshot()
	require.Len(t, pending, 1)
	assert.Equal(t, late.Add(24*time.Hour), pending[0].FireAt)

	assert.Empty(t, reg.Tick(late), "no repeat firing for the same instant")
	assert.Eventually(t, func() bool { return dispatcher.count() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestCancelledJobDoesNotFireAtOldInstant(t *testing.T) {
	dispatcher := &captureDispatcher{}
	reg := newTestRegistry(dispatcher)

	at := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	reg.Insert(Job{Key: Key{KindFeeding, 9}, FireAt: at, Text: "deleted reminder"})
	reg.CancelByOwner(KindFeeding, 9)

	assert.Empty(t, reg.Tick(at))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, dispatcher.count())
}

func TestStartIsIdempotentAndStopDiscardsPending(t *testing.T) {
	reg := newTestRegistry(&captureDispatcher{})

	reg.Start()
	reg.Start() // Duplicate start is a logged no-op.
	assert.True(t, reg.IsRunning())

	reg.Insert(Job{Key: Key{KindVaccination, 1}, FireAt: time.Now().Add(time.Hour)})
	require.Equal(t, 1, reg.Len())

	reg.Stop()
	assert.False(t, reg.IsRunning())
	assert.Equal(t, 0, reg.Len(), "pending jobs are discarded on stop")

	reg.Stop() // Stopping again is a no-op.

	// The registry is restartable; recovery is a fresh rebuild.
	reg.Start()
	assert.True(t, reg.IsRunning())
	reg.Stop()
}

func TestTimerLoopFiresDueJob(t *testing.T) {
	dispatcher := &captureDispatcher{}
	reg := New(dispatcher, testLogger(), time.Hour, nil)

	reg.Start()
	defer reg.Stop()

	reg.Insert(Job{Key: Key{KindFeeding, 1}, FireAt: time.Now().Add(20 * time.Millisecond), Recipient: 77, Text: "ping"})

	assert.Eventually(t, func() bool { return dispatcher.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}
