package circuitbreaker

import (
	"sync"
	"time"

	"github.com/polarismesh/go-mesh-guard/internal/scheduler"
)

// fakeClock is a manually-advanced clock.Clock implementation, letting
// tests control the "now" the breaker reads without real sleeps.
type fakeClock struct {
	mu     sync.Mutex
	millis uint64
}

func newFakeClock() *fakeClock {
	return &fakeClock{millis: 1000}
}

func (c *fakeClock) NowMillis() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.millis
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.millis += uint64(d.Milliseconds())
}

// fakeScheduler captures scheduled tasks instead of running them on a
// timer, letting tests fire them deterministically.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

type fakeTask struct {
	delay     time.Duration
	fn        func()
	cancelled bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{}
}

func (s *fakeScheduler) ScheduleOnce(delay time.Duration, task func()) scheduler.Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTask{delay: delay, fn: task}
	s.tasks = append(s.tasks, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
	}
}

// FireAll runs every task that has not been cancelled, in scheduling
// order, then clears the queue.
func (s *fakeScheduler) FireAll() {
	s.mu.Lock()
	pending := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	for _, t := range pending {
		if !t.cancelled {
			t.fn()
		}
	}
}

// Pending reports how many tasks are queued and not cancelled.
func (s *fakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}
