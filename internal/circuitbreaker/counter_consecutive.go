package circuitbreaker

import "sync/atomic"

// ConsecutiveCounter fires CloseToOpen once a contiguous run of failures
// reaches the configured ErrorCount, and resets on any success. Firing is
// idempotent: the tripped bit guards against a duplicate signal before
// Resume rearms it.
type ConsecutiveCounter struct {
	ruleName   string
	errorCount uint64
	handler    TriggerHandler

	streak  int64
	tripped int32
}

// NewConsecutiveCounter builds a ConsecutiveCounter for the given trigger
// condition, bound to ruleName and reporting to handler.
func NewConsecutiveCounter(ruleName string, tc TriggerCondition, handler TriggerHandler) *ConsecutiveCounter {
	return &ConsecutiveCounter{
		ruleName:   ruleName,
		errorCount: tc.ErrorCount,
		handler:    handler,
	}
}

// Report records one sample. On failure it atomically increments the
// streak; when the streak reaches ErrorCount it fires the handler exactly
// once (guarded by the tripped bit) and resets the streak. On success it
// resets the streak to zero.
func (c *ConsecutiveCounter) Report(success bool) {
	if success {
		atomic.StoreInt64(&c.streak, 0)
		return
	}
	streak := atomic.AddInt64(&c.streak, 1)
	if uint64(streak) < c.errorCount {
		return
	}
	atomic.StoreInt64(&c.streak, 0)
	if atomic.CompareAndSwapInt32(&c.tripped, 0, 1) {
		c.handler.CloseToOpen(c.ruleName, streak)
	}
}

// Resume resets the streak and clears the tripped bit, re-arming the
// counter for the next closed-state evaluation window.
func (c *ConsecutiveCounter) Resume() {
	atomic.StoreInt64(&c.streak, 0)
	atomic.StoreInt32(&c.tripped, 0)
}
