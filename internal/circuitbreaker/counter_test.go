package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	mu    sync.Mutex
	calls int
	last  interface{}
}

func (h *recordingHandler) CloseToOpen(ruleName string, snapshot interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	h.last = snapshot
}

func (h *recordingHandler) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// Invariant 2: N successive failures beyond the threshold still fire
// CloseToOpen exactly once, regardless of how many extra failures land
// before Resume().
func TestConsecutiveCounter_IdempotentTrip(t *testing.T) {
	h := &recordingHandler{}
	c := NewConsecutiveCounter("r1", TriggerCondition{ErrorCount: 3}, h)

	for i := 0; i < 10; i++ {
		c.Report(false)
	}
	assert.Equal(t, 1, h.Calls())

	c.Resume()
	c.Report(false)
	c.Report(false)
	c.Report(false)
	assert.Equal(t, 2, h.Calls())
}

func TestConsecutiveCounter_SuccessResetsStreak(t *testing.T) {
	h := &recordingHandler{}
	c := NewConsecutiveCounter("r1", TriggerCondition{ErrorCount: 3}, h)

	c.Report(false)
	c.Report(false)
	c.Report(true)
	c.Report(false)
	c.Report(false)
	assert.Equal(t, 0, h.Calls())
}

func TestConsecutiveCounter_ConcurrentReportsFireOnce(t *testing.T) {
	h := &recordingHandler{}
	c := NewConsecutiveCounter("r1", TriggerCondition{ErrorCount: 50}, h)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Report(false)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, h.Calls())
}

// S3: error-rate threshold — once the failure ratio over the trailing
// interval reaches 50% with at least 10 samples observed, the counter
// trips. Each report lands in its own second so every arrival re-runs
// the once-per-second evaluation deterministically.
func TestErrRateCounter_S3ErrorRateThreshold(t *testing.T) {
	h := &recordingHandler{}
	clk := newFakeClock()
	c := NewErrRateCounter("r1", TriggerCondition{
		IntervalSeconds: 20,
		MinimumSamples:  10,
		ErrorPercent:    50,
	}, h, clk)

	for i := 0; i < 5; i++ {
		c.Report(true)
		clk.Advance(time.Second)
	}
	for i := 0; i < 6; i++ {
		c.Report(false)
		clk.Advance(time.Second)
	}
	assert.Equal(t, 1, h.Calls())
}

func TestErrRateCounter_BelowMinimumSamplesNeverTrips(t *testing.T) {
	h := &recordingHandler{}
	clk := newFakeClock()
	c := NewErrRateCounter("r1", TriggerCondition{
		IntervalSeconds: 10,
		MinimumSamples:  10,
		ErrorPercent:    50,
	}, h, clk)

	for i := 0; i < 4; i++ {
		c.Report(false)
	}
	assert.Equal(t, 0, h.Calls())
}

// Invariant 3: error-rate correctness over a trailing window — samples
// outside the interval are excluded from the ratio.
func TestErrRateCounter_WindowExcludesStaleSeconds(t *testing.T) {
	h := &recordingHandler{}
	clk := newFakeClock()
	c := NewErrRateCounter("r1", TriggerCondition{
		IntervalSeconds: 2,
		MinimumSamples:  2,
		ErrorPercent:    50,
	}, h, clk)

	c.Report(false)         // second 1
	clk.Advance(3 * time.Second) // well past the 2s interval
	for i := 0; i < 3; i++ {
		c.Report(true) // should not trip: the earlier failure fell out of the window
	}
	assert.Equal(t, 0, h.Calls())
}

func TestErrRateCounter_ResumeClearsState(t *testing.T) {
	h := &recordingHandler{}
	clk := newFakeClock()
	c := NewErrRateCounter("r1", TriggerCondition{
		IntervalSeconds: 10,
		MinimumSamples:  1,
		ErrorPercent:    50,
	}, h, clk)

	c.Report(false)
	c.Report(false)
	assert.Equal(t, 1, h.Calls())

	c.Resume()
	c.Report(false)
	c.Report(false)
	assert.Equal(t, 2, h.Calls())
}
