package circuitbreaker

import (
	"sync/atomic"

	"github.com/polarismesh/go-mesh-guard/internal/clock"
)

// rateBucket is one second's worth of total/failed samples in the ring.
// second records which wall-clock second (floor) the bucket currently
// represents; a bucket whose second is stale relative to "now" is treated
// as empty by the reader without needing an explicit background sweep.
type rateBucket struct {
	second int64
	total  uint64
	failed uint64
}

// ErrRateCounter is a bucketed ring over IntervalSeconds, one bucket per
// second. It fires CloseToOpen when the failure ratio over the trailing
// interval crosses ErrorPercent, provided at least MinimumSamples were
// observed.
type ErrRateCounter struct {
	ruleName       string
	intervalSecs   int64
	minSamples     uint64
	errorPercent   float64
	handler        TriggerHandler
	clock          clock.Clock

	buckets       []rateBucket
	tripped       int32
	lastCheckSec  int64
}

// NewErrRateCounter builds an ErrRateCounter for the given trigger
// condition. cl supplies wall-clock seconds so tests can control time.
func NewErrRateCounter(ruleName string, tc TriggerCondition, handler TriggerHandler, cl clock.Clock) *ErrRateCounter {
	interval := int64(tc.IntervalSeconds)
	if interval <= 0 {
		interval = 1
	}
	return &ErrRateCounter{
		ruleName:     ruleName,
		intervalSecs: interval,
		minSamples:   tc.MinimumSamples,
		errorPercent: tc.ErrorPercent,
		handler:      handler,
		clock:        cl,
		buckets:      make([]rateBucket, interval),
		lastCheckSec: -1,
	}
}

func (c *ErrRateCounter) nowSecond() int64 {
	return int64(c.clock.NowMillis() / 1000)
}

// bucketAt returns the bucket for the given wall-clock second, zeroing it
// in place first if it currently represents a different (now necessarily
// older) second: a second boundary zeroes the entering bucket before use.
func (c *ErrRateCounter) bucketAt(sec int64) *rateBucket {
	b := &c.buckets[sec%c.intervalSecs]
	old := atomic.LoadInt64(&b.second)
	if old != sec {
		// Lost races just mean a concurrent resetter already zeroed it;
		// either way b now represents sec once the winner finishes.
		if atomic.CompareAndSwapInt64(&b.second, old, sec) {
			atomic.StoreUint64(&b.total, 0)
			atomic.StoreUint64(&b.failed, 0)
		}
	}
	return b
}

// Report records one sample. The trigger check runs at most once per
// second on sample arrival, debounced via lastCheckSec.
func (c *ErrRateCounter) Report(success bool) {
	sec := c.nowSecond()
	b := c.bucketAt(sec)
	atomic.AddUint64(&b.total, 1)
	if !success {
		atomic.AddUint64(&b.failed, 1)
	}

	if atomic.SwapInt64(&c.lastCheckSec, sec) == sec {
		return
	}
	c.evaluate(sec)
}

// evaluate sums the ring's buckets falling within the trailing interval
// and fires the handler if the threshold is met, guarded by tripped.
func (c *ErrRateCounter) evaluate(nowSec int64) {
	var total, failed uint64
	for i := range c.buckets {
		b := &c.buckets[i]
		bucketSec := atomic.LoadInt64(&b.second)
		if nowSec-bucketSec >= c.intervalSecs || bucketSec > nowSec {
			continue // stale or not-yet-written bucket, outside the window
		}
		total += atomic.LoadUint64(&b.total)
		failed += atomic.LoadUint64(&b.failed)
	}

	if total < c.minSamples {
		return
	}
	if failed*100 < total*uint64(c.errorPercent) {
		return
	}
	if atomic.CompareAndSwapInt32(&c.tripped, 0, 1) {
		ratio := float64(failed) / float64(total)
		c.handler.CloseToOpen(c.ruleName, ratio)
	}
}

// Resume zeros every bucket and clears the tripped bit.
func (c *ErrRateCounter) Resume() {
	for i := range c.buckets {
		b := &c.buckets[i]
		atomic.StoreInt64(&b.second, 0)
		atomic.StoreUint64(&b.total, 0)
		atomic.StoreUint64(&b.failed, 0)
	}
	atomic.StoreInt32(&c.tripped, 0)
	atomic.StoreInt64(&c.lastCheckSec, -1)
}
