package circuitbreaker

import "sync/atomic"

// Status is the circuit breaker state machine's current state.
type Status int32

const (
	Closed Status = iota
	Open
	HalfOpen
)

func (s Status) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNDEFINED"
	}
}

// halfOpenState is the extra, independently-mutable bookkeeping a
// CircuitBreakerStatus carries while in HalfOpen: the remaining admission
// tokens and the debounce bit guarding the 1-second conversion check.
// These fields mutate in place without replacing the CircuitBreakerStatus
// pointer, so a concurrent report() and check() never race on which
// status snapshot they see.
type halfOpenState struct {
	maxAllowed   int32
	remaining    int32
	scheduled    int32
	successCount int32
}

// CircuitBreakerStatus is the immutable-identity snapshot a ResourceBreaker
// exposes to readers: (rule-name, status, since-timestamp, optional
// fallback). HalfOpen snapshots additionally carry admission bookkeeping.
type CircuitBreakerStatus struct {
	RuleName    string
	State       Status
	SinceMillis uint64
	Fallback    *FallbackInfo

	half *halfOpenState
}

func newClosedStatus(ruleName string, nowMillis uint64) *CircuitBreakerStatus {
	return &CircuitBreakerStatus{RuleName: ruleName, State: Closed, SinceMillis: nowMillis}
}

func newOpenStatus(ruleName string, nowMillis uint64, fallback *FallbackInfo) *CircuitBreakerStatus {
	return &CircuitBreakerStatus{RuleName: ruleName, State: Open, SinceMillis: nowMillis, Fallback: fallback}
}

func newHalfOpenStatus(ruleName string, nowMillis uint64, maxAllowed uint32) *CircuitBreakerStatus {
	return &CircuitBreakerStatus{
		RuleName:    ruleName,
		State:       HalfOpen,
		SinceMillis: nowMillis,
		half:        &halfOpenState{maxAllowed: int32(maxAllowed), remaining: int32(maxAllowed)},
	}
}

// MaxAllowedRequests returns the half-open admission budget, or 0 outside HalfOpen.
func (s *CircuitBreakerStatus) MaxAllowedRequests() int32 {
	if s.half == nil {
		return 0
	}
	return s.half.maxAllowed
}

// admit decrements the half-open admission budget and reports whether the
// request is allowed. Outside HalfOpen this is a no-op returning true.
func (s *CircuitBreakerStatus) admit() bool {
	if s.half == nil {
		return true
	}
	for {
		cur := atomic.LoadInt32(&s.half.remaining)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&s.half.remaining, cur, cur-1) {
			return true
		}
	}
}

// markScheduled flips the debounce bit exactly once; returns true for the
// caller that won the race and must actually schedule the conversion
// check, mirroring HalfOpenStatus.schedule() in the Java implementation.
func (s *CircuitBreakerStatus) markScheduled() bool {
	if s.half == nil {
		return false
	}
	return atomic.CompareAndSwapInt32(&s.half.scheduled, 0, 1)
}

// incrementHalfOpenSuccess atomically increments and returns the half-open
// consecutive-success counter. Outside HalfOpen this is a no-op returning 0.
func (s *CircuitBreakerStatus) incrementHalfOpenSuccess() int32 {
	if s.half == nil {
		return 0
	}
	return atomic.AddInt32(&s.half.successCount, 1)
}

// resetHalfOpenSuccess zeros the half-open consecutive-success counter.
func (s *CircuitBreakerStatus) resetHalfOpenSuccess() {
	if s.half == nil {
		return
	}
	atomic.StoreInt32(&s.half.successCount, 0)
}

// halfOpenSuccessCount reads the current half-open consecutive-success counter.
func (s *CircuitBreakerStatus) halfOpenSuccessCount() int32 {
	if s.half == nil {
		return 0
	}
	return atomic.LoadInt32(&s.half.successCount)
}
