// Copyright 1999-2020 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/polarismesh/go-mesh-guard/internal/clock"
	"github.com/polarismesh/go-mesh-guard/internal/logging"
	"github.com/polarismesh/go-mesh-guard/internal/resource"
	"github.com/polarismesh/go-mesh-guard/internal/scheduler"
)

// CheckResult is the answer to a breaker admission query.
type CheckResult struct {
	Pass     bool
	RuleName string
	Fallback *FallbackInfo
	Status   *CircuitBreakerStatus
}

// ResourceBreaker is the per-resource circuit-breaker state machine. It
// owns its trigger counters and a scheduled transition timer,
// and serializes the four named transitions on a single mutex while
// exposing its status through a lock-free atomic pointer for readers.
type ResourceBreaker struct {
	res      resource.Resource
	rule     *Rule
	fallback *FallbackInfo
	counters []TriggerCounter

	sched scheduler.Scheduler
	clk   clock.Clock

	status atomic.Pointer[CircuitBreakerStatus]

	mu            sync.Mutex // serializes the four named transitions
	pendingCancel scheduler.Cancel
}

// NewResourceBreaker builds a ResourceBreaker bound to res and rule,
// starting Closed, with a TriggerCounter instantiated per TriggerCondition.
func NewResourceBreaker(res resource.Resource, rule *Rule, sched scheduler.Scheduler, clk clock.Clock) *ResourceBreaker {
	b := &ResourceBreaker{
		res:      res,
		rule:     rule,
		fallback: buildFallbackInfo(rule.Level, rule.Fallback),
		sched:    sched,
		clk:      clk,
	}
	b.status.Store(newClosedStatus(rule.Name, clk.NowMillis()))
	b.counters = make([]TriggerCounter, 0, len(rule.TriggerConditions))
	for _, tc := range rule.TriggerConditions {
		switch tc.Kind {
		case TriggerConsecutiveError:
			b.counters = append(b.counters, NewConsecutiveCounter(rule.Name, tc, b))
		case TriggerErrorRate:
			b.counters = append(b.counters, NewErrRateCounter(rule.Name, tc, b, clk))
		}
	}
	return b
}

// Resource returns the bound resource identity.
func (b *ResourceBreaker) Resource() resource.Resource { return b.res }

// Rule returns the bound circuit breaking rule.
func (b *ResourceBreaker) Rule() *Rule { return b.rule }

// CurrentStatus returns the current status snapshot via a lock-free atomic load.
func (b *ResourceBreaker) CurrentStatus() *CircuitBreakerStatus {
	return b.status.Load()
}

func (b *ResourceBreaker) sleepWindow() time.Duration {
	return time.Duration(b.rule.RecoverCondition.SleepWindowSeconds) * time.Second
}

// Report classifies sample to a boolean success/failure and dispatches it
// per the current state.
func (b *ResourceBreaker) Report(sample ResourceStat) {
	success := classify(b.rule.ErrorConditions, sample.Status, sample.RetCode, sample.DelayMillis)
	st := b.CurrentStatus()

	switch st.State {
	case HalfOpen:
		if success {
			count := st.incrementHalfOpenSuccess()
			if uint32(count) >= b.rule.RecoverCondition.ConsecutiveSuccessCount {
				b.scheduleHalfOpenConversion(st)
			}
		} else {
			st.resetHalfOpenSuccess()
			b.scheduleHalfOpenConversion(st)
		}
	case Closed:
		for _, c := range b.counters {
			c.Report(success)
		}
	case Open:
		// ignore: open rejects traffic, nothing to learn from it.
	}
}

// Check answers an admission query for this breaker. If the breaker is
// Open and the sleep window has already elapsed — the scheduled
// openToHalfOpen timer may have been dropped by a scheduler hiccup —
// Check forces the probing transition itself before answering.
func (b *ResourceBreaker) Check() CheckResult {
	st := b.CurrentStatus()
	if st.State == Open && b.clk.NowMillis()-st.SinceMillis >= uint64(b.sleepWindow().Milliseconds()) {
		b.openToHalfOpenIfDue()
		st = b.CurrentStatus()
	}

	switch st.State {
	case Open:
		return CheckResult{Pass: false, RuleName: b.rule.Name, Fallback: st.Fallback, Status: st}
	case HalfOpen:
		return CheckResult{Pass: st.admit(), RuleName: b.rule.Name, Status: st}
	default:
		return CheckResult{Pass: true, RuleName: b.rule.Name, Status: st}
	}
}

// CloseToOpen implements TriggerHandler: the single-shot signal a
// TriggerCounter fires once its threshold is crossed.
func (b *ResourceBreaker) CloseToOpen(ruleName string, snapshot interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CurrentStatus().State != Closed {
		return
	}
	b.transitionToOpenLocked(snapshot)
}

// transitionToOpenLocked installs an Open status and schedules the
// openToHalfOpen wakeup. Caller must hold b.mu.
func (b *ResourceBreaker) transitionToOpenLocked(snapshot interface{}) {
	prev := b.CurrentStatus()
	now := b.clk.NowMillis()
	newStatus := newOpenStatus(b.rule.Name, now, b.fallback)
	b.status.Store(newStatus)

	if b.pendingCancel != nil {
		b.pendingCancel()
	}
	b.pendingCancel = b.sched.ScheduleOnce(b.sleepWindow(), b.openToHalfOpenTimerFired)

	logging.Info("[CircuitBreaker] transition to OPEN", "resource", b.res.Key(), "rule", b.rule.Name,
		"prevState", prev.State.String(), "snapshot", snapshot)
}

// openToHalfOpenTimerFired is the scheduled callback invoked once the
// sleep window elapses after the transition to Open.
func (b *ResourceBreaker) openToHalfOpenTimerFired() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openToHalfOpenLocked()
}

// openToHalfOpenIfDue is the forced-probe path Check() takes when the
// sleep window has elapsed without the scheduled timer having fired yet.
func (b *ResourceBreaker) openToHalfOpenIfDue() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openToHalfOpenLocked()
}

// openToHalfOpenLocked is a no-op unless the breaker is currently Open.
// Caller must hold b.mu.
func (b *ResourceBreaker) openToHalfOpenLocked() {
	if b.CurrentStatus().State != Open {
		return
	}
	now := b.clk.NowMillis()
	newStatus := newHalfOpenStatus(b.rule.Name, now, b.rule.RecoverCondition.ConsecutiveSuccessCount)
	b.status.Store(newStatus)
	logging.Info("[CircuitBreaker] transition to HALF_OPEN", "resource", b.res.Key(), "rule", b.rule.Name)
}

// scheduleHalfOpenConversion debounces bursts of half-open probes into a
// single conversion decision one second later, driven by the final
// counter value at fire time. The timer is tracked in pendingCancel so
// shutdown can cancel it.
func (b *ResourceBreaker) scheduleHalfOpenConversion(st *CircuitBreakerStatus) {
	if !st.markScheduled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CurrentStatus() != st {
		return
	}
	if b.pendingCancel != nil {
		b.pendingCancel()
	}
	b.pendingCancel = b.sched.ScheduleOnce(time.Second, func() {
		b.checkHalfOpenConversion(st)
	})
}

// checkHalfOpenConversion runs the debounced conversion decision. If the
// breaker has since moved on from the half-open snapshot the timer was
// scheduled against, it is a no-op.
func (b *ResourceBreaker) checkHalfOpenConversion(expected *CircuitBreakerStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CurrentStatus() != expected {
		return
	}
	if expected.halfOpenSuccessCount() >= int32(b.rule.RecoverCondition.ConsecutiveSuccessCount) {
		b.halfOpenToCloseLocked()
	} else {
		b.halfOpenToOpenLocked(expected.halfOpenSuccessCount())
	}
}

// halfOpenToCloseLocked installs Closed and resumes every trigger counter.
// Caller must hold b.mu.
func (b *ResourceBreaker) halfOpenToCloseLocked() {
	if b.CurrentStatus().State != HalfOpen {
		return
	}
	now := b.clk.NowMillis()
	b.status.Store(newClosedStatus(b.rule.Name, now))
	for _, c := range b.counters {
		c.Resume()
	}
	logging.Info("[CircuitBreaker] transition to CLOSED", "resource", b.res.Key(), "rule", b.rule.Name)
}

// halfOpenToOpenLocked re-opens the breaker. Caller must hold b.mu.
func (b *ResourceBreaker) halfOpenToOpenLocked(snapshot interface{}) {
	if b.CurrentStatus().State != HalfOpen {
		return
	}
	b.transitionToOpenLocked(snapshot)
}

// shutdown cancels any outstanding scheduled transition timer, used when
// the breaker is replaced wholesale by a rule upgrade.
func (b *ResourceBreaker) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingCancel != nil {
		b.pendingCancel()
		b.pendingCancel = nil
	}
}
