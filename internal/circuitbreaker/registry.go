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

	"github.com/polarismesh/go-mesh-guard/internal/clock"
	"github.com/polarismesh/go-mesh-guard/internal/logging"
	"github.com/polarismesh/go-mesh-guard/internal/resource"
	"github.com/polarismesh/go-mesh-guard/internal/scheduler"
)

// serviceKey identifies a (namespace, service) pair in the per-level
// active-rule index.
type serviceKey struct {
	namespace string
	service   string
}

// levelRules holds the currently-active rule for each rule level bound to
// one service, keyed by Level so resolution can walk most-specific-first.
type levelRules struct {
	mu    sync.RWMutex
	byLvl map[Level]*Rule
}

func newLevelRules() *levelRules {
	return &levelRules{byLvl: make(map[Level]*Rule)}
}

func (lr *levelRules) set(rule *Rule) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.byLvl[rule.Level] = rule
}

// resolve returns the installed rule of the first level present in the
// fixed order METHOD, SERVICE, SUBSET, INSTANCE. It does not look at the
// queried resource's kind — a rule bound at a coarser level still applies
// to a finer-grained resource unless a more specific rule overrides it.
func (lr *levelRules) resolve() *Rule {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	for _, lvl := range []Level{LevelMethod, LevelService, LevelSubset, LevelInstance} {
		if r, ok := lr.byLvl[lvl]; ok {
			return r
		}
	}
	return nil
}

// BreakerRegistry maps resources to ResourceBreaker instances and routes
// reports and admission checks to them. Breakers are installed lazily on
// first report, one per (resource, rule) pair, with concurrent first
// reports for the same resource sharing a single installed breaker.
type BreakerRegistry struct {
	sched scheduler.Scheduler
	clk   clock.Clock

	breakers sync.Map // string (res.Key()) -> *breakerSlot
	services sync.Map // serviceKey -> *levelRules
}

// breakerSlot lets concurrent first-reporters race to install a breaker
// for the same resource while guaranteeing exactly one wins. res.Key() is
// the sync.Map key rather than res itself: several Resource
// implementations (SubsetResource in particular) carry a map field and
// are therefore unhashable, which would panic sync.Map's internal
// storage. b is a CAS'd pointer rather than a sync.Once result so a
// resource reported before any rule exists doesn't latch a permanent nil
// — a later SetRule still gets picked up by the next breakerFor call.
type breakerSlot struct {
	res resource.Resource
	b   atomic.Pointer[ResourceBreaker]
}

// NewBreakerRegistry builds an empty registry. sched and clk are injected
// into every breaker it constructs.
func NewBreakerRegistry(sched scheduler.Scheduler, clk clock.Clock) *BreakerRegistry {
	return &BreakerRegistry{sched: sched, clk: clk}
}

// SetRule installs or replaces the active rule for (namespace, service) at
// rule.Level. Breakers are replaced wholesale, never mutated in place:
// every existing breaker of (namespace, service) whose rule has the same
// level as the new rule is shut down and cleared, and the next report or
// check rebuilds it against the newly resolved rule. Breakers whose rule
// has a different level keep running as-is.
func (reg *BreakerRegistry) SetRule(namespace, service string, rule *Rule) error {
	if err := IsValidRule(rule); err != nil {
		logging.Warn("[BreakerRegistry] rejecting invalid rule", "namespace", namespace, "service", service, "rule", rule.Name, "error", err)
		return err
	}
	key := serviceKey{namespace: namespace, service: service}
	lrAny, _ := reg.services.LoadOrStore(key, newLevelRules())
	lr := lrAny.(*levelRules)
	lr.set(rule)

	reg.breakers.Range(func(_, v interface{}) bool {
		slot := v.(*breakerSlot)
		if slot.res.Namespace() != namespace || slot.res.Service() != service {
			return true
		}
		b := slot.b.Load()
		if b != nil && b.Rule().Level == rule.Level {
			b.shutdown()
			slot.b.CompareAndSwap(b, nil)
		}
		return true
	})
	return nil
}

func (reg *BreakerRegistry) ruleFor(res resource.Resource) *Rule {
	key := serviceKey{namespace: res.Namespace(), service: res.Service()}
	v, ok := reg.services.Load(key)
	if !ok {
		return nil
	}
	return v.(*levelRules).resolve()
}

// breakerFor lazily installs a ResourceBreaker for res against the
// currently active rule, if any, sharing the install across concurrent
// callers via a CAS on the slot's breaker pointer. Returns nil if no rule
// applies yet — the next call re-resolves rather than caching the miss,
// so a resource reported before its rule arrives still gets a breaker
// once SetRule installs one.
func (reg *BreakerRegistry) breakerFor(res resource.Resource) *ResourceBreaker {
	slotAny, _ := reg.breakers.LoadOrStore(res.Key(), &breakerSlot{res: res})
	slot := slotAny.(*breakerSlot)

	if b := slot.b.Load(); b != nil {
		return b
	}

	rule := reg.ruleFor(res)
	if rule == nil {
		return nil
	}
	candidate := NewResourceBreaker(res, rule, reg.sched, reg.clk)
	if slot.b.CompareAndSwap(nil, candidate) {
		logging.Info("[BreakerRegistry] installed breaker", "resource", res.Key(), "rule", rule.Name)
		return candidate
	}
	return slot.b.Load()
}

// Report routes one sample to the breaker bound to stat.Resource, lazily
// installing it against the active rule if this is the resource's first
// report. A resource with no applicable rule silently drops the sample.
func (reg *BreakerRegistry) Report(stat ResourceStat) {
	b := reg.breakerFor(stat.Resource)
	if b == nil {
		return
	}
	b.Report(stat)
}

// Check answers an admission query for res. A resource with no applicable
// rule always passes with no fallback.
func (reg *BreakerRegistry) Check(res resource.Resource) CheckResult {
	b := reg.breakerFor(res)
	if b == nil {
		return CheckResult{Pass: true}
	}
	return b.Check()
}

// StatusOf returns the current breaker status for res, or nil if no rule
// applies to it. Like Check, it installs the breaker on first use when a
// rule applies.
func (reg *BreakerRegistry) StatusOf(res resource.Resource) *CircuitBreakerStatus {
	b := reg.breakerFor(res)
	if b == nil {
		return nil
	}
	return b.CurrentStatus()
}
