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

// Package api is the thin public facade wiring a BreakerRegistry and a
// RuleRouter together for callers. There is no package-level singleton:
// every caller builds and owns its own Guard.
package api

import (
	"github.com/polarismesh/go-mesh-guard/internal/circuitbreaker"
	"github.com/polarismesh/go-mesh-guard/internal/clock"
	"github.com/polarismesh/go-mesh-guard/internal/resource"
	"github.com/polarismesh/go-mesh-guard/internal/router"
	"github.com/polarismesh/go-mesh-guard/internal/scheduler"
)

// Guard bundles a BreakerRegistry and a RuleRouter bound to it.
type Guard struct {
	registry *circuitbreaker.BreakerRegistry
	router   *router.RuleRouter
}

// Options configures a new Guard.
type Options struct {
	Scheduler       scheduler.Scheduler
	Clock           clock.Clock
	EnvKey          string
	GlobalVariables map[string]string
	DefaultFailover router.FailoverPolicy
}

// NewGuard builds a Guard from opts, defaulting Scheduler/Clock to the
// real time-based implementations when left nil.
func NewGuard(opts Options) *Guard {
	sched := opts.Scheduler
	if sched == nil {
		sched = scheduler.Default
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Default
	}

	registry := circuitbreaker.NewBreakerRegistry(sched, clk)
	rr := router.NewRuleRouter(registry, opts.EnvKey, opts.GlobalVariables, opts.DefaultFailover)
	return &Guard{registry: registry, router: rr}
}

// SetRule installs or replaces the circuit breaking rule active for
// (namespace, service) at rule.Level.
func (g *Guard) SetRule(namespace, service string, rule *circuitbreaker.Rule) error {
	return g.registry.SetRule(namespace, service, rule)
}

// Report records one sample's outcome against the breaker bound to
// stat.Resource.
func (g *Guard) Report(stat circuitbreaker.ResourceStat) {
	g.registry.Report(stat)
}

// Check answers an admission query for res.
func (g *Guard) Check(res resource.Resource) circuitbreaker.CheckResult {
	return g.registry.Check(res)
}

// Route filters instances through info's rule sets and failover policy.
func (g *Guard) Route(info *router.RouteInfo, instances router.ServiceInstances) router.RouteResult {
	return g.router.Route(info, instances)
}
