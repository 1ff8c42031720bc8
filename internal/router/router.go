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

package router

import (
	"math/rand"

	"github.com/polarismesh/go-mesh-guard/internal/circuitbreaker"
	"github.com/polarismesh/go-mesh-guard/internal/resource"
)

// BreakerChecker is the narrow slice of BreakerRegistry the router
// consults: whether a subset is currently admitting traffic.
type BreakerChecker interface {
	Check(res resource.Resource) circuitbreaker.CheckResult
}

// RuleRouter evaluates inbound then outbound rule sets against a
// candidate instance list, consulting a BreakerChecker to exclude
// destinations whose subset is currently tripped. Constructed with
// explicit injection — no package-level singleton — so callers wire
// their own BreakerRegistry and tests pass stubs.
type RuleRouter struct {
	breaker        BreakerChecker
	envKey         string
	globals        map[string]string
	defaultFailover FailoverPolicy
}

// NewRuleRouter builds a RuleRouter bound to breaker for subset admission
// checks, with envKey/globals/defaultFailover sourced from config.
func NewRuleRouter(breaker BreakerChecker, envKey string, globals map[string]string, defaultFailover FailoverPolicy) *RuleRouter {
	if globals == nil {
		globals = map[string]string{}
	}
	return &RuleRouter{breaker: breaker, envKey: envKey, globals: globals, defaultFailover: defaultFailover}
}

// Route is the top-level entrypoint: inbound rules run first, then
// outbound, then failover. The router always returns Next; Terminate is
// reserved for future pipeline stages.
func (r *RuleRouter) Route(info *RouteInfo, instances ServiceInstances) RouteResult {
	if r.disabled(info) {
		return RouteResult{Instances: instances.Instances, State: Next}
	}

	inboundOutcome := outcomeNoRules
	if len(info.Inbounds) > 0 {
		out, outcome := r.evaluateRules(info.Inbounds, info, instances, true)
		if outcome == outcomeSuccess {
			return RouteResult{Instances: out, State: Next}
		}
		inboundOutcome = outcome
	}

	// An inbound rule whose source matched but whose destinations all
	// filtered out (e.g. all isolated, or none matching an instance) goes
	// straight to failover; outbound rules never get a chance to override
	// a source-matched inbound rule's verdict.
	if inboundOutcome != outcomeDestRuleFail && len(info.Outbounds) > 0 {
		out, outcome := r.evaluateRules(info.Outbounds, info, instances, false)
		if outcome == outcomeSuccess {
			return RouteResult{Instances: out, State: Next}
		}
	}

	return r.failover(info, instances)
}

// disabled reports the three conditions under which the router is
// bypassed entirely for this call.
func (r *RuleRouter) disabled(info *RouteInfo) bool {
	if info.SourceService == "" {
		return true
	}
	if info.RouterEnabled != nil && !*info.RouterEnabled {
		return true
	}
	if len(info.Inbounds) == 0 && len(info.Outbounds) == 0 {
		return true
	}
	return false
}

func (r *RuleRouter) failover(info *RouteInfo, instances ServiceInstances) RouteResult {
	policy := r.defaultFailover
	if info.FailoverOverride != nil {
		policy = *info.FailoverOverride
	}
	if policy == FailoverAll {
		return RouteResult{Instances: instances.Instances, State: Next}
	}
	return RouteResult{Instances: nil, State: Next}
}

// evaluateRules walks routes in order, returning the first route's
// selected instances along with outcomeSuccess, or an outcome describing
// why every route was exhausted without a selection.
func (r *RuleRouter) evaluateRules(routes []Route, info *RouteInfo, instances ServiceInstances, inbound bool) ([]Instance, routeOutcome) {
	anySourceMatched := false

	for _, route := range routes {
		if !r.matchSource(route.Sources, info, inbound) {
			continue
		}
		anySourceMatched = true

		buckets := r.buildBuckets(route.Destinations, info, instances, inbound)
		if len(buckets) == 0 {
			continue
		}

		selected := selectSmallestPriority(buckets)
		out := r.pickSubset(selected, info)
		if out != nil {
			return out, outcomeSuccess
		}
	}

	if anySourceMatched {
		if inbound {
			return nil, outcomeDestRuleFail
		}
		return nil, outcomeSourceRuleFail
	}
	return nil, outcomeSourceRuleFail
}

// matchSource reports whether any of clauses matches the call's source
// side. Inbound rules additionally require the (namespace, service)
// identity to match (wildcard-aware); outbound rules skip that check.
// An empty clause list matches trivially.
func (r *RuleRouter) matchSource(clauses []Source, info *RouteInfo, inbound bool) bool {
	if len(clauses) == 0 {
		return true
	}
	for _, src := range clauses {
		if inbound {
			if !wildcardEquals(src.Namespace, info.SourceNamespace) || !wildcardEquals(src.Service, info.SourceService) {
				continue
			}
		}
		if info.ResolvedEnv == nil {
			info.ResolvedEnv = make(map[string]string)
		}
		if MatchMetadata(src.Metadata, info.TrafficLabels, true, r.envKey, info.ResolvedEnv, r.globals) {
			return true
		}
	}
	return false
}

func wildcardEquals(pattern, actual string) bool {
	return pattern == "*" || pattern == actual
}

// buildBuckets filters and buckets route's destinations by priority.
func (r *RuleRouter) buildBuckets(destinations []Destination, info *RouteInfo, instances ServiceInstances, inbound bool) map[int]*PrioritySubsets {
	filtered := r.filterDestinations(destinations, info, inbound)

	buckets := make(map[int]*PrioritySubsets)
	for _, dest := range filtered {
		matched := filterInstancesByMetadata(instances.Instances, dest.Metadata, r.globals)
		if len(matched) == 0 {
			continue
		}
		b, ok := buckets[dest.Priority]
		if !ok {
			b = &PrioritySubsets{Priority: dest.Priority}
			buckets[dest.Priority] = b
		}
		b.Subsets = append(b.Subsets, WeightedSubset{
			SubsetName: dest.SubsetName,
			Metadata:   flattenMetadata(dest.Metadata),
			Weight:     dest.Weight,
			Instances:  matched,
		})
		b.TotalWeight += dest.Weight
	}
	return buckets
}

// filterDestinations drops isolated destinations, destinations with
// weight 0, those not matching the intended dest service on outbound
// rules, and those whose named subset is tripped by the circuit breaker —
// unless every named destination is tripped, in which case the broken
// set is retained so failover has something to degrade onto.
func (r *RuleRouter) filterDestinations(destinations []Destination, info *RouteInfo, inbound bool) []Destination {
	candidates := make([]Destination, 0, len(destinations))
	for _, dest := range destinations {
		if dest.Isolate {
			continue
		}
		if dest.Weight <= 0 {
			continue
		}
		if !inbound {
			if !wildcardEquals(dest.Namespace, info.DestNamespace) || !wildcardEquals(dest.Service, info.DestService) {
				continue
			}
		}
		candidates = append(candidates, dest)
	}

	named := make([]Destination, 0, len(candidates))
	unnamed := make([]Destination, 0, len(candidates))
	for _, dest := range candidates {
		if dest.SubsetName == "" {
			unnamed = append(unnamed, dest)
		} else {
			named = append(named, dest)
		}
	}

	healthy := make([]Destination, 0, len(named))
	for _, dest := range named {
		res := resource.SubsetResource{
			NamespaceV:      dest.Namespace,
			ServiceV:        dest.Service,
			SubsetName:      dest.SubsetName,
			SubsetMetadataV: flattenMetadata(dest.Metadata),
		}
		if r.breaker.Check(res).Pass {
			healthy = append(healthy, dest)
		}
	}

	result := append([]Destination{}, unnamed...)
	if len(named) > 0 && len(healthy) == 0 {
		// All named destinations are broken: retain the broken set.
		result = append(result, named...)
	} else {
		result = append(result, healthy...)
	}
	return result
}

func filterInstancesByMetadata(instances []Instance, metadata map[string]MatchString, globals map[string]string) []Instance {
	out := make([]Instance, 0, len(instances))
	for _, inst := range instances {
		if MatchMetadata(metadata, inst.Metadata, false, "", nil, globals) {
			out = append(out, inst)
		}
	}
	return out
}

func flattenMetadata(m map[string]MatchString) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.Value
	}
	return out
}

func selectSmallestPriority(buckets map[int]*PrioritySubsets) *PrioritySubsets {
	var selected *PrioritySubsets
	for _, b := range buckets {
		if selected == nil || b.Priority < selected.Priority {
			selected = b
		}
	}
	return selected
}

// pickSubset returns the instances of s's single subset, or draws a
// weighted-random subset when there are several, recording the draw
// back into info for caller-side tracing.
func (r *RuleRouter) pickSubset(s *PrioritySubsets, info *RouteInfo) []Instance {
	if s == nil || len(s.Subsets) == 0 {
		return nil
	}
	if len(s.Subsets) == 1 {
		sub := s.Subsets[0]
		info.SelectedSubsetName = sub.SubsetName
		info.SelectedMetadata = sub.Metadata
		return sub.Instances
	}

	draw := rand.Intn(s.TotalWeight)
	for _, sub := range s.Subsets {
		draw -= sub.Weight
		if draw < 0 {
			info.SelectedSubsetName = sub.SubsetName
			info.SelectedMetadata = sub.Metadata
			return sub.Instances
		}
	}
	last := s.Subsets[len(s.Subsets)-1]
	info.SelectedSubsetName = last.SubsetName
	info.SelectedMetadata = last.Metadata
	return last.Instances
}
