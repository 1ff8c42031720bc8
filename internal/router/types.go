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

// MatchOperator is the comparison operator of a metadata match expression.
type MatchOperator int32

const (
	OpExact MatchOperator = iota
	OpRegex
	OpNotEquals
	OpIn
	OpNotIn
	OpRange
)

// MatchString is one labeled match expression: an operator plus operand,
// with optional `$var` substitution of the operand at evaluation time.
type MatchString struct {
	Operator MatchOperator
	Value    string
	// IsVariable distinguishes a literal operand from a $var reference;
	// it is true when Value has a leading '$'.
	IsVariable bool
}

func NewMatchString(operator MatchOperator, value string) MatchString {
	isVar := len(value) > 1 && value[0] == '$'
	return MatchString{Operator: operator, Value: value, IsVariable: isVar}
}

// Source is a route's caller-side match clause.
type Source struct {
	Namespace string // "*" wildcards
	Service   string // "*" wildcards
	Metadata  map[string]MatchString
}

// Destination is a route's callee-side match clause.
type Destination struct {
	Namespace  string
	Service    string
	SubsetName string
	Metadata   map[string]MatchString
	Priority   int
	Weight     int
	Isolate    bool
}

// Route pairs a list of source clauses with a list of destination clauses.
type Route struct {
	Sources      []Source
	Destinations []Destination
}

// WeightedSubset is one named, metadata-filtered group of instances inside
// a PrioritySubsets bucket.
type WeightedSubset struct {
	SubsetName string
	Metadata   map[string]string
	Weight     int
	Instances  []Instance
}

// PrioritySubsets is the weighted-subset bucket for a single priority level.
type PrioritySubsets struct {
	Priority    int
	Subsets     []WeightedSubset
	TotalWeight int
}

// RouteState is the router's pipeline continuation signal.
type RouteState int32

const (
	// Next means the caller should proceed using Instances.
	Next RouteState = iota
	// Terminate is reserved for future pipeline stages; never produced.
	Terminate
)

// FailoverPolicy controls behavior when no route produces instances.
type FailoverPolicy int32

const (
	FailoverNone FailoverPolicy = iota
	FailoverAll
)

// Instance is a single routable service instance.
type Instance struct {
	Host     string
	Port     uint32
	Metadata map[string]string
	Healthy  bool
}

// ServiceInstances is the candidate instance set a route call filters.
type ServiceInstances struct {
	Namespace string
	Service   string
	Instances []Instance
}

// RouteInfo describes one routing call: the source/dest identities, the
// traffic labels carried by the call, the inbound/outbound rule
// snapshots to evaluate, and any per-call overrides.
type RouteInfo struct {
	SourceNamespace string
	SourceService   string
	DestNamespace   string
	DestService     string

	TrafficLabels map[string]string

	Inbounds  []Route
	Outbounds []Route

	// FailoverOverride, when non-nil, takes precedence over the
	// configured default failover policy for this call.
	FailoverOverride *FailoverPolicy

	// RouterEnabled, when non-nil and false, disables the router for
	// this call outright (a `router.enabled=false` per-call override).
	RouterEnabled *bool

	// SelectedSubsetName/Metadata are populated by Route() with the
	// destination subset a rule selected (the only one, or the weighted
	// draw's pick), for the caller to propagate into tracing/logging.
	SelectedSubsetName string
	SelectedMetadata   map[string]string

	// ResolvedEnv accumulates the env-key value recorded off a matching
	// source clause, for downstream multi-env routing.
	ResolvedEnv map[string]string
}

// RouteResult is the outcome of a Route() call.
type RouteResult struct {
	Instances []Instance
	State     RouteState
}

// routeOutcome records why evaluateRules produced what it produced, used
// internally to decide whether to proceed to failover.
type routeOutcome int32

const (
	outcomeSuccess routeOutcome = iota
	outcomeDestRuleFail
	outcomeSourceRuleFail
	outcomeNoRules
)
