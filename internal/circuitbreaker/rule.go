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
	"fmt"

	"github.com/pkg/errors"
)

// Level is the granularity a CircuitBreakerRule is bound to.
type Level int32

const (
	LevelService Level = iota
	LevelMethod
	LevelInstance
	LevelSubset
)

func (l Level) String() string {
	switch l {
	case LevelService:
		return "SERVICE"
	case LevelMethod:
		return "METHOD"
	case LevelInstance:
		return "INSTANCE"
	case LevelSubset:
		return "SUBSET"
	default:
		return "UNDEFINED"
	}
}

// TriggerKind is the trigger-condition evaluation strategy.
type TriggerKind int32

const (
	TriggerErrorRate TriggerKind = iota
	TriggerConsecutiveError
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerErrorRate:
		return "ERROR_RATE"
	case TriggerConsecutiveError:
		return "CONSECUTIVE_ERROR"
	default:
		return "UNDEFINED"
	}
}

// TriggerCondition configures a single TriggerCounter instance bound to a rule.
type TriggerCondition struct {
	Kind TriggerKind
	// IntervalSeconds is the statistic window, used by ERROR_RATE.
	IntervalSeconds uint32
	// MinimumSamples gates ERROR_RATE evaluation below this sample count.
	MinimumSamples uint64
	// ErrorPercent is the ERROR_RATE threshold (0-100).
	ErrorPercent float64
	// ErrorCount is the CONSECUTIVE_ERROR threshold.
	ErrorCount uint64
}

// InputKind selects which field of a ResourceStat an ErrorCondition inspects.
type InputKind int32

const (
	InputRetCode InputKind = iota
	InputDelay
)

// MatchOperator is the comparison operator of an ErrorCondition's match expression.
type MatchOperator int32

const (
	OpRegex MatchOperator = iota
	OpGTE
)

// ErrorCondition classifies a ResourceStat with Unknown return-status as a
// failure when its match expression holds.
type ErrorCondition struct {
	InputType InputKind
	Operator  MatchOperator
	// Operand is the regex pattern (RET_CODE) or the numeric threshold
	// string (DELAY, compared with >=).
	Operand string
}

// RecoverCondition configures Open -> Half-Open -> Closed recovery timing.
type RecoverCondition struct {
	SleepWindowSeconds      uint32
	ConsecutiveSuccessCount uint32
}

// FallbackResponseHeader is a single header entry of a FallbackConfig response.
type FallbackResponseHeader struct {
	Key   string
	Value string
}

// FallbackConfig describes the canned response served while a resource is
// tripped, if enabled.
type FallbackConfig struct {
	Enable  bool
	Code    int32
	Headers []FallbackResponseHeader
	Body    string
}

// FallbackInfo is the immutable snapshot of a FallbackConfig's response,
// captured at rule-load time and attached to CircuitBreakerStatus.
type FallbackInfo struct {
	Code    int32
	Headers map[string]string
	Body    string
}

func buildFallbackInfo(level Level, fb *FallbackConfig) *FallbackInfo {
	if fb == nil || !fb.Enable {
		return nil
	}
	if level != LevelService && level != LevelMethod {
		return nil
	}
	headers := make(map[string]string, len(fb.Headers))
	for _, h := range fb.Headers {
		headers[h.Key] = h.Value
	}
	return &FallbackInfo{Code: fb.Code, Headers: headers, Body: fb.Body}
}

// Rule is the immutable circuit breaking configuration bound to a resource.
type Rule struct {
	Name              string
	Level             Level
	TriggerConditions []TriggerCondition
	ErrorConditions   []ErrorCondition
	RecoverCondition  RecoverCondition
	Fallback          *FallbackConfig
}

func (r *Rule) String() string {
	return fmt.Sprintf("Rule{name=%s, level=%s, triggers=%d, sleepWindow=%ds}",
		r.Name, r.Level, len(r.TriggerConditions), r.RecoverCondition.SleepWindowSeconds)
}

// IsValidRule reports whether r's shape is well-formed. An invalid rule is
// skipped by the registry, never applied in place of a valid one, and
// never poisons sibling rules.
func IsValidRule(r *Rule) error {
	if r == nil {
		return errors.New("nil rule")
	}
	if len(r.Name) == 0 {
		return errors.New("empty rule name")
	}
	if r.RecoverCondition.SleepWindowSeconds == 0 {
		return errors.New("invalid RecoverCondition.SleepWindowSeconds")
	}
	if r.RecoverCondition.ConsecutiveSuccessCount == 0 {
		return errors.New("invalid RecoverCondition.ConsecutiveSuccessCount")
	}
	if len(r.TriggerConditions) == 0 {
		return errors.New("rule has no trigger conditions")
	}
	for i, tc := range r.TriggerConditions {
		switch tc.Kind {
		case TriggerErrorRate:
			if tc.IntervalSeconds == 0 {
				return errors.Errorf("trigger[%d]: invalid IntervalSeconds", i)
			}
			if tc.ErrorPercent < 0 || tc.ErrorPercent > 100 {
				return errors.Errorf("trigger[%d]: invalid ErrorPercent (valid range [0,100])", i)
			}
		case TriggerConsecutiveError:
			if tc.ErrorCount == 0 {
				return errors.Errorf("trigger[%d]: invalid ErrorCount", i)
			}
		default:
			return errors.Errorf("trigger[%d]: unsupported trigger kind %v", i, tc.Kind)
		}
	}
	for i, ec := range r.ErrorConditions {
		if ec.InputType == InputDelay {
			if _, err := parseDelayOperand(ec.Operand); err != nil {
				return errors.Wrapf(err, "errorCondition[%d]: non-numeric DELAY operand", i)
			}
		}
	}
	return nil
}
