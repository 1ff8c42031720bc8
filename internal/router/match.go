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
	"regexp"
	"strconv"
	"strings"

	"github.com/polarismesh/go-mesh-guard/internal/cache"
	"github.com/polarismesh/go-mesh-guard/internal/logging"
)

var matchRegexCache, _ = cache.New(512)

func compileMatchRegex(pattern string) *regexp.Regexp {
	v := matchRegexCache.GetOrCompute(pattern, func() interface{} {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logging.Error(err, "[RuleMatcher] failed to compile REGEX match pattern, treating as non-match", "pattern", pattern)
			return (*regexp.Regexp)(nil)
		}
		return re
	})
	re, _ := v.(*regexp.Regexp)
	return re
}

// resolveValue substitutes a $var MatchString against globals and
// actualLabels, preferring globals — globals carry deployment-wide
// constants while actualLabels vary per call.
func resolveValue(m MatchString, actualLabels, globals map[string]string) string {
	if !m.IsVariable {
		return m.Value
	}
	name := m.Value[1:]
	if v, ok := globals[name]; ok {
		return v
	}
	if v, ok := actualLabels[name]; ok {
		return v
	}
	return ""
}

func matchOne(operator MatchOperator, expected, actual string, actualPresent bool) bool {
	if !actualPresent {
		return expected == "*"
	}
	switch operator {
	case OpExact:
		return actual == expected
	case OpNotEquals:
		return actual != expected
	case OpRegex:
		re := compileMatchRegex(expected)
		if re == nil {
			return false
		}
		return re.MatchString(actual)
	case OpIn:
		for _, v := range strings.Split(expected, ",") {
			if v == actual {
				return true
			}
		}
		return false
	case OpNotIn:
		for _, v := range strings.Split(expected, ",") {
			if v == actual {
				return false
			}
		}
		return true
	case OpRange:
		return matchRange(expected, actual)
	default:
		return false
	}
}

func matchRange(expected, actual string) bool {
	parts := strings.SplitN(expected, "~", 2)
	if len(parts) != 2 {
		return false
	}
	min, err1 := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	max, err2 := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err1 != nil || err2 != nil {
		logging.Warn("[RuleMatcher] invalid RANGE operand, treating as non-match", "operand", expected)
		return false
	}
	v, err := strconv.ParseInt(actual, 10, 64)
	if err != nil {
		return false
	}
	return v >= min && v <= max
}

// MatchMetadata evaluates ruleLabels against actualLabels. sourceSide
// marks whether this call is matching a source clause (vs. a destination
// clause): only on the source side does a match on envKey get recorded
// into envOut for downstream multi-env routing. All clauses AND
// together; an empty ruleLabels map matches trivially.
func MatchMetadata(ruleLabels map[string]MatchString, actualLabels map[string]string, sourceSide bool, envKey string, envOut map[string]string, globals map[string]string) bool {
	for key, m := range ruleLabels {
		expected := resolveValue(m, actualLabels, globals)
		actual, present := actualLabels[key]

		if sourceSide && envOut != nil && key == envKey && present {
			envOut[envKey] = actual
		}

		if !matchOne(m.Operator, expected, actual, present) {
			return false
		}
	}
	return true
}
