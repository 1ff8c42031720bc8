package circuitbreaker

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/polarismesh/go-mesh-guard/internal/cache"
	"github.com/polarismesh/go-mesh-guard/internal/logging"
)

// regexCache compiles each distinct RET_CODE pattern once, bounded so a
// rule source feeding it unbounded distinct patterns can't leak memory. A
// compile failure means the clause never matches; the failure is logged
// once per distinct pattern and never poisons report().
var regexCache, _ = cache.New(512)

func compileRegex(pattern string) *regexp.Regexp {
	v := regexCache.GetOrCompute(pattern, func() interface{} {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logging.Error(err, "[CircuitBreaker] failed to compile RET_CODE match pattern, treating as non-match", "pattern", pattern)
			return (*regexp.Regexp)(nil)
		}
		return re
	})
	re, _ := v.(*regexp.Regexp)
	return re
}

func parseDelayOperand(operand string) (int64, error) {
	v, err := strconv.ParseInt(operand, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "DELAY operand %q is not numeric", operand)
	}
	return v, nil
}

// classify maps a ResourceStat to a boolean success: explicit
// Success/Fail win outright; Unknown consults the ordered error
// conditions and ORs their matches.
func classify(conditions []ErrorCondition, status RetStatus, retCode int32, delayMs uint64) bool {
	switch status {
	case RetSuccess:
		return true
	case RetFail:
		return false
	}

	for _, ec := range conditions {
		switch ec.InputType {
		case InputRetCode:
			re := compileRegex(ec.Operand)
			if re == nil {
				continue
			}
			if re.MatchString(strconv.FormatInt(int64(retCode), 10)) {
				return false
			}
		case InputDelay:
			operand, err := parseDelayOperand(ec.Operand)
			if err != nil {
				logging.Error(err, "[CircuitBreaker] invalid DELAY error condition, skipping clause")
				continue
			}
			if int64(delayMs) >= operand {
				return false
			}
		}
	}
	return true
}
