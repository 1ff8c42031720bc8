package circuitbreaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRule() *Rule {
	return &Rule{
		Name:  "valid",
		Level: LevelService,
		TriggerConditions: []TriggerCondition{
			{Kind: TriggerConsecutiveError, ErrorCount: 3},
		},
		RecoverCondition: RecoverCondition{SleepWindowSeconds: 10, ConsecutiveSuccessCount: 3},
	}
}

func TestIsValidRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rule)
		wantErr bool
	}{
		{"valid rule", func(r *Rule) {}, false},
		{"nil rule", nil, true},
		{"empty name", func(r *Rule) { r.Name = "" }, true},
		{"zero sleep window", func(r *Rule) { r.RecoverCondition.SleepWindowSeconds = 0 }, true},
		{"zero consecutive success", func(r *Rule) { r.RecoverCondition.ConsecutiveSuccessCount = 0 }, true},
		{"no trigger conditions", func(r *Rule) { r.TriggerConditions = nil }, true},
		{"error rate with zero interval", func(r *Rule) {
			r.TriggerConditions = []TriggerCondition{{Kind: TriggerErrorRate, IntervalSeconds: 0, ErrorPercent: 50}}
		}, true},
		{"error rate with out-of-range percent", func(r *Rule) {
			r.TriggerConditions = []TriggerCondition{{Kind: TriggerErrorRate, IntervalSeconds: 10, ErrorPercent: 150}}
		}, true},
		{"consecutive error with zero count", func(r *Rule) {
			r.TriggerConditions = []TriggerCondition{{Kind: TriggerConsecutiveError, ErrorCount: 0}}
		}, true},
		{"non-numeric delay operand", func(r *Rule) {
			r.ErrorConditions = []ErrorCondition{{InputType: InputDelay, Operand: "not-a-number"}}
		}, true},
		{"numeric delay operand", func(r *Rule) {
			r.ErrorConditions = []ErrorCondition{{InputType: InputDelay, Operand: "500"}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "nil rule" {
				assert.Error(t, IsValidRule(nil))
				return
			}
			r := validRule()
			tt.mutate(r)
			err := IsValidRule(r)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildFallbackInfo(t *testing.T) {
	cfg := &FallbackConfig{
		Enable: true,
		Code:   503,
		Headers: []FallbackResponseHeader{
			{Key: "X-Reason", Value: "circuit-open"},
		},
		Body: "unavailable",
	}

	assert.NotNil(t, buildFallbackInfo(LevelService, cfg))
	assert.NotNil(t, buildFallbackInfo(LevelMethod, cfg))
	assert.Nil(t, buildFallbackInfo(LevelSubset, cfg))
	assert.Nil(t, buildFallbackInfo(LevelInstance, cfg))
	assert.Nil(t, buildFallbackInfo(LevelService, nil))
	assert.Nil(t, buildFallbackInfo(LevelService, &FallbackConfig{Enable: false}))

	info := buildFallbackInfo(LevelService, cfg)
	assert.Equal(t, int32(503), info.Code)
	assert.Equal(t, "circuit-open", info.Headers["X-Reason"])
}
