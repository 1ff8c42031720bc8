package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchMetadata(t *testing.T) {
	tests := []struct {
		name       string
		ruleLabels map[string]MatchString
		actual     map[string]string
		want       bool
	}{
		{"empty rule matches trivially", map[string]MatchString{}, map[string]string{"a": "b"}, true},
		{"exact match", map[string]MatchString{"region": NewMatchString(OpExact, "west")}, map[string]string{"region": "west"}, true},
		{"exact mismatch", map[string]MatchString{"region": NewMatchString(OpExact, "west")}, map[string]string{"region": "east"}, false},
		{"not-equals", map[string]MatchString{"region": NewMatchString(OpNotEquals, "west")}, map[string]string{"region": "east"}, true},
		{"regex match", map[string]MatchString{"version": NewMatchString(OpRegex, "^v1\\.")}, map[string]string{"version": "v1.2.3"}, true},
		{"in operator matches", map[string]MatchString{"az": NewMatchString(OpIn, "az1,az2,az3")}, map[string]string{"az": "az2"}, true},
		{"in operator no match", map[string]MatchString{"az": NewMatchString(OpIn, "az1,az2")}, map[string]string{"az": "az9"}, false},
		{"not-in operator", map[string]MatchString{"az": NewMatchString(OpNotIn, "az1,az2")}, map[string]string{"az": "az9"}, true},
		{"range operator inside", map[string]MatchString{"version": NewMatchString(OpRange, "100~200")}, map[string]string{"version": "150"}, true},
		{"range operator outside", map[string]MatchString{"version": NewMatchString(OpRange, "100~200")}, map[string]string{"version": "250"}, false},
		{"absent actual with wildcard literal matches", map[string]MatchString{"region": NewMatchString(OpExact, "*")}, map[string]string{}, true},
		{"absent actual without wildcard does not match", map[string]MatchString{"region": NewMatchString(OpExact, "west")}, map[string]string{}, false},
		{
			"multiple clauses AND together",
			map[string]MatchString{
				"region": NewMatchString(OpExact, "west"),
				"az":     NewMatchString(OpExact, "az1"),
			},
			map[string]string{"region": "west", "az": "az2"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchMetadata(tt.ruleLabels, tt.actual, false, "", nil, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchMetadata_VariableSubstitution(t *testing.T) {
	globals := map[string]string{"region": "west"}
	rule := map[string]MatchString{"region": NewMatchString(OpExact, "$region")}

	assert.True(t, MatchMetadata(rule, map[string]string{"region": "west"}, false, "", nil, globals))
	assert.False(t, MatchMetadata(rule, map[string]string{"region": "east"}, false, "", nil, globals))

	// Falls back to actualLabels when globals doesn't carry the variable.
	ruleFromActual := map[string]MatchString{"region": NewMatchString(OpExact, "$tag")}
	actual := map[string]string{"tag": "canary", "region": "canary"}
	assert.True(t, MatchMetadata(ruleFromActual, actual, false, "", nil, nil))
}

func TestMatchMetadata_RecordsEnvKeyOnSourceSide(t *testing.T) {
	rule := map[string]MatchString{"env": NewMatchString(OpExact, "staging")}
	actual := map[string]string{"env": "staging"}
	envOut := map[string]string{}

	assert.True(t, MatchMetadata(rule, actual, true, "env", envOut, nil))
	assert.Equal(t, "staging", envOut["env"])
}

func TestMatchMetadata_DoesNotRecordEnvKeyOnDestinationSide(t *testing.T) {
	rule := map[string]MatchString{"env": NewMatchString(OpExact, "staging")}
	actual := map[string]string{"env": "staging"}
	envOut := map[string]string{}

	assert.True(t, MatchMetadata(rule, actual, false, "env", envOut, nil))
	assert.Empty(t, envOut)
}
