package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat64Equals(t *testing.T) {
	assert.True(t, Float64Equals(0.1+0.2, 0.3))
	assert.False(t, Float64Equals(0.1, 0.2))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.False(t, IsBlank("x"))
}

func TestCurrentTimeMillis_Monotonic(t *testing.T) {
	a := CurrentTimeMillis()
	b := CurrentTimeMillis()
	assert.LessOrEqual(t, a, b)
}
