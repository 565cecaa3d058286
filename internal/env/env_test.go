package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStr(t *testing.T) {
	t.Setenv("CX_TEST_STR", "value")
	assert.Equal(t, "value", Str("CX_TEST_STR", "fallback"))
	t.Setenv("CX_TEST_STR", "")
	assert.Equal(t, "fallback", Str("CX_TEST_STR", "fallback"))
}

func TestInt(t *testing.T) {
	t.Setenv("CX_TEST_INT", "42")
	assert.Equal(t, 42, Int("CX_TEST_INT", 1))
	t.Setenv("CX_TEST_INT", "forty")
	assert.Equal(t, 1, Int("CX_TEST_INT", 1))
	assert.Equal(t, 7, Int("CX_TEST_UNSET", 7))
}

func TestFloat(t *testing.T) {
	t.Setenv("CX_TEST_FLOAT", "0.015")
	assert.Equal(t, 0.015, Float("CX_TEST_FLOAT", 0))
	t.Setenv("CX_TEST_FLOAT", "x")
	assert.Equal(t, 0.003, Float("CX_TEST_FLOAT", 0.003))
}

func TestDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"90s":  90 * time.Second,
		"2m":   2 * time.Minute,
		"90":   90 * time.Second,
		"1.5":  1500 * time.Millisecond,
		"soon": time.Minute,
	}
	for in, want := range cases {
		t.Setenv("CX_TEST_DURATION", in)
		assert.Equal(t, want, Duration("CX_TEST_DURATION", time.Minute), in)
	}
}
