package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

func TestPercentile(t *testing.T) {
	data := []float64{5, 1, 4, 2, 3, 10, 9, 8, 7, 6}
	assert.Equal(t, 5.0, percentile(data, 50))
	assert.Equal(t, 10.0, percentile(data, 95))
	assert.Equal(t, 10.0, percentile(data, 99))
	assert.Equal(t, 1.0, percentile(data, 0))
	assert.Equal(t, 0.0, percentile(nil, 50))
}

func TestApplyFrames(t *testing.T) {
	var res turnResult

	assert.False(t, apply(&res, frame{Type: "trace"}, 20*time.Millisecond))
	assert.False(t, apply(&res, frame{Type: "trace"}, 40*time.Millisecond))
	assert.False(t, apply(&res, frame{Type: "metrics", Data: trace.Summary{
		Timings:       map[string]float64{"orchestrator": 1.5},
		Tokens:        trace.Tokens{Input: 10, Output: 4},
		EstimatedCost: 0.0001,
	}}, 50*time.Millisecond))
	assert.False(t, apply(&res, frame{Type: "response"}, 51*time.Millisecond))
	assert.True(t, apply(&res, frame{Type: "done"}, 52*time.Millisecond))

	assert.True(t, res.success)
	assert.Equal(t, 2, res.events)
	assert.Equal(t, 20.0, res.firstMs)
	assert.Equal(t, 52.0, res.totalMs)
	assert.Equal(t, 1.5, res.timings["orchestrator"])
	assert.Equal(t, 10, res.tokens.Input)
}

func TestApplyErrorFrame(t *testing.T) {
	var res turnResult
	apply(&res, frame{Type: "error", Message: "orchestrator: boom"}, time.Millisecond)
	assert.True(t, apply(&res, frame{Type: "done"}, time.Millisecond))
	assert.False(t, res.success)
	assert.Equal(t, "orchestrator: boom", res.err)
}
