package trace

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCollector(c *fakeClock) *Collector { return NewCollector(WithClock(c.now)) }

func TestCollector_RecordStampsAndPublishes(t *testing.T) {
	clk := newFakeClock()
	c := newTestCollector(clk)

	clk.advance(1234 * time.Millisecond)
	got := c.Record(Event{Type: OrchestratorStart, Agent: "Orchestrator"})
	assert.Equal(t, 1.23, got.Timestamp)

	clk.advance(10 * time.Millisecond)
	c.Record(Event{Type: OrchestratorEnd, Agent: "Orchestrator"})
	c.Close()

	events := c.Events()
	require.Len(t, events, 2)
	assert.LessOrEqual(t, events[0].Timestamp, events[1].Timestamp)

	ev, res := c.Bus().Poll(time.Millisecond)
	require.Equal(t, PollEvent, res)
	assert.Equal(t, OrchestratorStart, ev.Type)
	ev, res = c.Bus().Poll(time.Millisecond)
	require.Equal(t, PollEvent, res)
	assert.Equal(t, OrchestratorEnd, ev.Type)
	_, res = c.Bus().Poll(time.Millisecond)
	assert.Equal(t, PollDrained, res)
}

func TestCollector_TimingsAccumulatePerLabel(t *testing.T) {
	clk := newFakeClock()
	c := newTestCollector(clk)

	c.StartTiming("servicenow")
	clk.advance(500 * time.Millisecond)
	c.EndTiming("servicenow")

	c.StartTiming("orchestrator")
	c.StartTiming("servicenow")
	clk.advance(250 * time.Millisecond)
	c.EndTiming("servicenow")
	clk.advance(250 * time.Millisecond)
	c.EndTiming("orchestrator")

	c.StartTiming("salesforce")

	s := c.Summary()
	assert.Equal(t, 0.75, s.Timings["servicenow"])
	assert.Equal(t, 0.5, s.Timings["orchestrator"])
	_, open := s.Timings["salesforce"]
	assert.False(t, open, "unfinished labels are excluded")
}

func TestCollector_EndTimingUnknownLabelIsNoop(t *testing.T) {
	c := NewCollector()
	c.EndTiming("never-started")
	assert.Empty(t, c.Summary().Timings)
}

func TestCollector_EndTimingNonNegative(t *testing.T) {
	c := NewCollector()
	c.StartTiming("x")
	c.EndTiming("x")
	assert.GreaterOrEqual(t, c.Summary().Timings["x"], 0.0)
}

func TestCollector_TokensAndCost(t *testing.T) {
	c := NewCollector()
	c.AddTokens(1000, 200)
	c.AddTokens(500, 100)

	s := c.Summary()
	assert.Equal(t, Tokens{Input: 1500, Output: 300}, s.Tokens)
	// 1.5*0.003 + 0.3*0.015 = 0.0045 + 0.0045
	assert.InDelta(t, 0.009, s.EstimatedCost, 1e-9)
}

func TestPricing_CostRoundsToFourDecimals(t *testing.T) {
	p := Pricing{InputPer1K: 0.003, OutputPer1K: 0.015}
	assert.Equal(t, 0.0, p.Cost(Tokens{Input: 1, Output: 0}))
	assert.InDelta(t, 0.0003, p.Cost(Tokens{Input: 0, Output: 20}), 1e-12)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "éé", Truncate("éé", 3))
	assert.Equal(t, "ééé...", Truncate("éééé", 3))
}

func TestTruncateCountsCharacters(t *testing.T) {
	in := strings.Repeat("é", 60)
	assert.Equal(t, in, Truncate(in, 60))
	assert.Equal(t, "日本...", Truncate("日本語", 2))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "", Clip("abc", 0))
	assert.Equal(t, "ab", Clip("abc", 2))
	assert.Equal(t, "abc", Clip("abc", 5))
	assert.Equal(t, "ñ日", Clip("ñ日本", 2))
}
