package trace

import (
	"math"
	"sync"
	"time"
)

// Pricing is the per-1000-token price used for cost estimates.
type Pricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultPricing matches the Sonnet-class list price the demo was costed against.
var DefaultPricing = Pricing{InputPer1K: 0.003, OutputPer1K: 0.015}

// Cost returns the estimated price of t, rounded to 4 decimals.
func (p Pricing) Cost(t Tokens) float64 {
	cost := float64(t.Input)/1000*p.InputPer1K + float64(t.Output)/1000*p.OutputPer1K
	return round(cost, 4)
}

// Tokens holds estimated token counts.
type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Summary is the aggregate sent in the metrics frame.
type Summary struct {
	TotalTime     float64            `json:"total_time"`
	Timings       map[string]float64 `json:"timings"`
	Tokens        Tokens             `json:"tokens"`
	EstimatedCost float64            `json:"estimated_cost"`
}

type openTiming struct {
	label string
	start time.Time
}

// Collector records the events, timings and token usage of one turn and
// forwards every event to its Bus.
type Collector struct {
	mu      sync.Mutex
	bus     *Bus
	now     func() time.Time
	pricing Pricing
	start   time.Time
	events  []Event
	open    []openTiming
	timings map[string]time.Duration
	tokens  Tokens
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithPricing overrides DefaultPricing.
func WithPricing(p Pricing) Option {
	return func(c *Collector) { c.pricing = p }
}

// NewCollector starts the turn clock and allocates a fresh bus.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		bus:     NewBus(),
		now:     time.Now,
		pricing: DefaultPricing,
		timings: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.now()
	return c
}

// Bus returns the queue the streaming loop drains.
func (c *Collector) Bus() *Bus { return c.bus }

// Elapsed returns seconds since construction, rounded to 2 decimals.
func (c *Collector) Elapsed() float64 {
	return round(c.now().Sub(c.start).Seconds(), 2)
}

// Record stamps ev, appends it and publishes it. The stamped event is returned.
func (c *Collector) Record(ev Event) Event {
	c.mu.Lock()
	ev.Timestamp = c.Elapsed()
	c.events = append(c.events, ev)
	c.mu.Unlock()

	c.bus.Publish(ev)
	return ev
}

// StartTiming opens an interval for label.
func (c *Collector) StartTiming(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = append(c.open, openTiming{label: label, start: c.now()})
}

// EndTiming closes the most recent open interval for label and adds its
// duration to the label total. Unknown labels are ignored.
func (c *Collector) EndTiming(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.open) - 1; i >= 0; i-- {
		if c.open[i].label != label {
			continue
		}
		d := c.now().Sub(c.open[i].start)
		if d < 0 {
			d = 0
		}
		c.timings[label] += d
		c.open = append(c.open[:i], c.open[i+1:]...)
		return
	}
}

// AddTokens accumulates estimated token usage.
func (c *Collector) AddTokens(in, out int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens.Input += in
	c.tokens.Output += out
}

// Summary returns total time, closed timings, tokens and estimated cost.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	timings := make(map[string]float64, len(c.timings))
	for label, d := range c.timings {
		timings[label] = round(d.Seconds(), 2)
	}
	return Summary{
		TotalTime:     c.Elapsed(),
		Timings:       timings,
		Tokens:        c.tokens,
		EstimatedCost: c.pricing.Cost(c.tokens),
	}
}

// Events returns a copy of every recorded event in emission order.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Close signals the consumer that no more events will arrive.
func (c *Collector) Close() {
	c.bus.Close()
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
