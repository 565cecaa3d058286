package trace

import (
	"sync"
	"time"
)

// PollResult tells the consumer what Poll produced.
type PollResult int

const (
	// PollEvent means an event was returned.
	PollEvent PollResult = iota
	// PollEmpty means the timeout elapsed with nothing queued.
	PollEmpty
	// PollDrained means the bus was closed and every event has been consumed.
	PollDrained
)

// Bus is an unbounded, ordered event queue for one in-flight turn.
// Any number of goroutines may publish; exactly one may poll.
type Bus struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{notify: make(chan struct{}, 1)}
}

// Publish appends ev. It never blocks. Events published after Close are dropped.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()
	b.signal()
}

// Close marks the end of the stream. Queued events are still delivered.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.signal()
}

// Poll waits up to timeout for the next event.
func (b *Bus) Poll(timeout time.Duration) (Event, PollResult) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if ev, res, ok := b.next(); ok {
			return ev, res
		}
		select {
		case <-b.notify:
		case <-timer.C:
			if ev, res, ok := b.next(); ok {
				return ev, res
			}
			return Event{}, PollEmpty
		}
	}
}

func (b *Bus) next() (Event, PollResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) > 0 {
		ev := b.queue[0]
		b.queue[0] = Event{}
		b.queue = b.queue[1:]
		return ev, PollEvent, true
	}
	if b.closed {
		return Event{}, PollDrained, true
	}
	return Event{}, PollEmpty, false
}

func (b *Bus) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}
