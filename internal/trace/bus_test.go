package trace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PollOrderAndDrain(t *testing.T) {
	b := NewBus()
	b.Publish(Event{Title: "a"})
	b.Publish(Event{Title: "b"})
	b.Close()
	b.Publish(Event{Title: "dropped"})

	ev, res := b.Poll(10 * time.Millisecond)
	require.Equal(t, PollEvent, res)
	assert.Equal(t, "a", ev.Title)

	ev, res = b.Poll(10 * time.Millisecond)
	require.Equal(t, PollEvent, res)
	assert.Equal(t, "b", ev.Title)

	_, res = b.Poll(10 * time.Millisecond)
	assert.Equal(t, PollDrained, res)

	_, res = b.Poll(10 * time.Millisecond)
	assert.Equal(t, PollDrained, res, "drained is sticky")
}

func TestBus_PollTimeout(t *testing.T) {
	b := NewBus()
	start := time.Now()
	_, res := b.Poll(20 * time.Millisecond)
	assert.Equal(t, PollEmpty, res)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestBus_PollWakesOnPublish(t *testing.T) {
	b := NewBus()
	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Publish(Event{Title: "late"})
	}()
	ev, res := b.Poll(2 * time.Second)
	require.Equal(t, PollEvent, res)
	assert.Equal(t, "late", ev.Title)
}

func TestBus_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	b := NewBus()
	const producers, perProducer = 4, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Publish(Event{Agent: string(rune('a' + p)), Data: map[string]any{"seq": i}})
			}
		}(p)
	}
	go func() {
		wg.Wait()
		b.Close()
	}()

	last := map[string]int{}
	count := 0
	for {
		ev, res := b.Poll(time.Second)
		if res == PollDrained {
			break
		}
		if res != PollEvent {
			continue
		}
		seq := ev.Data["seq"].(int)
		if prev, ok := last[ev.Agent]; ok {
			require.Greater(t, seq, prev)
		}
		last[ev.Agent] = seq
		count++
	}
	assert.Equal(t, producers*perProducer, count)
}
