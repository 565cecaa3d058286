package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	maxIOLen     = 500
	writeTimeout = 5 * time.Second
)

// Archive is the persistence behind a Tracer. *Store implements it.
type Archive interface {
	EnsureSession(ctx context.Context, id string) error
	CreateRun(ctx context.Context, r Run) error
	UpdateRun(ctx context.Context, r Run) error
	CreateSpan(ctx context.Context, sp Span) error
}

type writeKind int

const (
	writeSession writeKind = iota
	writeRunCreate
	writeRunUpdate
	writeSpan
)

type traceMsg struct {
	kind writeKind
	run  Run
	span Span
}

// Tracer writes archive records asynchronously via a buffered channel, one
// writer goroutine, so records land in the order they were produced.
// All methods are nil-safe (no-op on nil receiver). Records produced after
// Close are dropped.
type Tracer struct {
	archive Archive
	ch      chan traceMsg
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewTracer starts the background writer. Must call Close when done.
func NewTracer(archive Archive) *Tracer {
	t := &Tracer{
		archive: archive,
		ch:      make(chan traceMsg, 256),
		done:    make(chan struct{}),
	}
	go t.drain()
	return t
}

func (t *Tracer) drain() {
	defer close(t.done)
	for msg := range t.ch {
		t.handle(msg)
	}
}

// send queues msgs unless the tracer is closed. It reports whether they
// were queued.
func (t *Tracer) send(msgs ...traceMsg) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	for _, m := range msgs {
		t.ch <- m
	}
	return true
}

func (t *Tracer) handle(m traceMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch m.kind {
	case writeSession:
		err = t.archive.EnsureSession(ctx, m.run.SessionID)
	case writeRunCreate:
		err = t.archive.CreateRun(ctx, m.run)
	case writeRunUpdate:
		err = t.archive.UpdateRun(ctx, m.run)
	case writeSpan:
		err = t.archive.CreateSpan(ctx, m.span)
	}
	if err != nil {
		slog.Warn("trace write failed", "kind", m.kind, "error", err)
	}
}

// StartRun archives the start of a turn and returns its run ID.
func (t *Tracer) StartRun(sessionID, message string) string {
	if t == nil {
		return ""
	}
	run := Run{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		StartedAt: time.Now(),
		Message:   Clip(message, maxIOLen),
		Status:    "running",
	}
	if !t.send(traceMsg{kind: writeSession, run: run}, traceMsg{kind: writeRunCreate, run: run}) {
		return ""
	}
	return run.ID
}

// EndRun finalizes a turn with its outcome and usage.
func (t *Tracer) EndRun(runID string, duration time.Duration, response, status string, usage Summary) {
	if t == nil || runID == "" {
		return
	}
	t.send(traceMsg{
		kind: writeRunUpdate,
		run: Run{
			ID:            runID,
			DurationMs:    float64(duration.Milliseconds()),
			Response:      Clip(response, maxIOLen),
			Status:        status,
			InputTokens:   usage.Tokens.Input,
			OutputTokens:  usage.Tokens.Output,
			EstimatedCost: usage.EstimatedCost,
		},
	})
}

// RecordSpan archives a completed sub-agent call. ID is assigned here and
// input/output are clipped.
func (t *Tracer) RecordSpan(sp Span) {
	if t == nil || sp.RunID == "" {
		return
	}
	sp.ID = uuid.NewString()
	sp.Input = Clip(sp.Input, maxIOLen)
	sp.Output = Clip(sp.Output, maxIOLen)
	t.send(traceMsg{kind: writeSpan, span: sp})
}

// Close drains pending writes and shuts down the background goroutine.
// It is safe to call more than once and concurrently with live turns.
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.ch)
	}
	t.mu.Unlock()
	<-t.done
}
