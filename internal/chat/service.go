// Package chat bridges blocking orchestrator turns to streaming and
// request/response transports.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hubenschmidt/cx-gateway/internal/metrics"
	"github.com/hubenschmidt/cx-gateway/internal/session"
	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

// DefaultPollInterval is how long the stream loop waits for the next event.
const DefaultPollInterval = 100 * time.Millisecond

var (
	ErrEmptyMessage = errors.New("message must not be empty")
	ErrAtCapacity   = errors.New("at capacity")
)

// Request is a chat turn as sent by clients.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate reports malformed requests.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// TurnRunner executes one orchestrator turn. *pipeline.Runner implements it.
type TurnRunner interface {
	Run(ctx context.Context, sess *session.Session, col *trace.Collector, message string) (string, error)
}

// Config configures a Service.
type Config struct {
	Sessions      *session.Store
	Runner        TurnRunner
	Pricing       trace.Pricing
	MaxConcurrent int
	TurnTimeout   time.Duration // 0 disables
	PollInterval  time.Duration
}

// Service runs chat turns with admission control.
type Service struct {
	cfg Config
	sem chan struct{}
	log *slog.Logger
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Pricing == (trace.Pricing{}) {
		cfg.Pricing = trace.DefaultPricing
	}
	return &Service{
		cfg: cfg,
		sem: make(chan struct{}, cfg.MaxConcurrent),
		log: slog.Default().With("component", "chat"),
	}
}

// Session returns a snapshot of the session with id.
func (s *Service) Session(id string) (session.Snapshot, error) {
	sess, err := s.cfg.Sessions.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// DeleteSession forgets the session. Unknown ids are not an error.
func (s *Service) DeleteSession(id string) {
	s.cfg.Sessions.Delete(id)
	metrics.Sessions.Set(float64(s.cfg.Sessions.Len()))
}

// Sessions returns the number of live sessions.
func (s *Service) Sessions() int { return s.cfg.Sessions.Len() }

// Admit reserves a turn slot. The caller must call release when done.
func (s *Service) Admit() (release func(), err error) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	default:
		metrics.Rejected.Inc()
		return nil, ErrAtCapacity
	}
}

func (s *Service) session(id string) *session.Session {
	sess := s.cfg.Sessions.GetOrCreate(id)
	metrics.Sessions.Set(float64(s.cfg.Sessions.Len()))
	return sess
}

func (s *Service) newCollector() *trace.Collector {
	return trace.NewCollector(trace.WithPricing(s.cfg.Pricing))
}

// turnContext derives the worker context, bounded by TurnTimeout when set.
func (s *Service) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.TurnTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.TurnTimeout)
	}
	return context.WithCancel(ctx)
}

// execute runs one turn, turning panics into errors.
func (s *Service) execute(ctx context.Context, sess *session.Session, col *trace.Collector, message string) (text string, err error) {
	metrics.TurnsActive.Inc()
	defer metrics.TurnsActive.Dec()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("turn panicked", "session_id", sess.ID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("internal error: %v", r)
		}
		metrics.TurnDuration.Observe(time.Since(start).Seconds())
	}()
	return s.cfg.Runner.Run(ctx, sess, col, message)
}

type outcome struct {
	text string
	err  error
}

// Stream runs req on a worker goroutine and emits the turn as frames: trace
// frames as events happen, then metrics, then response or error, then done.
// The caller must have been admitted. Stream returns the first emit error;
// after one, the turn is cancelled and no further frames are sent.
func (s *Service) Stream(ctx context.Context, req Request, transport string, emit func(Frame) error) error {
	sess := s.session(req.SessionID)
	col := s.newCollector()
	turnCtx, cancel := s.turnContext(ctx)
	defer cancel()

	var res outcome
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer col.Close()
		res.text, res.err = s.execute(turnCtx, sess, col, req.Message)
	}()

	var emitErr error
	send := func(f Frame) {
		if emitErr != nil {
			return
		}
		if emitErr = emit(f); emitErr != nil {
			s.log.Info("client gone, cancelling turn", "session_id", sess.ID, "error", emitErr)
			cancel()
		}
	}

	for drained := false; !drained; {
		ev, state := col.Bus().Poll(s.cfg.PollInterval)
		switch state {
		case trace.PollEvent:
			send(TraceFrame(ev))
		case trace.PollDrained:
			drained = true
		case trace.PollEmpty:
			// Worker still running; the bus is closed when it returns.
		}
	}
	<-done

	status := "ok"
	if res.err != nil {
		status = "error"
		metrics.Errors.WithLabelValues("turn").Inc()
		s.log.Error("turn failed", "session_id", sess.ID, "transport", transport, "error", res.err)
	}
	metrics.TurnsTotal.WithLabelValues(transport, status).Inc()

	send(MetricsFrame(col.Summary()))
	if res.err != nil {
		send(ErrorFrame(res.err.Error()))
	} else {
		send(ResponseFrame(res.text, sess.ID))
	}
	send(DoneFrame())
	return emitErr
}

// Result is the outcome of a non-streaming turn.
type Result struct {
	Response  string        `json:"response,omitempty"`
	Detail    string        `json:"detail,omitempty"`
	SessionID string        `json:"session_id"`
	Trace     []trace.Event `json:"trace"`
	Metrics   trace.Summary `json:"metrics"`
}

// Run executes req synchronously. On failure the returned Result still
// carries the trace gathered so far, with Detail set to the error text.
func (s *Service) Run(ctx context.Context, req Request, transport string) (Result, error) {
	sess := s.session(req.SessionID)
	col := s.newCollector()
	turnCtx, cancel := s.turnContext(ctx)
	defer cancel()

	text, err := s.execute(turnCtx, sess, col, req.Message)
	col.Close()

	res := Result{
		SessionID: sess.ID,
		Trace:     col.Events(),
		Metrics:   col.Summary(),
	}
	if err != nil {
		metrics.Errors.WithLabelValues("turn").Inc()
		metrics.TurnsTotal.WithLabelValues(transport, "error").Inc()
		s.log.Error("turn failed", "session_id", sess.ID, "transport", transport, "error", err)
		res.Detail = err.Error()
		return res, err
	}
	metrics.TurnsTotal.WithLabelValues(transport, "ok").Inc()
	res.Response = text
	return res, nil
}
