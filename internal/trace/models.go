package trace

import "time"

// SessionRecord is an archived conversation.
type SessionRecord struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	RunCount  int       `json:"run_count,omitempty"`
}

// Run is one archived turn, from user message to final response.
type Run struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	StartedAt     time.Time `json:"started_at"`
	DurationMs    float64   `json:"duration_ms,omitempty"`
	Message       string    `json:"message,omitempty"`
	Response      string    `json:"response,omitempty"`
	Status        string    `json:"status"`
	InputTokens   int       `json:"input_tokens,omitempty"`
	OutputTokens  int       `json:"output_tokens,omitempty"`
	EstimatedCost float64   `json:"estimated_cost,omitempty"`
	SpanCount     int       `json:"span_count,omitempty"`
}

// Span is one archived sub-agent call inside a run.
type Span struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Agent      string    `json:"agent"`
	Label      string    `json:"label"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs float64   `json:"duration_ms"`
	Input      string    `json:"input,omitempty"`
	Output     string    `json:"output,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Span statuses.
const (
	SpanOK    = "ok"
	SpanError = "error"
)
