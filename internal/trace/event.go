package trace

import "unicode/utf8"

// EventType classifies a trace event.
type EventType string

const (
	ToolStart         EventType = "tool_start"
	ToolEnd           EventType = "tool_end"
	OrchestratorStart EventType = "orchestrator_start"
	OrchestratorEnd   EventType = "orchestrator_end"
	Thinking          EventType = "thinking"
)

// Status is the lifecycle state shown next to an event.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusInfo     Status = "info"
)

// Event is one step of a turn as seen by the client.
// Timestamp is seconds since the owning collector was created.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp float64        `json:"timestamp"`
	Agent     string         `json:"agent"`
	Title     string         `json:"title"`
	Detail    string         `json:"detail"`
	Icon      string         `json:"icon"`
	Status    Status         `json:"status"`
	Data      map[string]any `json:"data,omitempty"`
}

// Truncate cuts s to at most max characters, appending "..." when anything
// was removed.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return Clip(s, max) + "..."
}

// Clip cuts s to at most max characters.
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
