package chat

import (
	"encoding/json"

	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

// Frame types of the streaming protocol.
const (
	FrameTrace    = "trace"
	FrameMetrics  = "metrics"
	FrameResponse = "response"
	FrameError    = "error"
	FrameDone     = "done"
)

// Frame is one message of the streaming protocol. A turn's stream is any
// number of trace frames, then exactly one metrics frame, one response or
// error frame and one done frame.
type Frame struct {
	Type      string
	Event     trace.Event
	Metrics   trace.Summary
	Text      string
	SessionID string
	Message   string
}

// TraceFrame wraps one trace event.
func TraceFrame(ev trace.Event) Frame { return Frame{Type: FrameTrace, Event: ev} }

// MetricsFrame carries the turn summary.
func MetricsFrame(s trace.Summary) Frame { return Frame{Type: FrameMetrics, Metrics: s} }

// ErrorFrame terminates a failed turn.
func ErrorFrame(msg string) Frame { return Frame{Type: FrameError, Message: msg} }

// ResponseFrame terminates a successful turn.
func ResponseFrame(text, sessionID string) Frame {
	return Frame{Type: FrameResponse, Text: text, SessionID: sessionID}
}

// DoneFrame ends the stream.
func DoneFrame() Frame { return Frame{Type: FrameDone} }

// MarshalJSON writes only the fields that belong to the frame's type.
func (f Frame) MarshalJSON() ([]byte, error) {
	switch f.Type {
	case FrameTrace:
		return json.Marshal(struct {
			Type  string      `json:"type"`
			Event trace.Event `json:"event"`
		}{f.Type, f.Event})
	case FrameMetrics:
		return json.Marshal(struct {
			Type string        `json:"type"`
			Data trace.Summary `json:"data"`
		}{f.Type, f.Metrics})
	case FrameResponse:
		return json.Marshal(struct {
			Type      string `json:"type"`
			Text      string `json:"text"`
			SessionID string `json:"session_id"`
		}{f.Type, f.Text, f.SessionID})
	case FrameError:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{f.Type, f.Message})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{f.Type})
	}
}
