package session

import (
	"sync"
	"time"

	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

// Role of a stored message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Patient context keys a turn may record.
const (
	KeyPatientID    = "patient_id"
	KeyPatientName  = "patient_name"
	KeyIssueType    = "issue_type"
	KeyCorrectionID = "correction_id"
	KeyCaseID       = "case_id"
)

// ContextKeys lists the accepted patient context keys in display order.
var ContextKeys = []string{KeyPatientID, KeyPatientName, KeyIssueType, KeyCorrectionID, KeyCaseID}

func knownKey(key string) bool {
	for _, k := range ContextKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Message is one stored conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a server-held conversation. Field access goes through methods;
// turns are serialized with BeginTurn.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn sync.Mutex

	mu       sync.RWMutex
	messages []Message
	context  map[string]string
	tokens   trace.Tokens
	cost     float64
}

func newSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		context:   make(map[string]string),
	}
}

// BeginTurn blocks until no other turn is running on this session and
// returns the function that releases it.
func (s *Session) BeginTurn() (end func()) {
	s.turn.Lock()
	return s.turn.Unlock
}

// AddMessage appends a message to the history.
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the history.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// RecentMessages returns a copy of the last n messages.
func (s *Session) RecentMessages(n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// SetContext records a patient context value. Unknown keys and empty values
// are ignored; it reports whether the value was stored.
func (s *Session) SetContext(key, value string) bool {
	if value == "" || !knownKey(key) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[key] = value
	return true
}

// Context returns a copy of the patient context.
func (s *Session) Context() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.context))
	for k, v := range s.context {
		out[k] = v
	}
	return out
}

// AddUsage adds a turn's estimated tokens and cost to the session totals.
func (s *Session) AddUsage(tokens trace.Tokens, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Input += tokens.Input
	s.tokens.Output += tokens.Output
	s.cost += cost
}

// Snapshot is a point-in-time copy of a session for serialization.
type Snapshot struct {
	ID             string            `json:"session_id"`
	Messages       []Message         `json:"messages"`
	PatientContext map[string]string `json:"patient_context"`
	TotalTokens    trace.Tokens      `json:"total_tokens"`
	TotalCost      float64           `json:"total_cost"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Snapshot copies the session state under its read lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	ctx := make(map[string]string, len(s.context))
	for k, v := range s.context {
		ctx[k] = v
	}
	return Snapshot{
		ID:             s.ID,
		Messages:       msgs,
		PatientContext: ctx,
		TotalTokens:    s.tokens,
		TotalCost:      s.cost,
		CreatedAt:      s.CreatedAt,
	}
}
