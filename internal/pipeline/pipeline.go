package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hubenschmidt/cx-gateway/internal/classify"
	"github.com/hubenschmidt/cx-gateway/internal/metrics"
	"github.com/hubenschmidt/cx-gateway/internal/prompts"
	"github.com/hubenschmidt/cx-gateway/internal/session"
	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

const (
	historyTurns      = 6
	historyContentLen = 200
	messagePreviewLen = 60

	orchestratorAgent = "Orchestrator"
)

// Config holds the orchestrator configuration shared by all turns.
type Config struct {
	Invoker      Invoker
	Instructions string
	Delegates    []Delegate
	Tracer       *trace.Tracer
}

// Runner executes orchestrator turns against a session.
type Runner struct {
	cfg Config
}

// New creates a runner. Empty instructions fall back to the default orchestrator prompt.
func New(cfg Config) *Runner {
	cfg.Instructions = prompts.ForSession(cfg.Instructions)
	return &Runner{cfg: cfg}
}

// Agents returns the timing labels of the orchestrator and its delegates.
func (r *Runner) Agents() []string {
	names := []string{LabelOrchestrator}
	for _, d := range r.cfg.Delegates {
		names = append(names, d.Label)
	}
	return names
}

// Run executes one turn of sess for message. Every trace event goes to col.
// History and usage are appended to the session only when the turn succeeds.
func (r *Runner) Run(ctx context.Context, sess *session.Session, col *trace.Collector, message string) (string, error) {
	end := sess.BeginTurn()
	defer end()

	start := time.Now()
	turn := &Turn{
		Collector: col,
		Session:   sess,
		Tracer:    r.cfg.Tracer,
		RunID:     r.cfg.Tracer.StartRun(sess.ID, message),
	}

	instructions := r.preamble(sess)
	if id := classify.PatientID(message); id != "" {
		sess.SetContext(session.KeyPatientID, id)
	}

	col.StartTiming(LabelOrchestrator)
	turn.Emit(trace.Event{
		Type:   trace.OrchestratorStart,
		Agent:  orchestratorAgent,
		Title:  "Analyzing request",
		Detail: `"` + trace.Truncate(message, messagePreviewLen) + `"`,
		Icon:   "🎯",
		Status: trace.StatusRunning,
	})
	if th, ok := classify.Think(message); ok {
		turn.Emit(trace.Event{
			Type:   trace.Thinking,
			Agent:  orchestratorAgent,
			Title:  th.Title,
			Detail: th.Detail,
			Icon:   "💭",
			Status: trace.StatusInfo,
		})
	}

	tools := make([]Tool, 0, len(r.cfg.Delegates))
	for _, d := range r.cfg.Delegates {
		tools = append(tools, d.Traced(turn))
	}

	result, err := r.cfg.Invoker.Invoke(ctx, instructions, message, tools)
	if err != nil {
		metrics.Errors.WithLabelValues(LabelOrchestrator).Inc()
		r.cfg.Tracer.EndRun(turn.RunID, time.Since(start), "", runStatus(ctx), col.Summary())
		return "", fmt.Errorf("orchestrator: %w", err)
	}

	in, out := EstimateTokens(message, instructions, result)
	col.AddTokens(in, out)
	metrics.Tokens.WithLabelValues("input").Add(float64(in))
	metrics.Tokens.WithLabelValues("output").Add(float64(out))

	col.EndTiming(LabelOrchestrator)
	turn.Emit(trace.Event{
		Type:   trace.OrchestratorEnd,
		Agent:  orchestratorAgent,
		Title:  "Response ready",
		Detail: fmt.Sprintf("Generated %d chars", utf8.RuneCountInString(result)),
		Icon:   "✨",
		Status: trace.StatusComplete,
	})

	sess.AddMessage(session.RoleUser, message)
	sess.AddMessage(session.RoleAssistant, result)
	summary := col.Summary()
	sess.AddUsage(summary.Tokens, summary.EstimatedCost)

	r.cfg.Tracer.EndRun(turn.RunID, time.Since(start), result, "ok", summary)
	slog.Info("turn complete",
		"session_id", sess.ID,
		"chars", len(result),
		"input_tokens", in,
		"output_tokens", out,
		"elapsed_s", summary.TotalTime,
	)
	return result, nil
}

func runStatus(ctx context.Context) string {
	if ctx.Err() != nil {
		return "cancelled"
	}
	return "error"
}

// preamble composes the orchestrator instructions for sess's next turn.
func (r *Runner) preamble(sess *session.Session) string {
	ctxValues := sess.Context()
	var pairs [][2]string
	for _, key := range session.ContextKeys {
		if v := ctxValues[key]; v != "" {
			pairs = append(pairs, [2]string{key, v})
		}
	}

	var lines [][2]string
	for _, m := range sess.RecentMessages(historyTurns) {
		lines = append(lines, [2]string{m.Role, trace.Truncate(m.Content, historyContentLen)})
	}

	return r.cfg.Instructions + prompts.PatientContext(pairs) + prompts.History(lines)
}

// EstimateTokens approximates usage from word counts: the message counts
// twice plus the instructions on input, the reply counts twice on output.
func EstimateTokens(message, instructions, reply string) (in, out int) {
	in = 2*words(message) + words(instructions)
	out = 2 * words(reply)
	return in, out
}

func words(s string) int {
	return len(strings.Fields(s))
}
