package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hubenschmidt/cx-gateway/internal/classify"
	"github.com/hubenschmidt/cx-gateway/internal/domain"
	"github.com/hubenschmidt/cx-gateway/internal/metrics"
	"github.com/hubenschmidt/cx-gateway/internal/session"
	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

// Timing labels reported in the metrics summary.
const (
	LabelOrchestrator = "orchestrator"
	LabelServiceNow   = "servicenow"
	LabelSalesforce   = "salesforce"
)

const (
	requestPreviewLen = 100
	outputPreviewLen  = 500
)

// Turn is the per-turn scope traced tools write into.
type Turn struct {
	Collector *trace.Collector
	Session   *session.Session
	Tracer    *trace.Tracer
	RunID     string
}

// Emit records ev on the turn's collector.
func (t *Turn) Emit(ev trace.Event) {
	t.Collector.Record(ev)
	metrics.TraceEvents.WithLabelValues(string(ev.Type)).Inc()
}

// Delegate exposes a domain agent to the orchestrator as a tool.
type Delegate struct {
	Tool        string
	Description string
	Agent       string // display name in trace events
	Label       string // timing label
	Icon        string
	Tasks       []classify.Rule
	Classify    classify.Classifier
	Backend     SubAgent
}

// ServiceNowDelegate is the billing, ticketing and scheduling delegate.
func ServiceNowDelegate(backend SubAgent) Delegate {
	return Delegate{
		Tool: "servicenow_agent",
		Description: "Send a task to the ServiceNow agent for billing lookups, billing corrections, service tickets " +
			"or appointment scheduling. Include patient ids, bill ids and the action you want.",
		Agent:    domain.ServiceNowName,
		Label:    LabelServiceNow,
		Icon:     "🔧",
		Tasks:    classify.ServiceNowTasks,
		Classify: classify.ServiceNowResult,
		Backend:  backend,
	}
}

// SalesforceDelegate is the patient, insurance and case delegate.
func SalesforceDelegate(backend SubAgent) Delegate {
	return Delegate{
		Tool: "salesforce_agent",
		Description: "Send a task to the Salesforce agent for patient record lookups, insurance verification, " +
			"care history or patient cases. Include patient ids and what you need.",
		Agent:    domain.SalesforceName,
		Label:    LabelSalesforce,
		Icon:     "👤",
		Tasks:    classify.SalesforceTasks,
		Classify: classify.SalesforceResult,
		Backend:  backend,
	}
}

// Traced binds d to one turn.
func (d Delegate) Traced(turn *Turn) Tool {
	return Tool{
		Name:        d.Tool,
		Description: d.Description,
		Call: func(ctx context.Context, task string) (string, error) {
			return d.call(ctx, turn, task)
		},
	}
}

// call brackets one sub-agent call with tool_start and tool_end. A failed call
// leaves its timing open and emits no tool_end.
func (d Delegate) call(ctx context.Context, turn *Turn, task string) (string, error) {
	label := classify.TaskLabel(d.Tasks, task)
	turn.Emit(trace.Event{
		Type:   trace.ToolStart,
		Agent:  d.Agent,
		Title:  label,
		Detail: "Request: " + trace.Truncate(task, requestPreviewLen),
		Icon:   d.Icon,
		Status: trace.StatusRunning,
		Data:   map[string]any{"input": task},
	})
	turn.Collector.StartTiming(d.Label)

	start := time.Now()
	result, err := d.Backend.Ask(ctx, task)
	elapsed := time.Since(start)
	metrics.ToolDuration.WithLabelValues(d.Label).Observe(elapsed.Seconds())
	if err != nil {
		metrics.Errors.WithLabelValues(d.Label).Inc()
		turn.Tracer.RecordSpan(trace.Span{
			RunID:      turn.RunID,
			Agent:      d.Label,
			Label:      label,
			StartedAt:  start,
			DurationMs: float64(elapsed.Milliseconds()),
			Input:      task,
			Status:     trace.SpanError,
			Error:      err.Error(),
		})
		return "", fmt.Errorf("%s: %w", d.Label, err)
	}

	out := d.Classify(result)
	for key, value := range out.Context {
		turn.Session.SetContext(key, value)
	}
	turn.Collector.EndTiming(d.Label)

	data := map[string]any{
		"input":  task,
		"output": trace.Clip(result, outputPreviewLen),
	}
	if out.Visual != nil {
		data["visual"] = out.Visual
	}
	turn.Emit(trace.Event{
		Type:   trace.ToolEnd,
		Agent:  d.Agent,
		Title:  out.Summary,
		Detail: out.DetailText(),
		Icon:   "✅",
		Status: trace.StatusComplete,
		Data:   data,
	})
	turn.Tracer.RecordSpan(trace.Span{
		RunID:      turn.RunID,
		Agent:      d.Label,
		Label:      label,
		StartedAt:  start,
		DurationMs: float64(elapsed.Milliseconds()),
		Input:      task,
		Output:     result,
		Summary:    out.Summary,
		Status:     trace.SpanOK,
	})
	return result, nil
}
