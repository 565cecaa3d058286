package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-a2a-go/client"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	a2a "trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"
)

// A2AAgent calls a domain agent served over the A2A JSON-RPC protocol.
type A2AAgent struct {
	url     string
	client  *client.A2AClient
	timeout time.Duration
}

// NewA2AAgent creates a client for the A2A agent at url. A positive timeout
// bounds each Ask.
func NewA2AAgent(url string, timeout time.Duration) (*A2AAgent, error) {
	c, err := client.NewA2AClient(url)
	if err != nil {
		return nil, fmt.Errorf("a2a client %s: %w", url, err)
	}
	return &A2AAgent{url: url, client: c, timeout: timeout}, nil
}

// Ask implements SubAgent.
func (a *A2AAgent) Ask(ctx context.Context, task string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart(task)})
	rsp, err := a.client.SendMessage(ctx, protocol.SendMessageParams{Message: msg})
	if err != nil {
		return "", fmt.Errorf("a2a %s: %w", a.url, err)
	}
	if rsp == nil || rsp.Result == nil {
		return "", fmt.Errorf("a2a %s: empty response", a.url)
	}

	switch v := rsp.Result.(type) {
	case *protocol.Message:
		return partsText(v.Parts), nil
	case *protocol.Task:
		return taskText(v), nil
	default:
		return "", fmt.Errorf("a2a %s: unexpected result %T", a.url, rsp.Result)
	}
}

// taskText prefers artifacts, then the final status message, then the last
// agent message in the history.
func taskText(task *protocol.Task) string {
	var b strings.Builder
	for _, art := range task.Artifacts {
		b.WriteString(partsText(art.Parts))
	}
	if b.Len() > 0 {
		return b.String()
	}
	if task.Status.Message != nil {
		return partsText(task.Status.Message.Parts)
	}
	for i := len(task.History) - 1; i >= 0; i-- {
		if task.History[i].Role == protocol.MessageRoleAgent {
			return partsText(task.History[i].Parts)
		}
	}
	return ""
}

func partsText(parts []protocol.Part) string {
	var b strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case *protocol.TextPart:
			b.WriteString(p.Text)
		case protocol.TextPart:
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// A2ACard describes an agent served by A2AHandler.
type A2ACard struct {
	Name        string
	Description string
	URL         string
}

// A2AHandler serves agent over the A2A JSON-RPC protocol.
func A2AHandler(card A2ACard, agent SubAgent) (http.Handler, error) {
	desc := card.Description
	streaming := false
	agentCard := a2a.AgentCard{
		Name:        card.Name,
		Description: desc,
		URL:         card.URL,
		Capabilities: a2a.AgentCapabilities{
			Streaming: &streaming,
		},
		Skills: []a2a.AgentSkill{{
			Name:        card.Name,
			Description: &desc,
			InputModes:  []string{"text"},
			OutputModes: []string{"text"},
			Tags:        []string{"cx"},
		}},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}

	tm, err := taskmanager.NewMemoryTaskManager(&a2aProcessor{agent: agent}, taskmanager.WithMaxHistoryLength(1))
	if err != nil {
		return nil, fmt.Errorf("a2a task manager: %w", err)
	}
	srv, err := a2a.NewA2AServer(agentCard, tm)
	if err != nil {
		return nil, fmt.Errorf("a2a server: %w", err)
	}
	return srv.Handler(), nil
}

// a2aProcessor answers each A2A message with one Ask.
type a2aProcessor struct {
	agent SubAgent
}

var errEmptyTask = errors.New("message has no text")

func (p *a2aProcessor) ProcessMessage(
	ctx context.Context,
	message protocol.Message,
	_ taskmanager.ProcessOptions,
	_ taskmanager.TaskHandler,
) (*taskmanager.MessageProcessingResult, error) {
	task := strings.TrimSpace(partsText(message.Parts))
	if task == "" {
		return nil, errEmptyTask
	}

	text, err := p.agent.Ask(ctx, task)
	if err != nil {
		slog.Error("a2a message failed", "error", err)
		return nil, err
	}

	out := protocol.NewMessage(protocol.MessageRoleAgent, []protocol.Part{protocol.NewTextPart(text)})
	return &taskmanager.MessageProcessingResult{Result: &out}, nil
}
