package pipeline

import (
	"context"
	"fmt"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/hubenschmidt/cx-gateway/internal/domain"
)

// Tool is a delegation target the orchestrator may call with a free-text task.
type Tool struct {
	Name        string
	Description string
	Call        func(ctx context.Context, task string) (string, error)
}

// Invoker runs one orchestrator turn and returns the final reply text.
// The tools may be called any number of times, in any order, before it returns.
type Invoker interface {
	Invoke(ctx context.Context, instructions, message string, tools []Tool) (string, error)
}

// SubAgent answers one delegated task.
type SubAgent interface {
	Ask(ctx context.Context, task string) (string, error)
}

// RuntimeConfig configures the model behind every agent.
type RuntimeConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	MaxTurns  uint64

	// Provider overrides the OpenAI-compatible provider built from APIKey and BaseURL.
	Provider agents.ModelProvider
}

// AgentRuntime runs agents through the openai-agents-go SDK.
type AgentRuntime struct {
	provider  agents.ModelProvider
	model     string
	maxTokens int
	maxTurns  uint64
}

// NewAgentRuntime creates a runtime backed by an OpenAI-compatible chat completions API.
func NewAgentRuntime(cfg RuntimeConfig) *AgentRuntime {
	if cfg.Provider != nil {
		return &AgentRuntime{
			provider:  cfg.Provider,
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			maxTurns:  cfg.MaxTurns,
		}
	}
	params := agents.OpenAIProviderParams{
		UseResponses: param.NewOpt(false),
	}
	if cfg.APIKey != "" {
		params.APIKey = param.NewOpt(cfg.APIKey)
	}
	if cfg.BaseURL != "" {
		params.BaseURL = param.NewOpt(cfg.BaseURL)
	}
	return &AgentRuntime{
		provider:  agents.NewOpenAIProvider(params),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		maxTurns:  cfg.MaxTurns,
	}
}

// Run executes a named agent to completion and returns its final output as text.
func (a *AgentRuntime) Run(ctx context.Context, name, instructions, input string, tools []agents.Tool) (string, error) {
	agent := agents.New(name).
		WithInstructions(instructions).
		WithModel(a.model).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(a.maxTokens)),
		}).
		WithTools(tools...)

	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider:   a.provider,
		MaxTurns:        a.maxTurns,
		TracingDisabled: true,
	}}

	result, err := runner.Run(ctx, agent, input)
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", name, err)
	}
	return outputText(result.FinalOutput), nil
}

type taskArgs struct {
	Task string `json:"task" jsonschema_description:"Natural language task including patient ids, bill ids and the action wanted"`
}

// Invoke implements Invoker for the orchestrator agent. A failed delegation
// ends the run with that error instead of being handed back to the model.
func (a *AgentRuntime) Invoke(ctx context.Context, instructions, message string, tools []Tool) (string, error) {
	sdkTools := make([]agents.Tool, 0, len(tools))
	for _, t := range tools {
		sdkTools = append(sdkTools, delegationTool(t))
	}
	return a.Run(ctx, "orchestrator", instructions, message, sdkTools)
}

func delegationTool(t Tool) agents.FunctionTool {
	call := t.Call
	tool := agents.NewFunctionTool(t.Name, t.Description,
		func(ctx context.Context, args taskArgs) (string, error) {
			return call(ctx, args.Task)
		})
	fatal := agents.ToolErrorFunction(nil)
	tool.FailureErrorFunction = &fatal
	return tool
}

func outputText(v any) string {
	switch out := v.(type) {
	case nil:
		return ""
	case string:
		return out
	case fmt.Stringer:
		return out.String()
	default:
		return fmt.Sprint(out)
	}
}

// LocalAgent runs a domain agent in-process.
type LocalAgent struct {
	runtime *AgentRuntime
	agent   domain.Agent
}

// NewLocalAgent binds a domain agent definition to a runtime.
func NewLocalAgent(runtime *AgentRuntime, agent domain.Agent) *LocalAgent {
	return &LocalAgent{runtime: runtime, agent: agent}
}

// Ask implements SubAgent.
func (l *LocalAgent) Ask(ctx context.Context, task string) (string, error) {
	return l.runtime.Run(ctx, l.agent.Name, l.agent.Instructions, task, l.agent.Tools)
}
