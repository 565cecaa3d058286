package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// invocation is the AgentCore runtime request and response body.
type invocation struct {
	Input  *invocationText `json:"input,omitempty"`
	Output *invocationText `json:"output,omitempty"`
}

type invocationText struct {
	Text string `json:"text"`
}

// RemoteAgent calls a domain agent served over the /invocations contract.
type RemoteAgent struct {
	url    string
	client *http.Client
}

// NewRemoteAgent creates a client for the agent at baseURL.
func NewRemoteAgent(baseURL string, client *http.Client) *RemoteAgent {
	if client == nil {
		client = NewPooledHTTPClient(10, 120*time.Second)
	}
	return &RemoteAgent{url: strings.TrimRight(baseURL, "/") + "/invocations", client: client}
}

// Ask implements SubAgent.
func (r *RemoteAgent) Ask(ctx context.Context, task string) (string, error) {
	body, err := json.Marshal(invocation{Input: &invocationText{Text: task}})
	if err != nil {
		return "", fmt.Errorf("marshal invocation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create invocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoke %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("invoke %s: status %d: %s", r.url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out invocation
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode invocation: %w", err)
	}
	if out.Output == nil {
		return "", fmt.Errorf("invoke %s: response has no output", r.url)
	}
	return out.Output.Text, nil
}

// InvocationHandler serves agent over the /invocations contract.
func InvocationHandler(agent SubAgent) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in invocation
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Input == nil || strings.TrimSpace(in.Input.Text) == "" {
			http.Error(w, `expected {"input":{"text":"..."}}`, http.StatusUnprocessableEntity)
			return
		}

		text, err := agent.Ask(r.Context(), in.Input.Text)
		if err != nil {
			slog.Error("invocation failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(invocation{Output: &invocationText{Text: text}})
	})
}
