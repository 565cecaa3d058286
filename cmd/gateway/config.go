package main

import (
	"log/slog"
	"strings"
	"time"

	"github.com/hubenschmidt/cx-gateway/internal/env"
)

type config struct {
	port               string
	logLevel           slog.Level
	openAIAPIKey       string
	openAIBaseURL      string
	llmModel           string
	llmMaxTokens       int
	maxAgentTurns      int
	orchestratorPrompt string
	agentMode          string
	serviceNowURL      string
	salesforceURL      string
	serviceNowA2AURL   string
	salesforceA2AURL   string
	agentPoolSize      int
	agentTimeout       time.Duration
	maxConcurrentTurns int
	turnTimeout        time.Duration
	priceInputPer1K    float64
	priceOutputPer1K   float64
	traceDBURL         string
	frontendDir        string
}

func loadConfig() config {
	return config{
		port:               env.Str("GATEWAY_PORT", "8000"),
		logLevel:           parseLevel(env.Str("LOG_LEVEL", "info")),
		openAIAPIKey:       env.Str("OPENAI_API_KEY", ""),
		openAIBaseURL:      env.Str("OPENAI_BASE_URL", ""),
		llmModel:           env.Str("LLM_MODEL", "gpt-4o-mini"),
		llmMaxTokens:       env.Int("LLM_MAX_TOKENS", 1024),
		maxAgentTurns:      env.Int("MAX_AGENT_TURNS", 10),
		orchestratorPrompt: env.Str("ORCHESTRATOR_PROMPT", ""),
		agentMode:          strings.ToLower(env.Str("AGENT_MODE", "direct")),
		serviceNowURL:      env.Str("SERVICENOW_AGENT_URL", "http://localhost:8001"),
		salesforceURL:      env.Str("SALESFORCE_AGENT_URL", "http://localhost:8002"),
		serviceNowA2AURL:   env.Str("SERVICENOW_A2A_URL", "http://localhost:9001/"),
		salesforceA2AURL:   env.Str("SALESFORCE_A2A_URL", "http://localhost:9002/"),
		agentPoolSize:      env.Int("AGENT_POOL_SIZE", 20),
		agentTimeout:       env.Duration("AGENT_TIMEOUT", 120*time.Second),
		maxConcurrentTurns: env.Int("MAX_CONCURRENT_TURNS", 100),
		turnTimeout:        env.Duration("TURN_TIMEOUT", 0),
		priceInputPer1K:    env.Float("PRICE_INPUT_PER_1K", 0.003),
		priceOutputPer1K:   env.Float("PRICE_OUTPUT_PER_1K", 0.015),
		traceDBURL:         env.Str("TRACE_DB_URL", ""),
		frontendDir:        env.Str("FRONTEND_DIR", ""),
	}
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
