package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/hubenschmidt/cx-gateway/internal/chat"
	"github.com/hubenschmidt/cx-gateway/internal/domain"
	"github.com/hubenschmidt/cx-gateway/internal/pipeline"
	"github.com/hubenschmidt/cx-gateway/internal/session"
	"github.com/hubenschmidt/cx-gateway/internal/trace"
	"github.com/hubenschmidt/cx-gateway/internal/ws"
)

func main() {
	cfg := loadConfig()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel})))

	runtime := pipeline.NewAgentRuntime(pipeline.RuntimeConfig{
		APIKey:    cfg.openAIAPIKey,
		BaseURL:   cfg.openAIBaseURL,
		Model:     cfg.llmModel,
		MaxTokens: cfg.llmMaxTokens,
		MaxTurns:  uint64(cfg.maxAgentTurns),
	})

	serviceNow, salesforce, err := subAgents(cfg, runtime)
	if err != nil {
		slog.Error("agent setup failed", "mode", cfg.agentMode, "error", err)
		os.Exit(1)
	}

	var traceStore *trace.Store
	var tracer *trace.Tracer
	if cfg.traceDBURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		traceStore, err = trace.Open(ctx, cfg.traceDBURL)
		cancel()
		if err != nil {
			slog.Warn("trace archive disabled", "error", err)
		} else {
			tracer = trace.NewTracer(traceStore)
			slog.Info("trace archive enabled")
		}
	}

	runner := pipeline.New(pipeline.Config{
		Invoker:      runtime,
		Instructions: cfg.orchestratorPrompt,
		Delegates: []pipeline.Delegate{
			pipeline.ServiceNowDelegate(serviceNow),
			pipeline.SalesforceDelegate(salesforce),
		},
		Tracer: tracer,
	})

	svc := chat.NewService(chat.Config{
		Sessions:      session.NewStore(),
		Runner:        runner,
		Pricing:       trace.Pricing{InputPer1K: cfg.priceInputPer1K, OutputPer1K: cfg.priceOutputPer1K},
		MaxConcurrent: cfg.maxConcurrentTurns,
		TurnTimeout:   cfg.turnTimeout,
	})

	mux := http.NewServeMux()
	registerRoutes(mux, deps{
		svc:         svc,
		agents:      runner.Agents(),
		wsHandler:   ws.NewHandler(svc),
		traceStore:  traceStore,
		frontendDir: cfg.frontendDir,
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)

	addr := ":" + cfg.port
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("gateway starting",
		"addr", addr,
		"model", cfg.llmModel,
		"agent_mode", cfg.agentMode,
		"max_concurrent", cfg.maxConcurrentTurns,
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	tracer.Close()
	if traceStore != nil {
		traceStore.Close()
	}
	slog.Info("gateway stopped")
}

// subAgents builds the ServiceNow and Salesforce backends for AGENT_MODE:
// in-process agents ("direct"), /invocations services ("remote") or A2A
// services ("a2a").
func subAgents(cfg config, runtime *pipeline.AgentRuntime) (serviceNow, salesforce pipeline.SubAgent, err error) {
	sn, err := domain.NewServiceNow(domain.NewRef)
	if err != nil {
		return nil, nil, err
	}
	sf, err := domain.NewSalesforce(domain.NewRef)
	if err != nil {
		return nil, nil, err
	}

	modes := pipeline.NewRouter(map[string]func() ([2]pipeline.SubAgent, error){
		"direct": func() ([2]pipeline.SubAgent, error) {
			return [2]pipeline.SubAgent{pipeline.NewLocalAgent(runtime, sn.Agent()), pipeline.NewLocalAgent(runtime, sf.Agent())}, nil
		},
		"remote": func() ([2]pipeline.SubAgent, error) {
			client := pipeline.NewPooledHTTPClient(cfg.agentPoolSize, cfg.agentTimeout)
			return [2]pipeline.SubAgent{pipeline.NewRemoteAgent(cfg.serviceNowURL, client), pipeline.NewRemoteAgent(cfg.salesforceURL, client)}, nil
		},
		"a2a": func() ([2]pipeline.SubAgent, error) {
			snA2A, err := pipeline.NewA2AAgent(cfg.serviceNowA2AURL, cfg.agentTimeout)
			if err != nil {
				return [2]pipeline.SubAgent{}, err
			}
			sfA2A, err := pipeline.NewA2AAgent(cfg.salesforceA2AURL, cfg.agentTimeout)
			if err != nil {
				return [2]pipeline.SubAgent{}, err
			}
			return [2]pipeline.SubAgent{snA2A, sfA2A}, nil
		},
	}, "")

	build, err := modes.Route(cfg.agentMode)
	if err != nil {
		return nil, nil, err
	}
	pair, err := build()
	if err != nil {
		return nil, nil, err
	}
	return pair[0], pair[1], nil
}
