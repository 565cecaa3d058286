// Command agent serves one domain agent (ServiceNow or Salesforce) over the
// /invocations HTTP contract the gateway uses in AGENT_MODE=remote, and over
// A2A on a second port for AGENT_MODE=a2a.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hubenschmidt/cx-gateway/internal/domain"
	"github.com/hubenschmidt/cx-gateway/internal/env"
	"github.com/hubenschmidt/cx-gateway/internal/pipeline"
)

func main() {
	name := flag.String("agent", env.Str("AGENT_NAME", "servicenow"), "agent to serve: servicenow|salesforce")
	port := flag.String("port", env.Str("AGENT_PORT", "8080"), "listen port")
	a2aPort := flag.String("a2a-port", env.Str("AGENT_A2A_PORT", "9080"), "A2A listen port, empty to disable")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	runtime := pipeline.NewAgentRuntime(pipeline.RuntimeConfig{
		APIKey:    env.Str("OPENAI_API_KEY", ""),
		BaseURL:   env.Str("OPENAI_BASE_URL", ""),
		Model:     env.Str("LLM_MODEL", "gpt-4o-mini"),
		MaxTokens: env.Int("LLM_MAX_TOKENS", 1024),
		MaxTurns:  uint64(env.Int("MAX_AGENT_TURNS", 10)),
	})

	agent, err := buildAgent(*name)
	if err != nil {
		slog.Error("agent setup failed", "agent", *name, "error", err)
		os.Exit(1)
	}

	local := pipeline.NewLocalAgent(runtime, agent)
	servers := []*http.Server{{Addr: ":" + *port, Handler: invocationsMux(local)}}
	if *a2aPort != "" {
		card := pipeline.A2ACard{
			Name:        agent.Name,
			Description: agent.Description,
			URL:         env.Str("AGENT_A2A_URL", "http://localhost:"+*a2aPort+"/"),
		}
		h, err := pipeline.A2AHandler(card, local)
		if err != nil {
			slog.Error("a2a setup failed", "agent", agent.Name, "error", err)
			os.Exit(1)
		}
		servers = append(servers, &http.Server{Addr: ":" + *a2aPort, Handler: h})
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			srv.Shutdown(ctx)
		}
	}()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			slog.Info("agent starting", "agent", agent.Name, "addr", srv.Addr)
			errCh <- srv.ListenAndServe()
		}(srv)
	}
	for range servers {
		if err := <-errCh; err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}

func invocationsMux(agent pipeline.SubAgent) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST /invocations", pipeline.InvocationHandler(agent))
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"Healthy"}`))
	})
	return mux
}

func buildAgent(name string) (domain.Agent, error) {
	builders := pipeline.NewRouter(map[string]func() (domain.Agent, error){
		"servicenow": func() (domain.Agent, error) {
			sn, err := domain.NewServiceNow(domain.NewRef)
			if err != nil {
				return domain.Agent{}, err
			}
			return sn.Agent(), nil
		},
		"salesforce": func() (domain.Agent, error) {
			sf, err := domain.NewSalesforce(domain.NewRef)
			if err != nil {
				return domain.Agent{}, err
			}
			return sf.Agent(), nil
		},
	}, "")

	build, err := builders.Route(name)
	if err != nil {
		return domain.Agent{}, err
	}
	return build()
}
