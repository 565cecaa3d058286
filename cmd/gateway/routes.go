package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hubenschmidt/cx-gateway/internal/chat"
	"github.com/hubenschmidt/cx-gateway/internal/session"
	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

const (
	// defaultTraceSessionLimit is how many trace sessions are returned
	// when the caller omits the ?limit= query parameter.
	defaultTraceSessionLimit = 20

	maxRequestBytes = 1 << 20
)

type deps struct {
	svc         *chat.Service
	agents      []string
	wsHandler   http.Handler
	traceStore  *trace.Store
	frontendDir string
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.HandleFunc("POST /api/chat/stream", d.handleChatStream)
	mux.HandleFunc("POST /api/chat", d.handleChat)
	mux.HandleFunc("GET /api/session/{id}", d.handleGetSession)
	mux.HandleFunc("DELETE /api/session/{id}", d.handleDeleteSession)
	mux.HandleFunc("GET /api/health", d.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	if d.wsHandler != nil {
		mux.Handle("GET /ws/chat", d.wsHandler)
	}
	registerTraceRoutes(mux, d.traceStore)

	if d.frontendDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(d.frontendDir)))
		return
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "cx-gateway",
			"health":  "/api/health",
			"stream":  "/api/chat/stream",
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// decodeChat reads and validates a chat request, answering 422 on failure.
func decodeChat(w http.ResponseWriter, r *http.Request) (chat.Request, bool) {
	var req chat.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return req, false
	}
	return req, true
}

func (d deps) admit(w http.ResponseWriter) (func(), bool) {
	release, err := d.svc.Admit()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return nil, false
	}
	return release, true
}

func (d deps) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	release, ok := d.admit(w)
	if !ok {
		return
	}
	defer release()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	err := d.svc.Stream(ctx, req, "sse", func(f chat.Frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return ctx.Err()
	})
	if err != nil {
		slog.Info("chat/stream client disconnected", "remote", r.RemoteAddr, "error", err)
	}
}

func (d deps) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChat(w, r)
	if !ok {
		return
	}
	release, ok := d.admit(w)
	if !ok {
		return
	}
	defer release()

	res, err := d.svc.Run(r.Context(), req, "http")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (d deps) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := d.svc.Session(r.PathValue("id"))
	if errors.Is(err, session.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (d deps) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	d.svc.DeleteSession(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (d deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	features := []string{"streaming", "tracing", "sessions", "metrics"}
	if d.wsHandler != nil {
		features = append(features, "websocket")
	}
	if d.traceStore != nil {
		features = append(features, "trace_archive")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"agents":   d.agents,
		"features": features,
		"sessions": d.svc.Sessions(),
	})
}

func registerTraceRoutes(mux *http.ServeMux, store *trace.Store) {
	mux.HandleFunc("GET /api/traces/sessions", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		limit := queryInt(r, "limit", defaultTraceSessionLimit)
		offset := queryInt(r, "offset", 0)
		sessions, total, err := store.ListSessions(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "total": total})
	})

	mux.HandleFunc("GET /api/traces/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		sess, runs, err := store.GetSession(r.Context(), r.PathValue("id"))
		if err != nil {
			traceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": sess, "runs": runs})
	})

	mux.HandleFunc("GET /api/traces/sessions/{id}/runs/{runId}", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "tracing disabled", http.StatusNotFound)
			return
		}
		run, spans, err := store.GetRun(r.Context(), r.PathValue("id"), r.PathValue("runId"))
		if err != nil {
			traceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"run": run, "spans": spans})
	})
}

func traceError(w http.ResponseWriter, err error) {
	if errors.Is(err, trace.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	slog.Error("trace read failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
