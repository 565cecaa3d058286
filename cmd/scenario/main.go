// Command scenario replays scripted demo conversations against a running
// gateway over the SSE endpoint and prints the live trace.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/cx-gateway/internal/env"
	"github.com/hubenschmidt/cx-gateway/internal/pipeline"
	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

type scenario struct {
	Name  string
	Turns []string
}

var scenarios = []scenario{
	{
		Name: "billing-dispute",
		Turns: []string{
			"Patient PAT-2847 called about being overcharged $2,400 for a routine office visit",
			"Please correct the billing error and open a ticket so finance can follow up",
			"Also verify their insurance so we know what they will owe after the correction",
		},
	},
	{
		Name: "insurance-check",
		Turns: []string{
			"Can you verify insurance coverage for PAT-1093?",
			"Schedule a cardiology follow-up for them next week",
		},
	},
	{
		Name: "care-review",
		Turns: []string{
			"Pull the care history for PAT-2847 and open a case if anything needs follow-up",
		},
	},
}

func main() {
	gateway := flag.String("gateway", env.Str("GATEWAY_URL", "http://localhost:8000"), "gateway base URL")
	name := flag.String("scenario", "billing-dispute", "scenario to run, or \"all\"")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	selected, err := selectScenarios(*name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := pipeline.NewPooledHTTPClient(2, 0)
	for _, sc := range selected {
		if err = play(ctx, client, *gateway, sc, os.Stdout); err != nil {
			slog.Error("scenario failed", "scenario", sc.Name, "error", err)
			os.Exit(1)
		}
	}
}

func selectScenarios(name string) ([]scenario, error) {
	if name == "all" {
		return scenarios, nil
	}
	byName := make(map[string]scenario, len(scenarios))
	for _, sc := range scenarios {
		byName[sc.Name] = sc
	}
	sc, err := pipeline.NewRouter(byName, "").Route(name)
	if err != nil {
		return nil, err
	}
	return []scenario{sc}, nil
}

// play runs every turn of sc on one session, writing the trace to out.
func play(ctx context.Context, client *http.Client, gateway string, sc scenario, out io.Writer) error {
	sessionID := uuid.NewString()
	fmt.Fprintf(out, "=== %s (session %s) ===\n", sc.Name, sessionID)

	for i, msg := range sc.Turns {
		fmt.Fprintf(out, "\n[%d] USER: %s\n", i+1, msg)
		if err := streamTurn(ctx, client, gateway, sessionID, msg, out); err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
	}
	return nil
}

type sseFrame struct {
	Type    string        `json:"type"`
	Event   trace.Event   `json:"event"`
	Data    trace.Summary `json:"data"`
	Text    string        `json:"text"`
	Message string        `json:"message"`
}

func streamTurn(ctx context.Context, client *http.Client, gateway, sessionID, message string, out io.Writer) error {
	body, _ := json.Marshal(map[string]string{"message": message, "session_id": sessionID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(gateway, "/")+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var turnErr error
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var f sseFrame
		if err = json.Unmarshal([]byte(data), &f); err != nil {
			slog.Warn("bad frame", "error", err)
			continue
		}
		if printFrame(out, f) {
			turnErr = fmt.Errorf("gateway: %s", f.Message)
		}
		if f.Type == "done" {
			return turnErr
		}
	}
	if err = sc.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream ended without done frame")
}

// printFrame renders f and reports whether it was an error frame.
func printFrame(out io.Writer, f sseFrame) bool {
	switch f.Type {
	case "trace":
		ev := f.Event
		fmt.Fprintf(out, "  %6.2fs %s %-12s %s", ev.Timestamp, ev.Icon, ev.Agent, ev.Title)
		if ev.Detail != "" {
			fmt.Fprintf(out, " (%s)", ev.Detail)
		}
		fmt.Fprintln(out)
	case "metrics":
		fmt.Fprintf(out, "  total %.2fs, tokens %d/%d, est. $%.4f\n",
			f.Data.TotalTime, f.Data.Tokens.Input, f.Data.Tokens.Output, f.Data.EstimatedCost)
	case "response":
		fmt.Fprintf(out, "AGENT: %s\n", f.Text)
	case "error":
		fmt.Fprintf(out, "ERROR: %s\n", f.Message)
		return true
	}
	return false
}
