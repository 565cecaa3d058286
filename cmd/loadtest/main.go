// Command loadtest drives concurrent chat sessions against the gateway's
// websocket endpoint and reports latency percentiles per agent.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/cx-gateway/internal/trace"
)

var messages = []string{
	"Patient PAT-2847 says they were overcharged on their last visit",
	"Can you verify insurance coverage for PAT-2847?",
	"Look up billing for PAT-1093 and open a ticket if anything is wrong",
	"Schedule a follow-up cardiology appointment for PAT-1093",
	"What does the care history look like for PAT-2847 this year?",
}

func main() {
	gateway := flag.String("gateway", "ws://localhost:8000/ws/chat", "gateway WebSocket URL")
	concurrency := flag.Int("concurrency", 10, "number of concurrent sessions")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	timeout := flag.Duration("turn-timeout", 120*time.Second, "per-turn read deadline")
	flag.Parse()

	fmt.Printf("Load test: %d concurrent sessions for %s\n", *concurrency, *duration)
	fmt.Printf("Gateway: %s\n\n", *gateway)

	var mu sync.Mutex
	var results []turnResult
	var wg sync.WaitGroup

	deadline := time.Now().Add(*duration)

	for range *concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, r := range runSession(*gateway, deadline, *timeout) {
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	printSummary(results)
}

type turnResult struct {
	success bool
	firstMs float64
	totalMs float64
	events  int
	timings map[string]float64
	tokens  trace.Tokens
	cost    float64
	err     string
	broken  bool
}

type frame struct {
	Type    string        `json:"type"`
	Data    trace.Summary `json:"data"`
	Message string        `json:"message"`
}

// runSession keeps one connection and one session id, sending turns until deadline.
func runSession(gateway string, deadline time.Time, timeout time.Duration) []turnResult {
	conn, _, err := websocket.DefaultDialer.Dial(gateway, nil)
	if err != nil {
		return []turnResult{{err: fmt.Sprintf("dial: %v", err)}}
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	var results []turnResult
	for time.Now().Before(deadline) {
		r := runTurn(conn, sessionID, messages[rand.Intn(len(messages))], timeout)
		results = append(results, r)
		if r.broken {
			break
		}
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return results
}

func runTurn(conn *websocket.Conn, sessionID, message string, timeout time.Duration) turnResult {
	req, _ := json.Marshal(map[string]string{"message": message, "session_id": sessionID})

	start := time.Now()
	if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return turnResult{err: fmt.Sprintf("send: %v", err), broken: true}
	}

	var res turnResult
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			res.success = false
			res.broken = true
			res.err = fmt.Sprintf("read: %v", err)
			return res
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var f frame
		if err = json.Unmarshal(data, &f); err != nil {
			continue
		}
		if apply(&res, f, time.Since(start)) {
			return res
		}
	}
}

// apply folds one frame into res and reports whether the turn is over.
func apply(res *turnResult, f frame, elapsed time.Duration) bool {
	ms := float64(elapsed.Microseconds()) / 1000
	switch f.Type {
	case "trace":
		if res.events == 0 {
			res.firstMs = ms
		}
		res.events++
	case "metrics":
		res.timings = f.Data.Timings
		res.tokens = f.Data.Tokens
		res.cost = f.Data.EstimatedCost
	case "response":
		res.success = true
	case "error":
		res.err = f.Message
	case "done":
		res.totalMs = ms
		return true
	}
	return false
}

func printSummary(results []turnResult) {
	var succeeded, failed int
	var first, e2e []float64
	var cost float64
	var tokens trace.Tokens
	stages := map[string][]float64{}
	errs := map[string]int{}

	for _, r := range results {
		if !r.success {
			failed++
			errs[r.err]++
			continue
		}
		succeeded++
		first = append(first, r.firstMs)
		e2e = append(e2e, r.totalMs)
		cost += r.cost
		tokens.Input += r.tokens.Input
		tokens.Output += r.tokens.Output
		for label, secs := range r.timings {
			stages[label] = append(stages[label], secs*1000)
		}
	}

	fmt.Printf("\n=== Load Test Results ===\n")
	fmt.Printf("Turns completed: %d\n", succeeded)
	fmt.Printf("Turns failed:    %d\n", failed)
	for msg, n := range errs {
		fmt.Printf("  %4d x %s\n", n, msg)
	}

	if len(e2e) == 0 {
		fmt.Println("No successful turns to report metrics")
		return
	}

	fmt.Printf("Tokens (est):    %d in / %d out\n", tokens.Input, tokens.Output)
	fmt.Printf("Cost (est):      $%.4f\n", cost)

	fmt.Printf("\n%-14s %8s %8s %8s\n", "Stage", "p50", "p95", "p99")
	printRow("first event", first)
	labels := make([]string, 0, len(stages))
	for label := range stages {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		printRow(label, stages[label])
	}
	printRow("e2e", e2e)
}

func printRow(name string, data []float64) {
	fmt.Printf("%-14s %8.0fms %8.0fms %8.0fms\n", name, percentile(data, 50), percentile(data, 95), percentile(data, 99))
}

func percentile(data []float64, pct float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sort.Float64s(data)
	idx := int(math.Ceil(pct/100*float64(len(data)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(data) {
		idx = len(data) - 1
	}
	return data[idx]
}
