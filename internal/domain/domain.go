// Package domain holds the two back-office agents the orchestrator delegates
// to and the tools they reason with. Tool data comes from embedded mock
// records; each tool answers with JSON carrying a status, the records and an
// instruction telling the agent what analysis to return.
package domain

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

//go:embed data/*.json
var dataFS embed.FS

// Agent is a domain agent definition the runtime can execute.
type Agent struct {
	Name         string
	Description  string
	Instructions string
	Tools        []agents.Tool
}

// Record is a mock system record, passed through to the agent untouched.
type Record = map[string]any

// IDFunc generates a reference id for the given prefix.
type IDFunc func(prefix string) string

// NewRef returns prefix-XXXXXX with six upper-case hex characters.
func NewRef(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(hex[:6])
}

func loadJSON(name string, v any) error {
	data, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func reply(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool reply: %w", err)
	}
	return string(b), nil
}

func orEmpty(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	return records
}
