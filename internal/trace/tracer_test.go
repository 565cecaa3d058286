package trace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memArchive struct {
	mu       sync.Mutex
	sessions []string
	created  []Run
	updated  []Run
	spans    []Span
	failRuns bool
}

func (m *memArchive) EnsureSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, id)
	return nil
}

func (m *memArchive) CreateRun(_ context.Context, r Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRuns {
		return errors.New("db down")
	}
	m.created = append(m.created, r)
	return nil
}

func (m *memArchive) UpdateRun(_ context.Context, r Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, r)
	return nil
}

func (m *memArchive) CreateSpan(_ context.Context, sp Span) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spans = append(m.spans, sp)
	return nil
}

func TestTracer_NilSafe(t *testing.T) {
	var tr *Tracer
	assert.Equal(t, "", tr.StartRun("s", "m"))
	tr.EndRun("r", time.Second, "x", "ok", Summary{})
	tr.RecordSpan(Span{RunID: "r", Agent: "servicenow", Label: "Billing Lookup"})
	tr.Close()
}

func TestTracer_WritesInOrder(t *testing.T) {
	arch := &memArchive{}
	tr := NewTracer(arch)

	runID := tr.StartRun("sess-1", "hello")
	require.NotEmpty(t, runID)
	tr.RecordSpan(Span{
		RunID:      runID,
		Agent:      "salesforce",
		Label:      "Insurance Verification",
		DurationMs: 40,
		Input:      "task",
		Output:     "result",
		Summary:    "Insurance verified",
		Status:     SpanOK,
	})
	tr.EndRun(runID, 2*time.Second, "done", "ok", Summary{
		Tokens:        Tokens{Input: 10, Output: 4},
		EstimatedCost: 0.0001,
	})
	tr.Close()

	assert.Equal(t, []string{"sess-1"}, arch.sessions)
	require.Len(t, arch.created, 1)
	assert.Equal(t, runID, arch.created[0].ID)
	assert.Equal(t, "running", arch.created[0].Status)

	require.Len(t, arch.spans, 1)
	sp := arch.spans[0]
	assert.NotEmpty(t, sp.ID)
	assert.Equal(t, runID, sp.RunID)
	assert.Equal(t, "Insurance Verification", sp.Label)
	assert.Equal(t, "Insurance verified", sp.Summary)

	require.Len(t, arch.updated, 1)
	assert.Equal(t, 2000.0, arch.updated[0].DurationMs)
	assert.Equal(t, 10, arch.updated[0].InputTokens)
	assert.Equal(t, 0.0001, arch.updated[0].EstimatedCost)
}

func TestTracer_ClipsLongIO(t *testing.T) {
	arch := &memArchive{}
	tr := NewTracer(arch)

	long := make([]rune, maxIOLen+50)
	for i := range long {
		long[i] = 'é'
	}
	tr.RecordSpan(Span{RunID: "r", Input: string(long), Output: string(long)})
	tr.Close()

	require.Len(t, arch.spans, 1)
	assert.Len(t, []rune(arch.spans[0].Input), maxIOLen)
	assert.True(t, utf8.ValidString(arch.spans[0].Output))
}

func TestTracer_WriteFailuresAreSwallowed(t *testing.T) {
	arch := &memArchive{failRuns: true}
	tr := NewTracer(arch)

	runID := tr.StartRun("sess-1", "hello")
	tr.EndRun(runID, time.Second, "x", "ok", Summary{})
	tr.Close()

	assert.Empty(t, arch.created)
	assert.Len(t, arch.updated, 1)
}

func TestTracer_WritesAfterCloseAreDropped(t *testing.T) {
	arch := &memArchive{}
	tr := NewTracer(arch)
	runID := tr.StartRun("sess-1", "hello")
	tr.Close()

	assert.NotPanics(t, func() {
		assert.Equal(t, "", tr.StartRun("sess-1", "again"))
		tr.RecordSpan(Span{RunID: runID, Agent: "salesforce"})
		tr.EndRun(runID, time.Second, "late", "ok", Summary{})
		tr.Close()
	})

	arch.mu.Lock()
	defer arch.mu.Unlock()
	assert.Len(t, arch.created, 1)
	assert.Empty(t, arch.spans)
	assert.Empty(t, arch.updated)
}

func TestTracer_CloseDuringLiveTurns(t *testing.T) {
	tr := NewTracer(&memArchive{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				runID := tr.StartRun("sess", "m")
				tr.RecordSpan(Span{RunID: runID, Agent: "servicenow"})
				tr.EndRun(runID, time.Millisecond, "r", "ok", Summary{})
			}
		}()
	}
	assert.NotPanics(t, tr.Close)
	wg.Wait()
}
