package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/scorer"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/vapi"
)

type fakeSource struct {
	calls       []vapi.CallRecord
	transcripts map[string]vapi.Transcript
}

func (f *fakeSource) ListCalls(ctx context.Context, limit int, status string) []vapi.CallRecord {
	return f.calls
}

func (f *fakeSource) FetchTranscript(ctx context.Context, callID string) vapi.Transcript {
	if tr, ok := f.transcripts[callID]; ok {
		return tr
	}
	return vapi.Transcript{Status: vapi.TranscriptUnavailable}
}

// fakeScorer mimics the real scorer's persistence contract.
type fakeScorer struct {
	store  *store.AnalysisStore
	scored []string
}

func (f *fakeScorer) Score(ctx context.Context, transcript, rubric, callID string, meta scorer.Meta) store.CallAnalysis {
	f.scored = append(f.scored, callID)
	return f.store.PutIfAbsent(callID, store.CallAnalysis{
		CallID:           callID,
		PerformanceScore: 7.0,
		AnalyzedAt:       time.Now(),
		CallTime:         meta.CallTime,
		Duration:         meta.Duration,
	})
}

func newPipeline(src *fakeSource) (*Pipeline, *fakeScorer, *store.AnalysisStore) {
	st := store.NewAnalysisStore()
	sc := &fakeScorer{store: st}
	p := New(src, sc, st, nil, nil, slog.Default())
	p.pause = 0
	return p, sc, st
}

func usable(text string) vapi.Transcript {
	return vapi.Transcript{Status: vapi.TranscriptAvailable, Text: text}
}

func TestProcessRecent_TimeFilter(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeSource{
		calls: []vapi.CallRecord{
			{"id": "fresh", "createdAt": now.Add(-1 * time.Hour).Format(time.RFC3339)},
			{"id": "stale", "createdAt": now.Add(-25 * time.Hour).Format(time.RFC3339)},
			{"id": "no-timestamp"},
		},
		transcripts: map[string]vapi.Transcript{
			"fresh":        usable("Agent: hi"),
			"stale":        usable("Agent: old"),
			"no-timestamp": usable("Agent: mystery"),
		},
	}
	p, sc, _ := newPipeline(src)

	results := p.ProcessRecent(context.Background(), "rubric", 24)

	assert.Equal(t, []string{"fresh", "no-timestamp"}, sc.scored)
	assert.Len(t, results, 2)
}

func TestProcessRecent_UnparseableTimestampIncluded(t *testing.T) {
	src := &fakeSource{
		calls: []vapi.CallRecord{
			{"id": "weird", "createdAt": "sometime last tuesday"},
		},
		transcripts: map[string]vapi.Transcript{"weird": usable("Agent: hi")},
	}
	p, sc, _ := newPipeline(src)

	p.ProcessRecent(context.Background(), "rubric", 24)
	assert.Equal(t, []string{"weird"}, sc.scored)
}

func TestProcessRecent_OffsetTimestampAccepted(t *testing.T) {
	now := time.Now().UTC()
	src := &fakeSource{
		calls: []vapi.CallRecord{
			{"id": "offset", "created_at": now.Add(-30 * time.Minute).In(time.FixedZone("CET", 3600)).Format(time.RFC3339)},
			{"id": "old-offset", "created_at": now.Add(-48 * time.Hour).In(time.FixedZone("CET", 3600)).Format(time.RFC3339)},
		},
		transcripts: map[string]vapi.Transcript{
			"offset":     usable("Agent: hi"),
			"old-offset": usable("Agent: old"),
		},
	}
	p, sc, _ := newPipeline(src)

	p.ProcessRecent(context.Background(), "rubric", 24)
	assert.Equal(t, []string{"offset"}, sc.scored)
}

func TestProcessRecent_BatchCap(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	src := &fakeSource{transcripts: map[string]vapi.Transcript{}}
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("call-%02d", i)
		src.calls = append(src.calls, vapi.CallRecord{"id": id, "createdAt": now})
		src.transcripts[id] = usable("Agent: hello there")
	}
	p, sc, _ := newPipeline(src)

	results := p.ProcessRecent(context.Background(), "rubric", 24)

	assert.Len(t, results, 10)
	assert.Len(t, sc.scored, 10)
	assert.Equal(t, "call-00", sc.scored[0])
	assert.Equal(t, "call-09", sc.scored[9])
}

func TestProcessRecent_DedupInterleavedInPlace(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	src := &fakeSource{
		calls: []vapi.CallRecord{
			{"id": "a", "createdAt": now},
			{"id": "b", "createdAt": now},
			{"id": "c", "createdAt": now},
		},
		transcripts: map[string]vapi.Transcript{
			"a": usable("Agent: a"),
			"b": usable("Agent: b"),
			"c": usable("Agent: c"),
		},
	}
	p, sc, st := newPipeline(src)

	prior := store.CallAnalysis{CallID: "b", PerformanceScore: 3.3}
	st.PutIfAbsent("b", prior)

	results := p.ProcessRecent(context.Background(), "rubric", 24)

	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].CallID)
	assert.Equal(t, "b", results[1].CallID)
	assert.Equal(t, 3.3, results[1].PerformanceScore, "existing record returned without rescoring")
	assert.Equal(t, "c", results[2].CallID)
	assert.Equal(t, []string{"a", "c"}, sc.scored)
}

func TestProcessRecent_SkipsUnusableTranscripts(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	src := &fakeSource{
		calls: []vapi.CallRecord{
			{"id": "ok", "createdAt": now},
			{"id": "pending", "createdAt": now},
			{"id": "missing", "createdAt": now},
			{"id": "failed", "createdAt": now},
			{"id": "blank", "createdAt": now},
		},
		transcripts: map[string]vapi.Transcript{
			"ok":      usable("Agent: fine"),
			"pending": {Status: vapi.TranscriptPending},
			"missing": {Status: vapi.TranscriptUnavailable},
			"failed":  {Status: vapi.TranscriptFetchFailed},
			"blank":   {Status: vapi.TranscriptAvailable, Text: "   "},
		},
	}
	p, sc, _ := newPipeline(src)

	results := p.ProcessRecent(context.Background(), "rubric", 24)

	assert.Equal(t, []string{"ok"}, sc.scored)
	assert.Len(t, results, 1)
}

func TestProcessRecent_MetaForwarded(t *testing.T) {
	created := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	src := &fakeSource{
		calls: []vapi.CallRecord{
			{"id": "m", "createdAt": created, "duration": 33.0},
		},
		transcripts: map[string]vapi.Transcript{"m": usable("Agent: hi")},
	}
	p, _, st := newPipeline(src)

	p.ProcessRecent(context.Background(), "rubric", 24)

	stored, ok := st.Get("m")
	require.True(t, ok)
	assert.Equal(t, created, stored.CallTime)
	assert.Equal(t, 33.0, stored.Duration)
}

func TestProcessRecent_EmptyProvider(t *testing.T) {
	p, sc, _ := newPipeline(&fakeSource{})
	results := p.ProcessRecent(context.Background(), "rubric", 24)
	assert.Empty(t, results)
	assert.Empty(t, sc.scored)
}

func TestParseCallTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"zulu", "2026-08-30T10:00:00Z", false},
		{"offset", "2026-08-30T10:00:00+02:00", false},
		{"fractional zulu", "2026-08-30T10:00:00.123Z", false},
		{"naive", "2026-08-30T10:00:00", false},
		{"garbage", "last tuesday", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCallTime(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
