package slack

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
)

func testPoster(t *testing.T, threshold float64, handler http.HandlerFunc) (*Poster, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewPoster("xoxb-test", "C123", threshold, slog.Default())
	p.apiURL = srv.URL
	return p, srv
}

func TestMaybeAlert_PostsBelowThreshold(t *testing.T) {
	var posted map[string]any
	p, _ := testPoster(t, 4.0, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&posted); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	})

	p.MaybeAlert(context.Background(), store.CallAnalysis{
		CallID:           "call-1",
		PerformanceScore: 2.5,
		ImprovementAreas: []string{"listen more"},
		ComplianceIssues: []string{"no identity check"},
	})

	if posted == nil {
		t.Fatal("expected a message to be posted")
	}
	if posted["channel"] != "C123" {
		t.Errorf("expected channel C123, got %v", posted["channel"])
	}
	text, _ := posted["text"].(string)
	if !strings.Contains(text, "2.5/10") {
		t.Errorf("expected score in alert, got %q", text)
	}
	if !strings.Contains(text, "listen more") {
		t.Errorf("expected improvement area in alert, got %q", text)
	}
	if !strings.Contains(text, "no identity check") {
		t.Errorf("expected compliance issue in alert, got %q", text)
	}
}

func TestMaybeAlert_SkipsAtOrAboveThreshold(t *testing.T) {
	called := false
	p, _ := testPoster(t, 4.0, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"ok":true}`))
	})

	p.MaybeAlert(context.Background(), store.CallAnalysis{CallID: "c", PerformanceScore: 4.0})
	p.MaybeAlert(context.Background(), store.CallAnalysis{CallID: "c", PerformanceScore: 9.0})

	if called {
		t.Error("expected no post for scores at or above threshold")
	}
}

func TestMaybeAlert_SlackErrorLoggedNotFatal(t *testing.T) {
	p, _ := testPoster(t, 4.0, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	})

	// Must not panic or propagate.
	p.MaybeAlert(context.Background(), store.CallAnalysis{CallID: "c", PerformanceScore: 1.0})
}

func TestMaybeAlert_NilPosterNoOps(t *testing.T) {
	var p *Poster
	p.MaybeAlert(context.Background(), store.CallAnalysis{PerformanceScore: 0.0})
}

func TestFormatAlert_TruncatesImprovementAreas(t *testing.T) {
	text := formatAlert(store.CallAnalysis{
		CallID:           "c",
		PerformanceScore: 1.0,
		ImprovementAreas: []string{"a", "b", "c", "d", "e"},
	})
	if !strings.Contains(text, "and 2 more") {
		t.Errorf("expected truncation marker, got %q", text)
	}
	if strings.Contains(text, "• d") {
		t.Errorf("expected fourth area to be truncated, got %q", text)
	}
}
