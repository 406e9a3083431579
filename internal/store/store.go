package store

import (
	"sync"
	"time"
)

// CallAnalysis is the scored result for a single call. Records are immutable
// once stored; readers get value copies, never pointers into the store.
type CallAnalysis struct {
	CallID            string    `json:"call_id"`
	PerformanceScore  float64   `json:"performance_score"`
	Strengths         []string  `json:"strengths"`
	ImprovementAreas  []string  `json:"improvement_areas"`
	PromptSuggestions []string  `json:"prompt_suggestions"`
	ComplianceIssues  []string  `json:"compliance_issues"`
	DetailedAnalysis  string    `json:"detailed_analysis"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
	TranscriptExcerpt string    `json:"transcript_excerpt"`
	CallTime          string    `json:"call_time,omitempty"`
	Duration          float64   `json:"duration,omitempty"`
}

// AnalysisStore holds at most one analysis per call id, in insertion order.
type AnalysisStore struct {
	mu       sync.RWMutex
	byCallID map[string]CallAnalysis
	order    []string
}

func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		byCallID: make(map[string]CallAnalysis),
	}
}

// Get returns the analysis for callID, if one exists.
func (s *AnalysisStore) Get(callID string) (CallAnalysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byCallID[callID]
	return a, ok
}

// PutIfAbsent inserts the analysis unless callID is already present, in which
// case the existing record is returned unchanged. First writer wins; redundant
// scoring of the same call (manual batch racing a webhook) is a no-op.
func (s *AnalysisStore) PutIfAbsent(callID string, a CallAnalysis) CallAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byCallID[callID]; ok {
		return existing
	}
	s.byCallID[callID] = a
	s.order = append(s.order, callID)
	return a
}

// List returns all analyses in insertion order.
func (s *AnalysisStore) List() []CallAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CallAnalysis, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byCallID[id])
	}
	return out
}

// Count returns the number of stored analyses.
func (s *AnalysisStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCallID)
}
