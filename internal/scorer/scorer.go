// Package scorer turns one transcript plus one rubric into a CallAnalysis.
// Every path returns a record: a clean parse, a degraded record when the
// model's reply cannot be decoded, or an error record when the completion
// call itself fails. The three are distinguishable by their field values.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
)

const (
	maxCompletionTokens = 2000
	excerptLimit        = 1000
	rawReplyLimit       = 500
)

// CompletionClient is the completion endpoint boundary.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Meta carries provider call fields attached to the stored analysis.
type Meta struct {
	CallTime string
	Duration float64
}

type Scorer struct {
	llm    CompletionClient
	store  *store.AnalysisStore
	logger *slog.Logger
}

func New(llm CompletionClient, st *store.AnalysisStore, logger *slog.Logger) *Scorer {
	return &Scorer{llm: llm, store: st, logger: logger}
}

// llmAnalysis mirrors the JSON object the model is asked to produce. Fields
// are pointers/raw so absent and present-but-empty can be told apart.
type llmAnalysis struct {
	PerformanceScore json.RawMessage `json:"performance_score"`
	Strengths        []string        `json:"strengths"`
	ImprovementAreas []string        `json:"improvement_areas"`
	PromptSuggestion []string        `json:"prompt_suggestions"`
	ComplianceIssues []string        `json:"compliance_issues"`
	DetailedAnalysis string          `json:"detailed_analysis"`
}

// Score evaluates transcript against rubric. When callID is non-empty the
// result is persisted via put-if-absent and the stored record is returned,
// so a racing duplicate scoring never forks history.
func (s *Scorer) Score(ctx context.Context, transcript, rubric, callID string, meta Meta) store.CallAnalysis {
	prompt := fmt.Sprintf(analysisUserPrompt, rubric, transcript)

	s.logger.Info("scoring call",
		"call_id", callID,
		"transcript_len", len(transcript),
	)

	var analysis store.CallAnalysis
	raw, err := s.llm.Complete(ctx, analysisSystemPrompt, prompt, maxCompletionTokens)
	if err != nil {
		s.logger.Error("completion call failed", "call_id", callID, "error", err)
		analysis = apiErrorFallback(err)
	} else {
		analysis = s.parseReply(raw, callID)
	}

	if callID == "" {
		return analysis
	}

	analysis.CallID = callID
	analysis.AnalyzedAt = time.Now().UTC()
	analysis.TranscriptExcerpt = truncate(transcript, excerptLimit)
	analysis.CallTime = meta.CallTime
	analysis.Duration = meta.Duration
	return s.store.PutIfAbsent(callID, analysis)
}

func (s *Scorer) parseReply(raw, callID string) store.CallAnalysis {
	text := stripFence(raw)

	var parsed llmAnalysis
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		s.logger.Warn("unparseable analysis reply", "call_id", callID, "error", err)
		return parseFailureFallback(raw)
	}

	score := 5.0
	if len(parsed.PerformanceScore) > 0 {
		f, err := coerceFloat(parsed.PerformanceScore)
		if err != nil {
			s.logger.Warn("uncoercible performance score", "call_id", callID, "raw_score", string(parsed.PerformanceScore))
			return parseFailureFallback(raw)
		}
		score = f
	}

	detailed := parsed.DetailedAnalysis
	if detailed == "" {
		detailed = "Analysis completed"
	}

	return store.CallAnalysis{
		PerformanceScore:  score,
		Strengths:         orEmpty(parsed.Strengths),
		ImprovementAreas:  orEmpty(parsed.ImprovementAreas),
		PromptSuggestions: orEmpty(parsed.PromptSuggestion),
		ComplianceIssues:  orEmpty(parsed.ComplianceIssues),
		DetailedAnalysis:  detailed,
	}
}

// parseFailureFallback is the degraded-success record: the call completed and
// is still counted, but the reply could not be decoded.
func parseFailureFallback(raw string) store.CallAnalysis {
	return store.CallAnalysis{
		PerformanceScore:  5.0,
		Strengths:         []string{"Call completed successfully"},
		ImprovementAreas:  []string{"Manual review recommended - analysis parsing failed"},
		PromptSuggestions: []string{"System prompt may need refinement"},
		ComplianceIssues:  []string{},
		DetailedAnalysis:  "Automated analysis encountered parsing issues. Raw AI response: " + truncate(raw, rawReplyLimit),
	}
}

// apiErrorFallback marks a scoring attempt where the completion provider was
// unreachable. Distinguishable from parse failures by its zero score.
func apiErrorFallback(err error) store.CallAnalysis {
	return store.CallAnalysis{
		PerformanceScore:  0.0,
		Strengths:         []string{},
		ImprovementAreas:  []string{"Analysis failed - API error"},
		PromptSuggestions: []string{},
		ComplianceIssues:  []string{"System error during analysis"},
		DetailedAnalysis:  fmt.Sprintf("Analysis failed due to API error: %v", err),
	}
}

// stripFence removes exactly one markdown code fence, labeled or not, from
// around the reply.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func coerceFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return 0, fmt.Errorf("score is neither number nor numeric string: %s", string(raw))
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
