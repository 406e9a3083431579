// Package summary reduces a batch of call analyses into score statistics and
// ranked issue/strength frequency tables.
package summary

import (
	"errors"
	"math"
	"sort"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
)

// ErrNoAnalyses is returned when summarizing an empty batch.
var ErrNoAnalyses = errors.New("no analyses to summarize")

const topN = 5

// ItemCount is one entry of a frequency table.
type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Distribution buckets scores into three bands.
type Distribution struct {
	Excellent        int `json:"excellent"`         // score >= 8
	Good             int `json:"good"`              // 6 <= score < 8
	NeedsImprovement int `json:"needs_improvement"` // score < 6
}

// Report is the derived summary over a batch. Never persisted.
type Report struct {
	TotalCalls          int                  `json:"total_calls_analyzed"`
	AverageScore        float64              `json:"average_performance_score"`
	HighestScore        float64              `json:"highest_score"`
	LowestScore         float64              `json:"lowest_score"`
	Distribution        Distribution         `json:"score_distribution"`
	TopStrengths        []ItemCount          `json:"top_strengths"`
	TopImprovementAreas []ItemCount          `json:"top_improvement_areas"`
	PromptSuggestions   []string             `json:"prompt_optimization_suggestions"`
	ComplianceConcerns  []string             `json:"compliance_concerns"`
	Analyses            []store.CallAnalysis `json:"individual_analyses"`
}

// Summarize computes the report for a non-empty batch.
func Summarize(analyses []store.CallAnalysis) (*Report, error) {
	if len(analyses) == 0 {
		return nil, ErrNoAnalyses
	}

	r := &Report{
		TotalCalls:   len(analyses),
		HighestScore: math.Inf(-1),
		LowestScore:  math.Inf(1),
		Analyses:     analyses,
	}

	var sum float64
	var strengths, improvements, suggestions, issues []string
	for _, a := range analyses {
		sum += a.PerformanceScore
		if a.PerformanceScore > r.HighestScore {
			r.HighestScore = a.PerformanceScore
		}
		if a.PerformanceScore < r.LowestScore {
			r.LowestScore = a.PerformanceScore
		}
		switch {
		case a.PerformanceScore >= 8:
			r.Distribution.Excellent++
		case a.PerformanceScore >= 6:
			r.Distribution.Good++
		default:
			r.Distribution.NeedsImprovement++
		}
		strengths = append(strengths, a.Strengths...)
		improvements = append(improvements, a.ImprovementAreas...)
		suggestions = append(suggestions, a.PromptSuggestions...)
		issues = append(issues, a.ComplianceIssues...)
	}
	r.AverageScore = sum / float64(len(analyses))

	r.TopStrengths = topCounts(strengths, topN)
	r.TopImprovementAreas = topCounts(improvements, topN)
	r.PromptSuggestions = distinct(suggestions)
	r.ComplianceConcerns = distinct(issues)
	return r, nil
}

// topCounts ranks items by descending frequency, ties broken by first-seen
// order, and returns at most n entries.
func topCounts(items []string, n int) []ItemCount {
	counts := make(map[string]int)
	var order []string
	for _, item := range items {
		if counts[item] == 0 {
			order = append(order, item)
		}
		counts[item]++
	}

	ranked := make([]ItemCount, 0, len(order))
	for _, item := range order {
		ranked = append(ranked, ItemCount{Item: item, Count: counts[item]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// distinct de-duplicates preserving first-seen order.
func distinct(items []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
