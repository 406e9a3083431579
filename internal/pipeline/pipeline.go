// Package pipeline orchestrates batch scoring of recent calls: list, filter
// by recency, dedup against the store, score, pace. One call's failure never
// aborts the batch.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/notify"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/scorer"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/slack"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/vapi"
)

const (
	// listLimit bounds how many ended calls one run pulls from the provider.
	listLimit = 100
	// maxPerRun caps scored calls per invocation to bound cost and latency.
	maxPerRun = 10
	// defaultPause spaces scoring calls to stay under provider rate limits.
	defaultPause = time.Second
)

// TranscriptSource is the provider boundary the pipeline pulls from.
type TranscriptSource interface {
	ListCalls(ctx context.Context, limit int, status string) []vapi.CallRecord
	FetchTranscript(ctx context.Context, callID string) vapi.Transcript
}

// Scorer evaluates one transcript and persists the result.
type Scorer interface {
	Score(ctx context.Context, transcript, rubric, callID string, meta scorer.Meta) store.CallAnalysis
}

type Pipeline struct {
	source   TranscriptSource
	scorer   Scorer
	store    *store.AnalysisStore
	notifier *notify.Notifier
	alerts   *slack.Poster
	logger   *slog.Logger
	pause    time.Duration
	now      func() time.Time
}

// New builds a pipeline. notifier and alerts may be nil when NATS/Slack are
// not configured.
func New(source TranscriptSource, sc Scorer, st *store.AnalysisStore, notifier *notify.Notifier, alerts *slack.Poster, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:   source,
		scorer:   sc,
		store:    st,
		notifier: notifier,
		alerts:   alerts,
		logger:   logger,
		pause:    defaultPause,
		now:      time.Now,
	}
}

// ProcessRecent scores calls created within the last hoursBack hours against
// rubric. Already-analyzed calls are returned from the store without
// rescoring, in their input position. A zero-length result can mean no recent
// calls, no transcripts ready, or everything previously analyzed.
func (p *Pipeline) ProcessRecent(ctx context.Context, rubric string, hoursBack float64) []store.CallAnalysis {
	runID := uuid.New().String()[:8]
	log := p.logger.With("run_id", runID)

	calls := p.source.ListCalls(ctx, listLimit, "ended")
	if len(calls) == 0 {
		log.Info("no calls returned by provider")
		return nil
	}

	cutoff := p.now().UTC().Add(-time.Duration(hoursBack * float64(time.Hour)))
	recent := filterRecent(calls, cutoff)
	log.Info("filtered recent calls",
		"fetched", len(calls),
		"recent", len(recent),
		"hours_back", hoursBack,
	)

	if len(recent) > maxPerRun {
		recent = recent[:maxPerRun]
	}

	var results []store.CallAnalysis
	var skippedNoTranscript, reused int
	for _, call := range recent {
		callID := call.ID()
		if callID == "" {
			log.Warn("call record without id, skipping")
			continue
		}

		if existing, ok := p.store.Get(callID); ok {
			reused++
			results = append(results, existing)
			continue
		}

		tr := p.source.FetchTranscript(ctx, callID)
		if !tr.Usable() {
			skippedNoTranscript++
			log.Info("no usable transcript, skipping",
				"call_id", callID,
				"status", tr.Status,
			)
			continue
		}

		analysis := p.scorer.Score(ctx, tr.Text, rubric, callID, scorer.Meta{
			CallTime: call.CreatedAtRaw(),
			Duration: call.DurationSeconds(),
		})
		results = append(results, analysis)
		log.Info("call analyzed",
			"call_id", callID,
			"score", analysis.PerformanceScore,
		)
		p.notifier.AnalysisCompleted(analysis, "pipeline")
		p.alerts.MaybeAlert(ctx, analysis)

		select {
		case <-ctx.Done():
			log.Warn("run cancelled", "error", ctx.Err())
			return results
		case <-time.After(p.pause):
		}
	}

	log.Info("run complete",
		"analyzed", len(results)-reused,
		"reused", reused,
		"skipped_no_transcript", skippedNoTranscript,
	)
	return results
}

// filterRecent keeps calls created after cutoff. Calls with an absent or
// unparseable timestamp are kept: ambiguous data is over-included rather than
// silently dropped, the filter is a cost guard, not a correctness guard.
func filterRecent(calls []vapi.CallRecord, cutoff time.Time) []vapi.CallRecord {
	var recent []vapi.CallRecord
	for _, call := range calls {
		raw := call.CreatedAtRaw()
		if raw == "" {
			recent = append(recent, call)
			continue
		}
		t, err := parseCallTime(raw)
		if err != nil {
			recent = append(recent, call)
			continue
		}
		if t.After(cutoff) {
			recent = append(recent, call)
		}
	}
	return recent
}

// parseCallTime accepts a trailing-Z or offset-bearing ISO timestamp, plus
// the naive form some provider versions emit, normalized to UTC.
func parseCallTime(raw string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
