// Package webhook reacts to provider call lifecycle events. Reactions run on
// a background worker fed by a buffered channel so the HTTP acknowledgment
// never waits on the transcript delay or the scoring round trip. In-flight
// reactions are abandoned on shutdown; there is no delivery guarantee.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/notify"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/prompts"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/scorer"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/slack"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/vapi"
)

// EventCallEnded is the only event type that triggers a reaction.
const EventCallEnded = "call-ended"

const queueSize = 64

// Event is the normalized inbound webhook payload.
type Event struct {
	Type   string
	CallID string
}

// rawEvent absorbs both payload shapes the provider sends: flat {type, id}
// and the envelope form {message: {type, call: {id}}}.
type rawEvent struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Message struct {
		Type string `json:"type"`
		Call struct {
			ID string `json:"id"`
		} `json:"call"`
	} `json:"message"`
}

// ParseEvent normalizes a webhook payload. Unparseable payloads yield ok=false.
func ParseEvent(data []byte) (Event, bool) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, false
	}
	evt := Event{Type: raw.Type, CallID: raw.ID}
	if evt.Type == "" {
		evt.Type = raw.Message.Type
	}
	if evt.CallID == "" {
		evt.CallID = raw.Message.Call.ID
	}
	return evt, true
}

type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, callID string) vapi.Transcript
}

type Scorer interface {
	Score(ctx context.Context, transcript, rubric, callID string, meta scorer.Meta) store.CallAnalysis
}

type Reactor struct {
	source   TranscriptFetcher
	scorer   Scorer
	prompts  *prompts.Registry
	notifier *notify.Notifier
	alerts   *slack.Poster
	logger   *slog.Logger
	wait     time.Duration
	queue    chan string
}

// New creates a reactor. wait is how long to give the provider to finish
// transcript post-processing before fetching. notifier and alerts may be
// nil when NATS/Slack are not configured.
func New(source TranscriptFetcher, sc Scorer, reg *prompts.Registry, notifier *notify.Notifier, alerts *slack.Poster, wait time.Duration, logger *slog.Logger) *Reactor {
	return &Reactor{
		source:   source,
		scorer:   sc,
		prompts:  reg,
		notifier: notifier,
		alerts:   alerts,
		logger:   logger,
		wait:     wait,
		queue:    make(chan string, queueSize),
	}
}

// Run consumes queued reactions until ctx is cancelled. Call in a goroutine.
func (r *Reactor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("webhook reactor stopped", "abandoned", len(r.queue))
			return
		case callID := <-r.queue:
			r.react(ctx, callID)
		}
	}
}

// HandleEvent enqueues a reaction for call-ended events and ignores every
// other type. Never blocks: when the queue is full the event is dropped.
func (r *Reactor) HandleEvent(evt Event) {
	if evt.Type != EventCallEnded {
		r.logger.Debug("ignoring webhook event", "type", evt.Type)
		return
	}
	if evt.CallID == "" {
		r.logger.Warn("call-ended event without call id")
		return
	}
	select {
	case r.queue <- evt.CallID:
	default:
		r.logger.Warn("reaction queue full, dropping event", "call_id", evt.CallID)
	}
}

func (r *Reactor) react(ctx context.Context, callID string) {
	log := r.logger.With("call_id", callID, "reaction_id", uuid.New().String()[:8])

	rubric, ok := r.prompts.ActiveBody()
	if !ok {
		log.Info("no active rubric, skipping reaction")
		return
	}

	// Give the provider time to finish transcript post-processing.
	select {
	case <-ctx.Done():
		return
	case <-time.After(r.wait):
	}

	tr := r.source.FetchTranscript(ctx, callID)
	if !tr.Usable() {
		log.Info("no usable transcript for webhook reaction", "status", tr.Status)
		return
	}

	analysis := r.scorer.Score(ctx, tr.Text, rubric, callID, scorer.Meta{})
	log.Info("webhook reaction scored", "score", analysis.PerformanceScore)
	r.notifier.AnalysisCompleted(analysis, "webhook")
	r.alerts.MaybeAlert(ctx, analysis)
}
