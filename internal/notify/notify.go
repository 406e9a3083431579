// Package notify fans analysis events out over NATS for downstream
// consumers. The service runs fine without it; a nil *Notifier is a no-op.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
)

const (
	// SubjectAnalysisCompleted carries one AnalysisEvent per stored analysis.
	SubjectAnalysisCompleted = "callqa.analysis.completed"
	// SubjectRegistered announces the service on boot.
	SubjectRegistered = "callqa.service.registered"
)

// AnalysisEvent is the payload published on SubjectAnalysisCompleted.
type AnalysisEvent struct {
	CallID           string  `json:"call_id"`
	PerformanceScore float64 `json:"performance_score"`
	AnalyzedAt       string  `json:"analyzed_at"`
	Source           string  `json:"source"` // "pipeline" or "webhook"
}

type Notifier struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func New(url, token string, logger *slog.Logger) (*Notifier, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Notifier{conn: nc, logger: logger}, nil
}

func (n *Notifier) Publish(subject string, data any) error {
	if n == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.conn.Publish(subject, payload)
}

// AnalysisCompleted publishes the completion event for one stored analysis.
func (n *Notifier) AnalysisCompleted(a store.CallAnalysis, source string) {
	if n == nil {
		return
	}
	evt := AnalysisEvent{
		CallID:           a.CallID,
		PerformanceScore: a.PerformanceScore,
		AnalyzedAt:       a.AnalyzedAt.Format(time.RFC3339),
		Source:           source,
	}
	if err := n.Publish(SubjectAnalysisCompleted, evt); err != nil {
		n.logger.Warn("failed to publish analysis event", "call_id", a.CallID, "error", err)
	}
}

func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.conn.Close()
}
