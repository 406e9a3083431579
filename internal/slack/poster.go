// Package slack posts low-score call alerts to a channel so operators hear
// about poor calls without watching the dashboard. Optional: the service
// runs without a token configured.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token     string
	channel   string
	threshold float64
	client    *http.Client
	logger    *slog.Logger
	apiURL    string
}

// NewPoster creates a poster that alerts on any analysis scoring below
// threshold.
func NewPoster(token, channel string, threshold float64, logger *slog.Logger) *Poster {
	return &Poster{
		token:     token,
		channel:   channel,
		threshold: threshold,
		client:    &http.Client{Timeout: 10 * time.Second},
		apiURL:    defaultPostMessageURL,
		logger:    logger,
	}
}

// MaybeAlert posts an alert when the analysis scores below the threshold.
// Posting failures are logged, never propagated: alerting is best-effort.
func (p *Poster) MaybeAlert(ctx context.Context, a store.CallAnalysis) {
	if p == nil {
		return
	}
	if a.PerformanceScore >= p.threshold {
		return
	}
	if err := p.post(ctx, formatAlert(a)); err != nil {
		p.logger.Warn("failed to post low-score alert", "call_id", a.CallID, "error", err)
		return
	}
	p.logger.Info("low-score alert posted", "call_id", a.CallID, "score", a.PerformanceScore)
}

func (p *Poster) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if !slackResp.OK {
		return fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return nil
}

func formatAlert(a store.CallAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *Low call score: %.1f/10*\n", a.PerformanceScore)
	fmt.Fprintf(&b, "Call `%s`", a.CallID)
	if a.CallTime != "" {
		fmt.Fprintf(&b, " at %s", a.CallTime)
	}
	b.WriteString("\n")
	for i, area := range a.ImprovementAreas {
		if i == 3 {
			fmt.Fprintf(&b, "• _and %d more_\n", len(a.ImprovementAreas)-3)
			break
		}
		fmt.Fprintf(&b, "• %s\n", area)
	}
	for _, issue := range a.ComplianceIssues {
		fmt.Fprintf(&b, ":warning: %s\n", issue)
	}
	return strings.TrimRight(b.String(), "\n")
}
