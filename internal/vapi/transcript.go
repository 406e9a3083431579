package vapi

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
)

// TranscriptStatus tags the outcome of a transcript fetch so callers cannot
// mistake a literal transcript for a "not available" sentinel.
type TranscriptStatus int

const (
	// TranscriptAvailable means Text holds usable dialogue.
	TranscriptAvailable TranscriptStatus = iota
	// TranscriptPending means a recording exists but the provider has not
	// finished post-processing the transcript. Transient, retry later.
	TranscriptPending
	// TranscriptUnavailable means the call has no transcript in any form.
	TranscriptUnavailable
	// TranscriptFetchFailed means the provider could not be reached.
	TranscriptFetchFailed
)

// Transcript is the tagged result of FetchTranscript.
type Transcript struct {
	Status TranscriptStatus
	Text   string
}

// Usable reports whether the transcript carries dialogue worth scoring.
func (t Transcript) Usable() bool {
	return t.Status == TranscriptAvailable && strings.TrimSpace(t.Text) != ""
}

// FetchTranscript extracts the transcript for a call, trying in order: the
// direct transcript field, the message list reconstructed as "Role: content"
// lines, the nested artifact transcript, and finally a recording with no
// transcript yet.
func (c *Client) FetchTranscript(ctx context.Context, callID string) Transcript {
	body, err := c.get(ctx, "/call/"+callID)
	if err != nil {
		c.logger.Warn("failed to fetch transcript", "call_id", callID, "error", err)
		return Transcript{Status: TranscriptFetchFailed}
	}

	var call map[string]any
	if err := json.Unmarshal(body, &call); err != nil {
		c.logger.Warn("unparseable call payload", "call_id", callID, "error", err)
		return Transcript{Status: TranscriptFetchFailed}
	}

	if text, ok := call["transcript"].(string); ok && text != "" {
		return Transcript{Status: TranscriptAvailable, Text: text}
	}

	if msgs, ok := call["messages"].([]any); ok {
		if text := joinMessages(msgs); text != "" {
			return Transcript{Status: TranscriptAvailable, Text: text}
		}
	}

	if artifact, ok := call["artifact"].(map[string]any); ok {
		if text, ok := artifact["transcript"].(string); ok && text != "" {
			return Transcript{Status: TranscriptAvailable, Text: text}
		}
	}

	if _, ok := call["recordingUrl"]; ok {
		c.logger.Info("call has recording but no transcript yet", "call_id", callID)
		return Transcript{Status: TranscriptPending}
	}

	return Transcript{Status: TranscriptUnavailable}
}

func joinMessages(msgs []any) string {
	var parts []string
	for _, m := range msgs {
		msg, ok := m.(map[string]any)
		if !ok {
			continue
		}
		content, _ := msg["content"].(string)
		if content == "" {
			continue
		}
		role, _ := msg["role"].(string)
		if role == "" {
			role = "unknown"
		}
		parts = append(parts, titleCase(role)+": "+content)
	}
	return strings.Join(parts, "\n")
}

func titleCase(s string) string {
	prev := ' '
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(prev) {
			prev = r
			return unicode.ToUpper(r)
		}
		prev = r
		return r
	}, s)
}
