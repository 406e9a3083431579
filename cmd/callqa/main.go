package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/api"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/config"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/notify"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/openai"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/pipeline"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/prompts"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/scorer"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/slack"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/store"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/vapi"
	"github.com/rudrasish2003/QA-CallAutomationAgent/internal/webhook"
)

const defaultRubricName = "Default Customer Service"

const defaultRubric = `You are a professional customer service agent. Your objectives are:

COMMUNICATION:
- Greet customers warmly and professionally
- Use active listening and acknowledge concerns
- Speak clearly and maintain appropriate pace
- Show empathy and understanding

PROBLEM RESOLUTION:
- Gather all necessary information before proposing solutions
- Provide accurate and helpful information
- Offer multiple options when available
- Follow up to ensure complete resolution

COMPLIANCE:
- Verify customer identity for account inquiries
- Follow data protection protocols
- Document interactions appropriately
- Escalate complex issues when necessary

SUCCESS METRICS:
- First call resolution when possible
- Customer satisfaction and positive experience
- Adherence to company policies
- Professional brand representation`

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("callqa starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.VapiAPIKey == "" {
		slog.Error("VAPI_API_KEY is required")
		os.Exit(1)
	}
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	calls := vapi.NewClient(cfg.VapiAPIKey, cfg.VapiBaseURL, slog.Default())
	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	slog.Info("openai client ready", "model", cfg.OpenAIModel)

	st := store.NewAnalysisStore()

	// Seed and activate the default rubric so scoring works out of the box.
	reg := prompts.NewRegistry()
	promptID := reg.Add(defaultRubricName, defaultRubric)
	if err := reg.Activate(promptID); err != nil {
		slog.Error("failed to activate default prompt", "error", err)
		os.Exit(1)
	}
	slog.Info("default system prompt active", "id", promptID)

	sc := scorer.New(llm, st, slog.Default())

	// NATS notifier (optional — callqa works without it, just no fan-out)
	var notifier *notify.Notifier
	if cfg.NatsURL != "" {
		var err error
		notifier, err = notify.New(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer notifier.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without event fan-out")
	}

	// Slack alerter (optional)
	var alerts *slack.Poster
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		alerts = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, cfg.AlertThreshold, slog.Default())
		slog.Info("slack alerter ready", "channel", cfg.SlackChannel, "threshold", cfg.AlertThreshold)
	} else {
		slog.Warn("slack not configured — running without low-score alerts")
	}

	pipe := pipeline.New(calls, sc, st, notifier, alerts, slog.Default())

	reactor := webhook.New(calls, sc, reg, notifier, alerts, cfg.WebhookWait, slog.Default())
	go reactor.Run(ctx)

	srv := api.NewServer(cfg.Port, reg, st, pipe, reactor, float64(cfg.HoursBack), slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if err := notifier.Publish(notify.SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("callqa ready", "port", cfg.Port, "hours_back", cfg.HoursBack)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("callqa stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
