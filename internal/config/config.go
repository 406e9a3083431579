package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	LogLevel       string
	VapiAPIKey     string
	VapiBaseURL    string
	OpenAIAPIKey   string
	OpenAIModel    string
	HoursBack      int
	WebhookWait    time.Duration
	NatsURL        string
	NatsToken      string
	SlackBotToken  string
	SlackChannel   string
	AlertThreshold float64
}

func Load() Config {
	return Config{
		Port:           envInt("CALLQA_PORT", 8080),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		VapiAPIKey:     envStr("VAPI_API_KEY", ""),
		VapiBaseURL:    envStr("VAPI_BASE_URL", "https://api.vapi.ai"),
		OpenAIAPIKey:   envStr("OPENAI_API_KEY", ""),
		OpenAIModel:    envStr("OPENAI_MODEL", "gpt-4o-mini"),
		HoursBack:      envInt("CALLQA_HOURS_BACK", 24),
		WebhookWait:    envDuration("CALLQA_WEBHOOK_WAIT", 10*time.Second),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		SlackBotToken:  envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:   envStr("SLACK_ALERTS_CHANNEL", ""),
		AlertThreshold: envFloat("CALLQA_ALERT_THRESHOLD", 4.0),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
