package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	oneOf := func(path, value string, valid []string) {
		if value != "" && !slices.Contains(valid, value) {
			add(path, "must be one of %v, got %q", valid, value)
		}
	}

	oneOf("provider.name", cfg.Provider.Name, []string{"gemini"})
	if cfg.Provider.TimeoutSeconds < 0 {
		add("provider.timeoutSeconds", "must not be negative, got %d", cfg.Provider.TimeoutSeconds)
	}
	if t := cfg.Provider.Temperature; t != nil && (*t < 0 || *t > 2) {
		add("provider.temperature", "must be 0-2, got %g", *t)
	}

	if n := cfg.Retry.Retries(); n < 0 || n > 10 {
		add("retry.maxRetries", "must be 0-10, got %d", n)
	}
	if cfg.Retry.MaxDelayMs > 0 && cfg.Retry.MaxDelayMs < cfg.Retry.BaseDelayMs {
		add("retry.maxDelayMs", "must be at least baseDelayMs (%d), got %d", cfg.Retry.BaseDelayMs, cfg.Retry.MaxDelayMs)
	}

	if cfg.Sanitizer.MinDigitRun < 0 {
		add("sanitizer.minDigitRun", "must not be negative, got %d", cfg.Sanitizer.MinDigitRun)
	}
	if cfg.Sanitizer.MaxStreamChars > cfg.Sanitizer.MaxBatchChars && cfg.Sanitizer.MaxBatchChars > 0 {
		add("sanitizer.maxStreamChars", "must not exceed maxBatchChars (%d)", cfg.Sanitizer.MaxBatchChars)
	}

	oneOf("conversation.backend", cfg.Conversation.Backend, []string{"memory", "redis"})
	if cfg.Conversation.Backend == "redis" && cfg.Conversation.Redis.Addr == "" {
		add("conversation.redis.addr", "required when backend is redis")
	}
	if cfg.Conversation.MaxTurns < 0 {
		add("conversation.maxTurns", "must not be negative, got %d", cfg.Conversation.MaxTurns)
	}

	if r := cfg.Handoff.MixedScriptMinRatio; r < 0 || r > 0.5 {
		add("handoff.mixedScriptMinRatio", "must be 0-0.5, got %g", r)
	}

	if cfg.Streaming.MinPiece > cfg.Streaming.MaxPiece {
		add("streaming.minPiece", "must not exceed maxPiece (%d)", cfg.Streaming.MaxPiece)
	}
	if cfg.Streaming.MinDelayMs > cfg.Streaming.MaxDelayMs {
		add("streaming.minDelayMs", "must not exceed maxDelayMs (%d)", cfg.Streaming.MaxDelayMs)
	}

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}
	oneOf("gateway.bind", cfg.Gateway.Bind, []string{"loopback", "lan", "custom"})
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		add("gateway.customBindHost", "required when bind is custom")
	}
	if cfg.Gateway.Bind != "loopback" && cfg.Gateway.Token == "" {
		add("gateway.token", "required when bind is not loopback")
	}

	oneOf("logging.level", cfg.Logging.Level, []string{"silent", "error", "warn", "info", "debug", "trace"})
	oneOf("logging.style", cfg.Logging.Style, []string{"pretty", "json"})

	return issues
}
