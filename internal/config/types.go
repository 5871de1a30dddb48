package config

import "time"

// Config is the root configuration for Pranara.
type Config struct {
	Provider     ProviderConfig     `yaml:"provider,omitempty"`
	Retry        RetryConfig        `yaml:"retry,omitempty"`
	Breaker      BreakerConfig      `yaml:"breaker,omitempty"`
	Sanitizer    SanitizerConfig    `yaml:"sanitizer,omitempty"`
	Conversation ConversationConfig `yaml:"conversation,omitempty"`
	Handoff      HandoffConfig      `yaml:"handoff,omitempty"`
	Streaming    StreamingConfig    `yaml:"streaming,omitempty"`
	Store        StoreConfig        `yaml:"store,omitempty"`
	Gateway      GatewayConfig      `yaml:"gateway,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
}

// ProviderConfig selects and configures the generative provider.
type ProviderConfig struct {
	Name           string   `yaml:"name,omitempty"` // "gemini"
	APIKey         string   `yaml:"apiKey,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	BaseURL        string   `yaml:"baseUrl,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
	MaxTokens      int      `yaml:"maxTokens,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
}

// Timeout returns the per-request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RetryConfig bounds provider retries.
type RetryConfig struct {
	MaxRetries  *int `yaml:"maxRetries,omitempty"`
	BaseDelayMs int  `yaml:"baseDelayMs,omitempty"`
	MaxDelayMs  int  `yaml:"maxDelayMs,omitempty"`
}

// Retries returns the configured retry count.
func (r RetryConfig) Retries() int {
	if r.MaxRetries == nil {
		return 3
	}
	return *r.MaxRetries
}

// BreakerConfig configures the provider circuit breaker.
type BreakerConfig struct {
	Enabled     bool `yaml:"enabled,omitempty"`
	MaxFailures int  `yaml:"maxFailures,omitempty"`
	OpenSeconds int  `yaml:"openSeconds,omitempty"`
}

// SanitizerConfig bounds input validation.
type SanitizerConfig struct {
	MinDigitRun    int `yaml:"minDigitRun,omitempty"`
	MaxStreamChars int `yaml:"maxStreamChars,omitempty"`
	MaxBatchChars  int `yaml:"maxBatchChars,omitempty"`
}

// ConversationConfig configures the session context store.
type ConversationConfig struct {
	Backend      string      `yaml:"backend,omitempty"` // "memory" | "redis"
	MaxTurns     int         `yaml:"maxTurns,omitempty"`
	MaxConcepts  int         `yaml:"maxConcepts,omitempty"`
	IdleMinutes  int         `yaml:"idleMinutes,omitempty"`
	SweepSeconds int         `yaml:"sweepSeconds,omitempty"`
	Redis        RedisConfig `yaml:"redis,omitempty"`
}

// IdleTTL returns how long an idle session is kept.
func (c ConversationConfig) IdleTTL() time.Duration {
	return time.Duration(c.IdleMinutes) * time.Minute
}

// RedisConfig locates the redis server for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// HandoffConfig tunes handoff heuristics.
type HandoffConfig struct {
	LongConversationTurns int     `yaml:"longConversationTurns,omitempty"`
	MixedScriptMinRatio   float64 `yaml:"mixedScriptMinRatio,omitempty"`
}

// StreamingConfig controls chunk pacing on the streaming path.
type StreamingConfig struct {
	Pacing         *bool `yaml:"pacing,omitempty"`
	ChunkThreshold int   `yaml:"chunkThreshold,omitempty"`
	MinPiece       int   `yaml:"minPiece,omitempty"`
	MaxPiece       int   `yaml:"maxPiece,omitempty"`
	MinDelayMs     int   `yaml:"minDelayMs,omitempty"`
	MaxDelayMs     int   `yaml:"maxDelayMs,omitempty"`
}

// PacingEnabled reports whether typing pacing is on. Defaults to true.
func (s StreamingConfig) PacingEnabled() bool {
	return s.Pacing == nil || *s.Pacing
}

// StoreConfig locates the sqlite analytics/profile database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty = <base>/data/pranara.db
}

// GatewayConfig controls the HTTP/WebSocket server.
type GatewayConfig struct {
	Port            int    `yaml:"port,omitempty"`
	Bind            string `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost  string `yaml:"customBindHost,omitempty"`
	Token           string `yaml:"token,omitempty"`
	ShutdownSeconds int    `yaml:"shutdownSeconds,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
	File  string `yaml:"file,omitempty"`
}
