package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "gemini", cfg.Provider.Name)
	assert.Equal(t, 3, cfg.Retry.Retries())
	assert.Equal(t, 1000, cfg.Retry.BaseDelayMs)
	assert.Equal(t, 9, cfg.Sanitizer.MinDigitRun)
	assert.Equal(t, 2000, cfg.Sanitizer.MaxStreamChars)
	assert.Equal(t, 5000, cfg.Sanitizer.MaxBatchChars)
	assert.Equal(t, "memory", cfg.Conversation.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Conversation.IdleTTL())
	assert.Equal(t, 8, cfg.Handoff.LongConversationTurns)
	assert.True(t, cfg.Streaming.PacingEnabled())
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, Validate(&cfg))
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 18790, cfg.Gateway.Port)
}

func TestLoadValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
provider:
  apiKey: abc
  model: gemini-2.5-flash
  temperature: 0.4
retry:
  maxRetries: 0
conversation:
  backend: redis
  maxTurns: 6
  redis:
    addr: redis:6379
streaming:
  pacing: false
logging:
  level: debug
  style: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Provider.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Provider.Model)
	require.NotNil(t, cfg.Provider.Temperature)
	assert.InDelta(t, 0.4, *cfg.Provider.Temperature, 1e-9)
	assert.Equal(t, 0, cfg.Retry.Retries())
	assert.Equal(t, "redis", cfg.Conversation.Backend)
	assert.Equal(t, 6, cfg.Conversation.MaxTurns)
	assert.Equal(t, 40, cfg.Conversation.MaxConcepts) // default kept
	assert.Equal(t, "redis:6379", cfg.Conversation.Redis.Addr)
	assert.False(t, cfg.Streaming.PacingEnabled())
	assert.Equal(t, "json", cfg.Logging.Style)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PRANARA_API_KEY", "from-env")
	t.Setenv("PRANARA_GATEWAY_PORT", "9000")
	t.Setenv("PRANARA_CONVERSATION_BACKEND", "REDIS")
	t.Setenv("PRANARA_PACING", "false")
	t.Setenv("PRANARA_LOG_LEVEL", "WARN")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Provider.APIKey)
	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, "redis", cfg.Conversation.Backend)
	assert.False(t, cfg.Streaming.PacingEnabled())
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("PRANARA_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gem")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gem", cfg.Provider.APIKey)
}

func TestExpandSensitiveFields(t *testing.T) {
	t.Setenv("MY_GEMINI_KEY", "secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  apiKey: ${MY_GEMINI_KEY}\ngateway:\n  token: ${UNSET_TOKEN_VAR}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Provider.APIKey)
	assert.Equal(t, "${UNSET_TOKEN_VAR}", cfg.Gateway.Token)
}

func TestRawRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	parts, err := ParseConfigPath("provider.model")
	require.NoError(t, err)
	SetValueAtPath(raw, parts, "gemini-2.5-pro")
	require.NoError(t, SaveRaw(path, raw))

	raw, err = LoadRaw(path)
	require.NoError(t, err)
	v, ok := GetValueAtPath(raw, parts)
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-pro", v)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", cfg.Provider.Model)
}
