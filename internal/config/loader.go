package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields lets credentials be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Provider.APIKey = expandEnvVars(cfg.Provider.APIKey)
	cfg.Conversation.Redis.Password = expandEnvVars(cfg.Conversation.Redis.Password)
	cfg.Gateway.Token = expandEnvVars(cfg.Gateway.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	setDefault(&cfg.Provider.Name, "gemini")
	setDefault(&cfg.Provider.Model, "gemini-2.0-flash")
	setDefault(&cfg.Provider.TimeoutSeconds, 60)
	setDefault(&cfg.Provider.MaxTokens, 2048)

	setDefault(&cfg.Retry.BaseDelayMs, 1000)
	setDefault(&cfg.Retry.MaxDelayMs, 8000)

	setDefault(&cfg.Breaker.MaxFailures, 5)
	setDefault(&cfg.Breaker.OpenSeconds, 30)

	setDefault(&cfg.Sanitizer.MinDigitRun, 9)
	setDefault(&cfg.Sanitizer.MaxStreamChars, 2000)
	setDefault(&cfg.Sanitizer.MaxBatchChars, 5000)

	setDefault(&cfg.Conversation.Backend, "memory")
	setDefault(&cfg.Conversation.MaxTurns, 10)
	setDefault(&cfg.Conversation.MaxConcepts, 40)
	setDefault(&cfg.Conversation.IdleMinutes, 30)
	setDefault(&cfg.Conversation.SweepSeconds, 60)
	setDefault(&cfg.Conversation.Redis.Addr, "localhost:6379")

	setDefault(&cfg.Handoff.LongConversationTurns, 8)
	setDefault(&cfg.Handoff.MixedScriptMinRatio, 0.3)

	setDefault(&cfg.Streaming.ChunkThreshold, 24)
	setDefault(&cfg.Streaming.MinPiece, 3)
	setDefault(&cfg.Streaming.MaxPiece, 8)
	setDefault(&cfg.Streaming.MinDelayMs, 15)
	setDefault(&cfg.Streaming.MaxDelayMs, 35)

	setDefault(&cfg.Gateway.Port, 18790)
	setDefault(&cfg.Gateway.Bind, "loopback")
	setDefault(&cfg.Gateway.ShutdownSeconds, 10)

	setDefault(&cfg.Logging.Level, "info")
	setDefault(&cfg.Logging.Style, "pretty")
}

// applyEnvOverrides reads PRANARA_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRANARA_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	} else if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("PRANARA_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("PRANARA_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("PRANARA_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("PRANARA_CONVERSATION_BACKEND"); v != "" {
		cfg.Conversation.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PRANARA_REDIS_ADDR"); v != "" {
		cfg.Conversation.Redis.Addr = v
	}
	if v := os.Getenv("PRANARA_PACING"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Streaming.Pacing = &on
		}
	}
	if v := os.Getenv("PRANARA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
