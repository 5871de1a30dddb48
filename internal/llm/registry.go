package llm

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
)

// Registry manages provider clients and resolves names to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered provider")
}

// Alias maps a model name to a provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the provider used when nothing else matches.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given name.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[name]; ok {
		return c, nil
	}
	if provider, ok := r.aliases[name]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no provider for %q", name)
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds a Registry holding the configured provider,
// wrapped in a circuit breaker when enabled.
func NewRegistryFromConfig(pc config.ProviderConfig, bc config.BreakerConfig, log *logging.Logger) (*Registry, error) {
	reg := NewRegistry(log)

	var client Client
	switch pc.Name {
	case "gemini", "":
		if pc.APIKey == "" {
			return nil, &config.ConfigError{Message: "provider.apiKey is required"}
		}
		timeout := timeoutOr(pc.Timeout(), 60*time.Second)
		opts := []GeminiOption{
			WithHTTPClient(&http.Client{Timeout: timeout}),
			// A total timeout would end long streamed replies mid-sentence.
			WithStreamHTTPClient(NewStreamHTTPClient(timeout)),
		}
		if pc.BaseURL != "" {
			opts = append(opts, WithBaseURL(pc.BaseURL))
		}
		client = NewGeminiAPIClient(pc.APIKey, pc.Model, opts...)
	default:
		return nil, &config.ConfigError{Message: fmt.Sprintf("unknown provider %q", pc.Name)}
	}

	if bc.Enabled {
		client = NewBreakerClient(client, BreakerConfig{
			MaxFailures: uint32(bc.MaxFailures),
			OpenTimeout: time.Duration(bc.OpenSeconds) * time.Second,
		}, log)
	}

	reg.Register(client.Name(), client)
	reg.SetFallback(client.Name())
	reg.Alias(pc.Model, client.Name())
	return reg, nil
}

func timeoutOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
