package llm

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("test-provider", &MockClient{ProviderName: "test-provider"})

	client, err := reg.Resolve("test-provider")
	require.NoError(t, err)
	assert.Equal(t, "test-provider", client.Name())
}

func TestRegistryAliasAndFallback(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("gemini", &MockClient{ProviderName: "gemini"})
	reg.Alias("gemini-2.0-flash", "gemini")

	client, err := reg.Resolve("gemini-2.0-flash")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())

	_, err = reg.Resolve("unknown")
	assert.ErrorContains(t, err, "no provider")

	reg.SetFallback("gemini")
	client, err = reg.Resolve("unknown")
	require.NoError(t, err)
	assert.Equal(t, "gemini", client.Name())
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("b", &MockClient{ProviderName: "b"})
	reg.Register("a", &MockClient{ProviderName: "a"})
	assert.Equal(t, []string{"a", "b"}, reg.List())
}

func TestNewRegistryFromConfig(t *testing.T) {
	_, err := NewRegistryFromConfig(config.ProviderConfig{Name: "gemini"}, config.BreakerConfig{}, silentLog())
	assert.ErrorContains(t, err, "apiKey")

	_, err = NewRegistryFromConfig(config.ProviderConfig{Name: "llama", APIKey: "k"}, config.BreakerConfig{}, silentLog())
	assert.ErrorContains(t, err, "unknown provider")

	reg, err := NewRegistryFromConfig(
		config.ProviderConfig{Name: "gemini", APIKey: "k", Model: "gemini-2.0-flash"},
		config.BreakerConfig{Enabled: true, MaxFailures: 2, OpenSeconds: 5},
		silentLog(),
	)
	require.NoError(t, err)
	client, err := reg.Resolve("gemini-2.0-flash")
	require.NoError(t, err)
	_, isBreaker := client.(*BreakerClient)
	assert.True(t, isBreaker)
}

func TestNewRegistryFromConfigStreamClientHasNoTotalTimeout(t *testing.T) {
	reg, err := NewRegistryFromConfig(
		config.ProviderConfig{Name: "gemini", APIKey: "k", Model: "gemini-2.0-flash", TimeoutSeconds: 7},
		config.BreakerConfig{},
		silentLog(),
	)
	require.NoError(t, err)
	client, err := reg.Resolve("gemini-2.0-flash")
	require.NoError(t, err)
	g, ok := client.(*GeminiAPIClient)
	require.True(t, ok)

	assert.Equal(t, 7*time.Second, g.client.Timeout)
	assert.Zero(t, g.stream.Timeout)
	transport, ok := g.stream.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, transport.ResponseHeaderTimeout)
}
