package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/conversation"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/format"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/hooks"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/llm"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/orchestrator"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/store"
)

const testToken = "test-token-123"

func testServer(t *testing.T, client llm.Client, opts ...ServerOption) (*Server, *httptest.Server) {
	t.Helper()
	log := logging.New(nil, "silent")
	o := orchestrator.New(orchestrator.Config{
		Model:     "test-model",
		MaxTokens: 256,
		Retry:     orchestrator.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, orchestrator.Deps{
		Client: client,
		Store:  conversation.NewMemoryStore(conversation.DefaultConfig()),
		Log:    log,
	})

	srv := New(config.GatewayConfig{Token: testToken}, o, log, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func replying(text string) *llm.MockClient {
	return &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: text}, nil
		},
	}
}

func failing(err error) *llm.MockClient {
	return &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, err
		},
	}
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t, replying("ok"))

	resp := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	// Public endpoint only returns status
	assert.Empty(t, health.Version)
}

func TestNotFoundEndpoint(t *testing.T) {
	_, ts := testServer(t, replying("ok"))
	resp := doJSON(t, http.MethodGet, ts.URL+"/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	_, ts := testServer(t, replying("ok"))

	resp := doJSON(t, http.MethodGet, ts.URL+"/v1/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/v1/status", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", status.Status)
	assert.NotEmpty(t, status.Version)
	assert.Zero(t, status.ActiveSessions)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := testServer(t, replying("ok"))
	doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)

	// request metrics are recorded after the response is written
	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), `pranara_http_requests_total{method="GET",path="GET /health",status="200"}`) &&
			strings.Contains(string(body), "pranara_turns_in_flight")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestChatRequiresToken(t *testing.T) {
	_, ts := testServer(t, replying("ok"))
	body := ChatRequest{SessionID: "s1", Message: "สวัสดี"}

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	resp = doJSON(t, http.MethodPost, ts.URL+"/v1/chat", "wrong", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	out := decode[map[string]ErrorShape](t, resp)
	assert.Equal(t, "UNAUTHORIZED", out["error"].Code)
}

func TestChatAnswered(t *testing.T) {
	_, ts := testServer(t, replying("ลองเข้านอนให้เป็นเวลาค่ะ"))

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", testToken,
		ChatRequest{SessionID: "s1", Message: "แม่นอนไม่หลับ"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	out := decode[ChatResponse](t, resp)
	require.NotNil(t, out.Result)
	assert.Nil(t, out.Error)
	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, domain.OutcomeAnswered, out.Outcome)
	assert.Contains(t, out.Text, "ลองเข้านอนให้เป็นเวลาค่ะ")
	assert.NotEmpty(t, out.RecordID)
}

func TestChatStartsSession(t *testing.T) {
	_, ts := testServer(t, replying("ok"))

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", testToken, ChatRequest{Message: "hello", Language: "en"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[ChatResponse](t, resp)
	require.NotNil(t, out.Result)
	_, err := uuid.Parse(out.SessionID)
	assert.NoError(t, err)
}

func TestChatEmergencyBypassesProvider(t *testing.T) {
	var calls atomic.Int32
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls.Add(1)
			return &llm.CompletionResponse{Content: "no"}, nil
		},
	}
	_, ts := testServer(t, client)

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", testToken,
		ChatRequest{SessionID: "s1", Message: "ไม่สบาย หมดสติ"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[ChatResponse](t, resp)
	assert.Equal(t, domain.OutcomeEmergency, out.Outcome)
	assert.Contains(t, out.Text, "1669")
	assert.True(t, out.Handoff.ShouldRecommend)
	assert.Equal(t, int32(0), calls.Load())
}

func TestChatRejected(t *testing.T) {
	_, ts := testServer(t, replying("ok"))

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", testToken, ChatRequest{SessionID: "s1", Message: "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decode[ChatResponse](t, resp)
	require.NotNil(t, out.Error)
	assert.Equal(t, string(domain.KindInvalidInput), out.Error.Code)
	require.NotNil(t, out.Result)
	assert.Equal(t, domain.OutcomeRejected, out.Outcome)
	assert.NotEmpty(t, out.Text)
}

func TestChatInvalidLanguage(t *testing.T) {
	_, ts := testServer(t, replying("ok"))

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", testToken,
		ChatRequest{SessionID: "s1", Message: "bonjour", Language: "fr"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decode[ChatResponse](t, resp)
	assert.Nil(t, out.Result)
	require.NotNil(t, out.Error)
	assert.Equal(t, string(domain.KindInvalidInput), out.Error.Code)
}

func TestChatBadBody(t *testing.T) {
	_, ts := testServer(t, replying("ok"))
	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", testToken, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatProviderFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      domain.ErrorKind
		retryable bool
	}{
		{"fatal", &llm.ProviderError{Provider: "mock", Code: 401, Message: "bad key"}, http.StatusBadGateway, domain.KindProviderFatal, false},
		{"transient", &llm.ProviderError{Provider: "mock", Code: 503, Message: "busy"}, http.StatusServiceUnavailable, domain.KindProviderTransient, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := testServer(t, failing(tt.err))

			resp := doJSON(t, http.MethodPost, ts.URL+"/v1/chat", testToken,
				ChatRequest{SessionID: "s1", Message: "แม่นอนไม่หลับ"})
			assert.Equal(t, tt.status, resp.StatusCode)

			out := decode[ChatResponse](t, resp)
			require.NotNil(t, out.Error)
			assert.Equal(t, string(tt.code), out.Error.Code)
			assert.Equal(t, tt.retryable, out.Error.Retryable)
			require.NotNil(t, out.Result)
			assert.Equal(t, format.Apology(domain.LanguageThai), out.Text)
			assert.Equal(t, domain.OutcomeFailed, out.Outcome)
		})
	}
}

type fakeRecords struct {
	mu   sync.Mutex
	last store.Query
	recs []domain.TurnRecord
}

func (f *fakeRecords) List(ctx context.Context, q store.Query) ([]domain.TurnRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = q
	return f.recs, nil
}

func TestRecordsEndpoint(t *testing.T) {
	recs := &fakeRecords{recs: []domain.TurnRecord{{ID: "r1", SessionID: "s1", Outcome: domain.OutcomeAnswered}}}
	_, ts := testServer(t, replying("ok"), WithRecords(recs))

	resp := doJSON(t, http.MethodGet, ts.URL+"/v1/records?session=s1&outcome=answered&limit=5", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[map[string][]domain.TurnRecord](t, resp)
	require.Len(t, out["records"], 1)
	assert.Equal(t, "r1", out["records"][0].ID)
	assert.Equal(t, store.Query{SessionID: "s1", Outcome: domain.OutcomeAnswered, Limit: 5}, recs.last)

	resp = doJSON(t, http.MethodGet, ts.URL+"/v1/records?limit=many", testToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecordsEndpointUnconfigured(t *testing.T) {
	_, ts := testServer(t, replying("ok"))
	resp := doJSON(t, http.MethodGet, ts.URL+"/v1/records", testToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthRateLimit(t *testing.T) {
	_, ts := testServer(t, replying("ok"))

	for range authRateMaxFails {
		resp := doJSON(t, http.MethodGet, ts.URL+"/v1/status", "wrong", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := doJSON(t, http.MethodGet, ts.URL+"/v1/status", testToken, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		cfg  config.GatewayConfig
		want string
	}{
		{config.GatewayConfig{Bind: "loopback", Port: 1}, "127.0.0.1:1"},
		{config.GatewayConfig{Bind: "lan", Port: 2}, "0.0.0.0:2"},
		{config.GatewayConfig{Bind: "custom", CustomBindHost: "10.0.0.5", Port: 3}, "10.0.0.5:3"},
		{config.GatewayConfig{Bind: "custom", Port: 4}, "0.0.0.0:4"},
		{config.GatewayConfig{Port: 5}, "127.0.0.1:5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveBindAddr(tt.cfg))
	}
}

func TestServeEmitsLifecycleHooks(t *testing.T) {
	log := logging.New(nil, "silent")
	hm := hooks.NewManager(log)

	var (
		mu     sync.Mutex
		events []string
	)
	for _, ev := range []string{hooks.EventGatewayStart, hooks.EventGatewayStop} {
		hm.On(ev, "test", func(_ context.Context, p hooks.Payload) error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, p.Event)
			return nil
		})
	}

	o := orchestrator.New(orchestrator.Config{}, orchestrator.Deps{
		Client: replying("ok"),
		Store:  conversation.NewMemoryStore(conversation.DefaultConfig()),
		Log:    log,
	})
	srv := New(config.GatewayConfig{}, o, log, WithHooks(hm))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{hooks.EventGatewayStart, hooks.EventGatewayStop}, events)
}
