package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/version"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiAPIClient is a direct HTTP client for the Google Gemini API.
type GeminiAPIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	stream  *http.Client
}

// GeminiOption customizes a GeminiAPIClient.
type GeminiOption func(*GeminiAPIClient)

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) GeminiOption {
	return func(g *GeminiAPIClient) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client for every call.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiAPIClient) { g.client, g.stream = c, c }
}

// WithStreamHTTPClient replaces the HTTP client used by Stream only. It
// should not carry a total Timeout, which would cut long replies off.
func WithStreamHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiAPIClient) { g.stream = c }
}

// NewStreamHTTPClient returns a client that waits at most headerTimeout for
// the response to start and then reads for as long as the request context
// allows.
func NewStreamHTTPClient(headerTimeout time.Duration) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: t}
}

// NewGeminiAPIClient creates a new Gemini API client.
func NewGeminiAPIClient(apiKey, model string, opts ...GeminiOption) *GeminiAPIClient {
	g := &GeminiAPIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		stream:  NewStreamHTTPClient(120 * time.Second),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Client = (*GeminiAPIClient)(nil)

// Name returns the provider name.
func (g *GeminiAPIClient) Name() string {
	return "gemini"
}

// Complete sends a non-streaming completion request to Gemini API.
func (g *GeminiAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := g.post(ctx, g.client, "generateContent", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Reason: ReasonNetwork, Message: "reading response", Err: err}
	}

	var result geminiAPIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Provider: g.Name(), Reason: ReasonMalformed, Message: "parsing response", Err: err}
	}
	if err := g.blocked(result.PromptFeedback.BlockReason, result.Candidates); err != nil {
		return nil, err
	}

	out := g.responseToCompletion(&result, time.Since(start))
	return out, nil
}

// Stream sends a streaming completion request to Gemini API. Failures to
// start the request are returned directly so callers can retry them.
func (g *GeminiAPIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	resp, err := g.post(ctx, g.stream, "streamGenerateContent?alt=sse", req)
	if err != nil {
		return nil, err
	}

	eventChan := make(chan StreamEvent)
	go g.readStream(ctx, resp, eventChan)
	return eventChan, nil
}

// ValidateConnection fetches the model's metadata.
func (g *GeminiAPIClient) ValidateConnection(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(httpReq)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return &ProviderError{Provider: g.Name(), Reason: ReasonNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return g.statusError(resp)
	}
	return nil
}

// Helper methods

func (g *GeminiAPIClient) post(ctx context.Context, client *http.Client, method string, req CompletionRequest) (*http.Response, error) {
	payload, err := json.Marshal(g.buildRequestBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	model := g.model
	if req.Model != "" {
		model = req.Model
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:%s", g.baseURL, model, method)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ProviderError{Provider: g.Name(), Reason: ReasonNetwork, Message: "request failed", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, g.statusError(resp)
	}
	return resp, nil
}

func (g *GeminiAPIClient) setHeaders(r *http.Request) {
	r.Header.Set("x-goog-api-key", g.apiKey)
	r.Header.Set("User-Agent", version.UserAgent())
}

func (g *GeminiAPIClient) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}
	return &ProviderError{Provider: g.Name(), Code: resp.StatusCode, Message: msg}
}

// blocked reports a safety block on the prompt or the first candidate.
func (g *GeminiAPIClient) blocked(promptBlock string, candidates []geminiCandidate) error {
	if promptBlock != "" {
		return &ProviderError{Provider: g.Name(), Reason: ReasonSafety, Message: "prompt blocked: " + promptBlock}
	}
	if len(candidates) > 0 {
		switch candidates[0].FinishReason {
		case "SAFETY", "BLOCKLIST", "PROHIBITED_CONTENT":
			return &ProviderError{Provider: g.Name(), Reason: ReasonSafety, Message: "response blocked: " + candidates[0].FinishReason}
		}
	}
	return nil
}

func (g *GeminiAPIClient) buildRequestBody(req CompletionRequest) geminiRequest {
	body := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}
	return body
}

func (g *GeminiAPIClient) readStream(ctx context.Context, resp *http.Response, eventChan chan<- StreamEvent) {
	defer close(eventChan)
	defer resp.Body.Close()

	scanner := newServerSentEventScanner(resp.Body)
	var (
		fullContent strings.Builder
		usage       Usage
		stopReason  string
	)

	for scanner.Scan() {
		var event geminiAPIResponse
		if err := json.Unmarshal([]byte(scanner.Data()), &event); err != nil {
			continue
		}
		if err := g.blocked(event.PromptFeedback.BlockReason, event.Candidates); err != nil {
			send(ctx, eventChan, errorEvent(err))
			return
		}

		for _, candidate := range event.Candidates {
			if candidate.FinishReason != "" {
				stopReason = candidate.FinishReason
			}
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				fullContent.WriteString(part.Text)
				if !send(ctx, eventChan, StreamEvent{Type: EventDelta, Content: part.Text}) {
					return
				}
			}
		}
		if event.UsageMetadata.CandidatesTokenCount > 0 {
			usage = Usage{
				InputTokens:  event.UsageMetadata.PromptTokenCount,
				OutputTokens: event.UsageMetadata.CandidatesTokenCount,
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		send(ctx, eventChan, errorEvent(&ProviderError{
			Provider: g.Name(), Reason: ReasonNetwork, Message: "stream read failed", Err: err,
		}))
		return
	}

	send(ctx, eventChan, StreamEvent{
		Type: EventDone,
		Response: &CompletionResponse{
			Content:    fullContent.String(),
			StopReason: stopReason,
			Usage:      usage,
			Model:      g.model,
		},
	})
}

func (g *GeminiAPIClient) responseToCompletion(resp *geminiAPIResponse, duration time.Duration) *CompletionResponse {
	var content strings.Builder
	stopReason := ""

	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		for _, part := range candidate.Content.Parts {
			content.WriteString(part.Text)
		}
		stopReason = candidate.FinishReason
	}

	return &CompletionResponse{
		Content:    content.String(),
		StopReason: stopReason,
		Usage: Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		},
		Model:    g.model,
		Duration: duration,
	}
}

// API request/response structures

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiAPIResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}
