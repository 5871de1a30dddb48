package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	StreamFunc   func(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
	ValidateFunc func(ctx context.Context) error
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return StreamOf("mock ", "stream response"), nil
}

func (m *MockClient) ValidateConnection(ctx context.Context) error {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// StreamOf returns a closed, buffered stream of the given deltas followed by
// a done event.
func StreamOf(deltas ...string) <-chan StreamEvent {
	ch := make(chan StreamEvent, len(deltas)+1)
	full := ""
	for _, d := range deltas {
		ch <- StreamEvent{Type: EventDelta, Content: d}
		full += d
	}
	ch <- StreamEvent{Type: EventDone, Response: &CompletionResponse{Content: full}}
	close(ch)
	return ch
}

// StreamFailing returns a closed stream of deltas ending in an error event.
func StreamFailing(err error, deltas ...string) <-chan StreamEvent {
	ch := make(chan StreamEvent, len(deltas)+1)
	for _, d := range deltas {
		ch <- StreamEvent{Type: EventDelta, Content: d}
	}
	ch <- errorEvent(err)
	close(ch)
	return ch
}
