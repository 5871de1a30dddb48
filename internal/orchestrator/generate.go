package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/llm"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/metrics"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/prompt"
)

// Reply is a completed generation.
type Reply struct {
	Text       string        `json:"text"`
	StopReason string        `json:"stopReason,omitempty"`
	Usage      llm.Usage     `json:"usage"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
}

// Chunk is one item of a generation stream. A stream ends with exactly one
// chunk that has Done or Err set.
type Chunk struct {
	Text  string
	Done  bool
	Reply *Reply
	Err   error
}

var errEmptyStream = errors.New("stream closed before any content")

func (o *Orchestrator) request(pkg prompt.Package) llm.CompletionRequest {
	return llm.CompletionRequest{
		Model:       o.cfg.Model,
		System:      pkg.System,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: pkg.User}},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}
}

// Generate makes a single-shot provider call under the retry policy.
// Errors are classified as PROVIDER_TRANSIENT or PROVIDER_FATAL; caller
// cancellation is returned as-is.
func (o *Orchestrator) Generate(ctx context.Context, pkg prompt.Package) (*Reply, error) {
	start := time.Now()
	req := o.request(pkg)

	var resp *llm.CompletionResponse
	attempts, err := o.retry(ctx, "generate", func(ctx context.Context) error {
		var err error
		resp, err = o.client.Complete(ctx, req)
		return err
	})
	metrics.ProviderDuration.WithLabelValues("once").Observe(time.Since(start).Seconds())
	if err != nil {
		o.log.Error().Err(err).Int("attempts", attempts).Msg("generation failed")
		return nil, err
	}

	return &Reply{
		Text:       resp.Content,
		StopReason: resp.StopReason,
		Usage:      resp.Usage,
		Attempts:   attempts,
		Duration:   time.Since(start),
	}, nil
}

// GenerateStream streams a provider call through the pacer. Failures before
// the first chunk are retried like Generate; a failure after it ends the
// stream with a STREAM_INTERRUPTED chunk, since restarting would repeat
// text the consumer already has. Cancelling ctx stops forwarding and
// releases the provider stream. The channel is always closed.
func (o *Orchestrator) GenerateStream(ctx context.Context, pkg prompt.Package) <-chan Chunk {
	out := make(chan Chunk)
	go o.stream(ctx, pkg, out, o.pacer)
	return out
}

func (o *Orchestrator) stream(ctx context.Context, pkg prompt.Package, out chan<- Chunk, pacer Pacer) {
	defer close(out)
	start := time.Now()
	defer func() {
		metrics.ProviderDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	emit := func(c Chunk) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	req := o.request(pkg)
	var (
		events <-chan llm.StreamEvent
		first  llm.StreamEvent
	)
	attempts, err := o.retry(ctx, "stream", func(ctx context.Context) error {
		attemptCtx, attemptCancel := context.WithCancel(ctx)
		ch, err := o.client.Stream(attemptCtx, req)
		if err != nil {
			attemptCancel()
			return err
		}
		ev, err := firstEvent(attemptCtx, ch)
		if err != nil {
			attemptCancel()
			drain(ch)
			return err
		}
		// The winning attempt lives as long as the stream.
		context.AfterFunc(ctx, attemptCancel)
		events, first = ch, ev
		return nil
	})
	if err != nil {
		o.log.Error().Err(err).Int("attempts", attempts).Msg("stream failed to start")
		emit(Chunk{Err: err})
		return
	}

	var full strings.Builder
	forward := func(piece string) bool { return emit(Chunk{Text: piece}) }

	ev, ok := first, true
	for {
		if !ok {
			emit(Chunk{Err: domain.Wrap(domain.KindStreamInterrupted, "stream", errEmptyStream)})
			return
		}
		switch ev.Type {
		case llm.EventDelta:
			full.WriteString(ev.Content)
			if !pacer.Pace(ctx, ev.Content, forward) {
				cancel()
				drain(events)
				return
			}
		case llm.EventDone:
			reply := &Reply{Text: full.String(), Attempts: attempts, Duration: time.Since(start)}
			if ev.Response != nil {
				reply.StopReason = ev.Response.StopReason
				reply.Usage = ev.Response.Usage
			}
			emit(Chunk{Done: true, Reply: reply})
			cancel()
			drain(events)
			return
		case llm.EventError:
			err := domain.Wrap(domain.KindStreamInterrupted, "stream", eventError(ev))
			o.log.Warn().Err(err).Int("received", full.Len()).Msg("stream interrupted")
			emit(Chunk{Err: err})
			cancel()
			drain(events)
			return
		}

		select {
		case ev, ok = <-events:
		case <-ctx.Done():
			cancel()
			drain(events)
			return
		}
	}
}

// firstEvent waits for the event that decides whether an attempt started.
// An error event or an empty stream counts as a failed attempt.
func firstEvent(ctx context.Context, ch <-chan llm.StreamEvent) (llm.StreamEvent, error) {
	select {
	case ev, ok := <-ch:
		if !ok {
			return ev, &llm.ProviderError{Reason: llm.ReasonNetwork, Message: errEmptyStream.Error()}
		}
		if ev.Type == llm.EventError {
			return ev, eventError(ev)
		}
		return ev, nil
	case <-ctx.Done():
		return llm.StreamEvent{}, ctx.Err()
	}
}

func eventError(ev llm.StreamEvent) error {
	if ev.Err != nil {
		return ev.Err
	}
	return errors.New(ev.Error)
}

// drain consumes ch until the producer closes it.
func drain(ch <-chan llm.StreamEvent) {
	for range ch {
	}
}
