package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/format"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/hooks"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/llm"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
)

func thai(session, text string) domain.RawMessage {
	return domain.RawMessage{SessionID: session, Text: text, Language: domain.LanguageThai}
}

func answering(reply string, seen *[]llm.CompletionRequest) *llm.MockClient {
	var mu sync.Mutex
	return &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if seen != nil {
				mu.Lock()
				*seen = append(*seen, req)
				mu.Unlock()
			}
			return &llm.CompletionResponse{Content: reply}, nil
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []string
	recs   []domain.TurnRecord
}

func (r *recorder) attach(m *hooks.Manager) {
	for _, ev := range hooks.AllEvents {
		m.On(ev, "recorder", func(_ context.Context, p hooks.Payload) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, p.Event)
			if p.Event == hooks.EventTurnCompleted {
				r.recs = append(r.recs, *p.Record)
			}
			return nil
		})
	}
}

func withHooks(r *recorder) func(*Deps) {
	return func(d *Deps) {
		m := hooks.NewManager(logging.New(nil, "silent"))
		r.attach(m)
		d.Hooks = m
	}
}

func TestHandleEmergencyBypassesProvider(t *testing.T) {
	var calls atomic.Int32
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls.Add(1)
			return &llm.CompletionResponse{Content: "should not happen"}, nil
		},
	}
	rec := &recorder{}
	o := newTestOrchestrator(client, withHooks(rec))

	res, err := o.Handle(context.Background(), thai("s1", "ไม่สบาย หมดสติ"), Options{})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, domain.OutcomeEmergency, res.Outcome)
	assert.True(t, res.Verdict.EmergencyDetected)
	assert.Equal(t, domain.TopicEmergency, res.Topic)
	assert.Equal(t, domain.HandoffEmergency, res.Handoff.Reason)
	assert.Equal(t, domain.UrgencyHigh, res.Handoff.Urgency)
	assert.Contains(t, res.Text, "1669")
	assert.Equal(t, 1, strings.Count(res.Text, "1669"))

	assert.Equal(t, []string{
		hooks.EventTurnCompleted, hooks.EventEmergencyDetected, hooks.EventHandoffRecommended,
	}, rec.events)
	assert.Equal(t, domain.OutcomeEmergency, rec.recs[0].Outcome)
	assert.Equal(t, res.RecordID, rec.recs[0].ID)
}

func TestHandleRedactsBeforeProvider(t *testing.T) {
	var seen []llm.CompletionRequest
	rec := &recorder{}
	o := newTestOrchestrator(answering("ลองจัดตารางการนอนค่ะ", &seen), withHooks(rec))

	res, err := o.Handle(context.Background(),
		thai("s1", "แม่นอนไม่หลับทุกคืน โทรหาฉันที่ 0812345678 ได้เลย"), Options{})
	require.NoError(t, err)
	require.Len(t, seen, 1)

	sent := seen[0].System + seen[0].Messages[0].Content
	assert.NotContains(t, sent, "0812345678")
	assert.Contains(t, seen[0].Messages[0].Content, "[PHONE]")
	assert.Contains(t, res.Redactions, domain.PIIPhone)
	assert.Equal(t, domain.TopicSleep, res.Topic)
	assert.Equal(t, domain.OutcomeAnswered, res.Outcome)

	require.Len(t, rec.recs, 1)
	assert.NotContains(t, rec.recs[0].RedactedSnippet, "0812345678")

	cc, err := o.store.Read(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, cc.Turns, 2)
	assert.NotContains(t, cc.Turns[0].Text, "0812345678")
	assert.Equal(t, domain.RoleAssistant, cc.Turns[1].Role)
	assert.Equal(t, 1, cc.UserTurnCount)
}

func TestHandleAuthErrorReturnsApology(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	o := newTestOrchestrator(&llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls.Add(1)
			return nil, unauthorized()
		},
	}, withHooks(rec))

	res, err := o.Handle(context.Background(), thai("s1", "แม่นอนไม่หลับ"), Options{})
	require.Error(t, err)
	assert.Equal(t, domain.KindProviderFatal, domain.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
	require.NotNil(t, res)
	assert.Equal(t, format.Apology(domain.LanguageThai), res.Text)
	assert.NotContains(t, res.Text, "API key")
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Contains(t, rec.events, hooks.EventProviderFailed)

	cc, _ := o.store.Read(context.Background(), "s1")
	assert.Empty(t, cc.Turns, "failed turns are not written to history")
}

func TestHandleRejectsInvalidInput(t *testing.T) {
	o := newTestOrchestrator(answering("x", nil))

	res, err := o.Handle(context.Background(), thai("s1", "   "), Options{})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	require.NotNil(t, res)
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)
	assert.Equal(t, format.Rejected(domain.LanguageThai, domain.RejectEmpty), res.Text)

	long := strings.Repeat("ก", 2001)
	res, err = o.Handle(context.Background(), thai("s1", long), Options{Path: 0})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.Equal(t, format.Rejected(domain.LanguageThai, domain.RejectTooLong), res.Text)

	_, err = o.Handle(context.Background(), domain.RawMessage{SessionID: "s1", Text: "hi", Language: "fr"}, Options{})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	_, err = o.Handle(context.Background(), thai("s1", "hi"), Options{Mode: "poetry"})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	_, err = o.Handle(context.Background(), thai("", "hi"), Options{})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestHandleLongConversationHandoff(t *testing.T) {
	o := newTestOrchestrator(answering("ลองจัดตารางการนอนค่ะ", nil))
	ctx := context.Background()

	for i := 1; i <= 9; i++ {
		res, err := o.Handle(ctx, thai("s1", fmt.Sprintf("คืนที่ %d แม่ยังนอนไม่หลับ", i)), Options{})
		require.NoError(t, err)
		if i < 9 {
			assert.False(t, res.Handoff.ShouldRecommend, "turn %d", i)
			continue
		}
		assert.True(t, res.Handoff.ShouldRecommend)
		assert.Equal(t, domain.HandoffLongConversation, res.Handoff.Reason)
		assert.Equal(t, domain.UrgencyLow, res.Handoff.Urgency)
	}
}

func TestHandleComplexTopicHandoff(t *testing.T) {
	var seen []llm.CompletionRequest
	o := newTestOrchestrator(answering("เรื่องนี้ควรปรึกษาเภสัชกรค่ะ", &seen))

	res, err := o.Handle(context.Background(), thai("s1", "แม่กินยาหลายตัว กลัวยาตีกัน"), Options{})
	require.NoError(t, err)
	assert.True(t, res.Handoff.ShouldRecommend)
	assert.Contains(t, res.Text, "ผู้เชี่ยวชาญ")
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0].System, "human expert")
}

func TestHandleSerializesSameSession(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			n := inFlight.Add(1)
			for {
				m := maxInFlight.Load()
				if n <= m || maxInFlight.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}
	o := newTestOrchestrator(client)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Handle(context.Background(), thai("same", "แม่นอนไม่หลับ"), Options{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	cc, _ := o.store.Read(context.Background(), "same")
	assert.Equal(t, 5, cc.UserTurnCount)
	assert.Equal(t, 0, o.ActiveSessions())
}

func TestHandleSessionsDoNotBlockEachOther(t *testing.T) {
	bDone := make(chan struct{})
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if strings.Contains(req.Messages[0].Content, "A") {
				select {
				case <-bDone:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}
	o := newTestOrchestrator(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errA := make(chan error, 1)
	go func() {
		_, err := o.Handle(ctx, thai("a", "message A"), Options{})
		errA <- err
	}()

	_, err := o.Handle(ctx, thai("b", "message B"), Options{})
	require.NoError(t, err)
	close(bDone)
	require.NoError(t, <-errA)
}

type stubAnalyzer struct {
	calls    atomic.Int32
	findings []string
	err      error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) ([]string, error) {
	s.calls.Add(1)
	return s.findings, s.err
}

func TestHandleAnalyzerOnlyInIntelligenceMode(t *testing.T) {
	var seen []llm.CompletionRequest
	an := &stubAnalyzer{findings: []string{"blood sugar readings trend high in the morning"}}
	o := newTestOrchestrator(answering("ok", &seen), func(d *Deps) { d.Analyzer = an })
	ctx := context.Background()

	_, err := o.Handle(ctx, thai("s1", "เบาหวานของแม่"), Options{Mode: domain.ModeConversation})
	require.NoError(t, err)
	assert.Equal(t, int32(0), an.calls.Load())

	_, err = o.Handle(ctx, thai("s1", "เบาหวานของแม่"), Options{Mode: domain.ModeIntelligence})
	require.NoError(t, err)
	assert.Equal(t, int32(1), an.calls.Load())
	require.Len(t, seen, 2)
	assert.Contains(t, seen[1].System, "blood sugar readings trend high")

	an.err = errors.New("analysis backend down")
	res, err := o.Handle(ctx, thai("s1", "เบาหวานของแม่"), Options{Mode: domain.ModeIntelligence})
	require.NoError(t, err, "analysis failures are ignored")
	assert.Equal(t, domain.OutcomeAnswered, res.Outcome)
}

type stubProfiles map[string]*domain.Profile

func (s stubProfiles) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	return s[id], nil
}

func TestHandleUsesProfile(t *testing.T) {
	var seen []llm.CompletionRequest
	profiles := stubProfiles{"s1": {AgeBracket: "80+", Region: "Chiang Mai"}}
	o := newTestOrchestrator(answering("ok", &seen), func(d *Deps) { d.Profiles = profiles })

	_, err := o.Handle(context.Background(), thai("s1", "แม่นอนไม่หลับ"), Options{})
	require.NoError(t, err)
	assert.Contains(t, seen[0].System, "age 80+")
	assert.Contains(t, seen[0].System, "lives in Chiang Mai")
}

func TestHandleFormatsReply(t *testing.T) {
	o := newTestOrchestrator(answering("```\nควบคุมอาหารและตรวจน้ำตาลสม่ำเสมอค่ะ\n\n\n\nออกกำลังกายเบา ๆ\n```", nil))

	res, err := o.Handle(context.Background(), thai("s1", "แม่เป็นเบาหวาน ควรกินอะไรดี"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.TopicDiabetes, res.Topic)
	assert.NotContains(t, res.Text, "```")
	assert.NotContains(t, res.Text, "\n\n\n")
	assert.True(t, strings.HasPrefix(res.Text, "ควบคุมอาหาร"))
}

func collectEvents(t *testing.T, ch <-chan Event) (string, Event) {
	t.Helper()
	var text strings.Builder
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("stream closed without a final event")
			}
			if ev.Done {
				_, open := <-ch
				assert.False(t, open)
				return text.String(), ev
			}
			text.WriteString(ev.Text)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestHandleStream(t *testing.T) {
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			return llm.StreamOf("ควบคุมอาหาร", "และตรวจน้ำตาลค่ะ"), nil
		},
	}
	o := newTestOrchestrator(client, func(d *Deps) {
		d.Pacer = NewTypingPacer(PacingConfig{Threshold: 3, MinPiece: 1, MaxPiece: 3}, 11)
	})

	ch, err := o.HandleStream(context.Background(), thai("s1", "แม่เป็นเบาหวาน"), Options{})
	require.NoError(t, err)

	text, last := collectEvents(t, ch)
	require.NoError(t, last.Err)
	require.NotNil(t, last.Result)
	assert.Equal(t, domain.OutcomeAnswered, last.Result.Outcome)
	assert.True(t, strings.HasPrefix(text, "ควบคุมอาหารและตรวจน้ำตาลค่ะ"))
	assert.Equal(t, last.Result.Text, text, "streamed text plus trailing additions equals the formatted reply")

	cc, _ := o.store.Read(context.Background(), "s1")
	assert.Len(t, cc.Turns, 2)
}

func TestHandleStreamSendsFormattedReply(t *testing.T) {
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			return llm.StreamOf("```\nลองเข้า", "นอนเป็นเวลาค่ะ\n``", "`\n\n\n", "\nดื่มน้ำอุ่น", "ก่อนนอนค่ะ   \r\n"), nil
		},
	}
	o := newTestOrchestrator(client, func(d *Deps) {
		d.Pacer = NewTypingPacer(PacingConfig{Threshold: 4, MinPiece: 1, MaxPiece: 5}, 3)
	})

	ch, err := o.HandleStream(context.Background(), thai("s1", "แม่นอนไม่หลับ"), Options{})
	require.NoError(t, err)

	text, last := collectEvents(t, ch)
	require.NoError(t, last.Err)
	require.NotNil(t, last.Result)
	assert.Equal(t, last.Result.Text, text)
	assert.NotContains(t, text, "```")
	assert.True(t, strings.HasPrefix(text, "ลองเข้านอนเป็นเวลาค่ะ\n\nดื่มน้ำอุ่นก่อนนอนค่ะ"))
}

func TestHandleStreamLockWaitCanceled(t *testing.T) {
	o := newTestOrchestrator(&llm.MockClient{})
	release, err := o.locks.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ch, err := o.HandleStream(ctx, thai("s1", "แม่นอนไม่หลับ"), Options{})
	require.NoError(t, err)

	text, last := collectEvents(t, ch)
	assert.Empty(t, text)
	assert.True(t, last.Done)
	assert.Nil(t, last.Result)
	assert.ErrorIs(t, last.Err, context.DeadlineExceeded)
}

func TestHandleStreamEmergency(t *testing.T) {
	var calls atomic.Int32
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			calls.Add(1)
			return llm.StreamOf("no"), nil
		},
	}
	o := newTestOrchestrator(client)

	ch, err := o.HandleStream(context.Background(), thai("s1", "พ่อหายใจไม่ออก"), Options{})
	require.NoError(t, err)
	text, last := collectEvents(t, ch)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, domain.OutcomeEmergency, last.Result.Outcome)
	assert.Equal(t, last.Result.Text, text)
	assert.Contains(t, text, "1669")
}

func TestHandleStreamInterrupted(t *testing.T) {
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			return llm.StreamFailing(transient(), "ลองจัด"), nil
		},
	}
	rec := &recorder{}
	o := newTestOrchestrator(client, withHooks(rec))

	ch, err := o.HandleStream(context.Background(), thai("s1", "แม่นอนไม่หลับ"), Options{})
	require.NoError(t, err)
	text, last := collectEvents(t, ch)
	assert.Equal(t, "ลองจัด", text)
	assert.Equal(t, domain.KindStreamInterrupted, domain.KindOf(last.Err))
	assert.Equal(t, domain.OutcomeInterrupted, last.Result.Outcome)
	assert.Equal(t, format.Apology(domain.LanguageThai), last.Result.Text)
	assert.Contains(t, rec.events, hooks.EventProviderFailed)
}

func TestHandleStreamInvalidInput(t *testing.T) {
	o := newTestOrchestrator(&llm.MockClient{})
	_, err := o.HandleStream(context.Background(), thai("", "hi"), Options{})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestHandleStreamConsumerCancel(t *testing.T) {
	released := make(chan struct{})
	client := &llm.MockClient{
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			ch := make(chan llm.StreamEvent)
			go func() {
				defer close(released)
				defer close(ch)
				for {
					select {
					case ch <- llm.StreamEvent{Type: llm.EventDelta, Content: "ลองนอนให้เป็นเวลา\n\n"}:
					case <-ctx.Done():
						return
					}
				}
			}()
			return ch, nil
		},
	}
	rec := &recorder{}
	o := newTestOrchestrator(client, withHooks(rec))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := o.HandleStream(ctx, thai("s1", "แม่นอนไม่หลับ"), Options{})
	require.NoError(t, err)
	<-ch
	cancel()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("provider stream was not released")
	}
	for range ch {
	}

	require.Eventually(t, func() bool { return o.ActiveSessions() == 0 }, 5*time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.recs, 1)
	assert.Equal(t, domain.OutcomeInterrupted, rec.recs[0].Outcome)
}
