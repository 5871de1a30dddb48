package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemoryStore(cfg Config) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(cfg)
	s.now = clock.Now
	return s, clock
}

func userTurn(text string) domain.Turn {
	return domain.Turn{Role: domain.RoleUser, Text: text, Topic: domain.TopicGeneral}
}

func TestMemoryStoreReadUnknownSession(t *testing.T) {
	s, _ := newTestMemoryStore(DefaultConfig())
	c, err := s.Read(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", c.SessionID)
	assert.Empty(t, c.Turns)
}

func TestMemoryStoreHistoryCap(t *testing.T) {
	s, _ := newTestMemoryStore(Config{MaxTurns: 3})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.Append(ctx, "s1", userTurn(fmt.Sprintf("turn %d", i))))
	}

	c, err := s.Read(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, c.Turns, 3)
	assert.Equal(t, "turn 3", c.Turns[0].Text)
	assert.Equal(t, "turn 5", c.Turns[2].Text)
	assert.Equal(t, 5, c.UserTurnCount)
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	s, _ := newTestMemoryStore(DefaultConfig())
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "s1", userTurn("hello")))

	c, _ := s.Read(ctx, "s1")
	c.Turns[0].Text = "mutated"

	again, _ := s.Read(ctx, "s1")
	assert.Equal(t, "hello", again.Turns[0].Text)
}

func TestMemoryStoreTonesOnlyFromUserTurns(t *testing.T) {
	s, _ := newTestMemoryStore(DefaultConfig())
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "s1", userTurn("ฉันกังวลเรื่องแม่มาก")))
	require.NoError(t, s.Append(ctx, "s1", domain.Turn{Role: domain.RoleAssistant, Text: "ขอบคุณที่เล่าให้ฟังค่ะ"}))
	require.NoError(t, s.Append(ctx, "s1", userTurn("ขอบคุณค่ะ รู้สึกดีขึ้น")))

	c, _ := s.Read(ctx, "s1")
	assert.Equal(t, []domain.Tone{domain.ToneWorried, domain.TonePositive}, c.Tones)
	assert.Equal(t, domain.ToneWorried, c.Turns[0].Tone)

	summary, err := s.EmotionalSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "mostly worried; latest positive; trend improving", summary)
}

func TestMemoryStoreTrackConcepts(t *testing.T) {
	s, _ := newTestMemoryStore(Config{MaxConcepts: 3})
	ctx := context.Background()

	require.NoError(t, s.TrackConcepts(ctx, "s1", "ลองจัดตารางการนอนและงดกาแฟช่วงบ่าย"))
	require.NoError(t, s.TrackConcepts(ctx, "s1", "Keep a sleep routine and drink water."))

	c, _ := s.Read(ctx, "s1")
	assert.Equal(t, []string{"sleep routine", "limit caffeine", "hydration"}, c.Concepts)

	require.NoError(t, s.TrackConcepts(ctx, "s1", "Install grab bars in the bathroom."))
	c, _ = s.Read(ctx, "s1")
	assert.Equal(t, []string{"limit caffeine", "hydration", "grab bars"}, c.Concepts)
}

func TestMemoryStoreIdleExpiry(t *testing.T) {
	s, clock := newTestMemoryStore(Config{IdleTTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "s1", userTurn("hi")))
	clock.Advance(2 * time.Minute)

	c, err := s.Read(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, c.Turns)

	// A write after expiry starts fresh.
	require.NoError(t, s.Append(ctx, "s1", userTurn("again")))
	c, _ = s.Read(ctx, "s1")
	require.Len(t, c.Turns, 1)
	assert.Equal(t, "again", c.Turns[0].Text)
}

func TestMemoryStoreSweep(t *testing.T) {
	s, clock := newTestMemoryStore(Config{IdleTTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "old", userTurn("a")))
	clock.Advance(90 * time.Second)
	require.NoError(t, s.Append(ctx, "fresh", userTurn("b")))

	assert.Equal(t, 1, s.Sweep(clock.Now()))
	assert.Equal(t, 1, s.Len())

	c, _ := s.Read(ctx, "fresh")
	assert.Len(t, c.Turns, 1)
}

func TestMemoryStoreConcurrentSessions(t *testing.T) {
	s, _ := newTestMemoryStore(Config{MaxTurns: 100})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = s.Append(ctx, id, userTurn("msg"))
				_, _ = s.Read(ctx, id)
			}
		}(fmt.Sprintf("s%d", i))
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		c, _ := s.Read(ctx, fmt.Sprintf("s%d", i))
		assert.Len(t, c.Turns, 20)
	}
}

func TestMemoryStoreRunStopsOnCancel(t *testing.T) {
	s := NewMemoryStore(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
