package conversation

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

type entry struct {
	mu      sync.Mutex
	state   domain.ConversationContext
	touched time.Time
	dead    bool // set by Sweep once removed from the map
}

// MemoryStore is an in-process Store. The map lock is held only for lookup;
// each session has its own lock, so sessions never wait on each other.
type MemoryStore struct {
	cfg Config
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

func (s *MemoryStore) expired(e *entry, now time.Time) bool {
	return now.Sub(e.touched) > s.cfg.IdleTTL
}

// lockEntry returns the session's live entry, locked. It creates one when
// absent, and replaces one that has idled past the TTL.
func (s *MemoryStore) lockEntry(sessionID string) *entry {
	for {
		s.mu.Lock()
		e, ok := s.sessions[sessionID]
		if !ok {
			e = &entry{state: domain.ConversationContext{SessionID: sessionID}, touched: s.now()}
			s.sessions[sessionID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		if now := s.now(); s.expired(e, now) {
			e.state = domain.ConversationContext{SessionID: sessionID}
			e.touched = now
		}
		return e
	}
}

func (s *MemoryStore) Read(_ context.Context, sessionID string) (domain.ConversationContext, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domain.ConversationContext{SessionID: sessionID}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead || s.expired(e, s.now()) {
		return domain.ConversationContext{SessionID: sessionID}, nil
	}
	snap := e.state
	snap.Turns = slices.Clone(e.state.Turns)
	snap.Concepts = slices.Clone(e.state.Concepts)
	snap.Tones = slices.Clone(e.state.Tones)
	return snap, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turn domain.Turn) error {
	e := s.lockEntry(sessionID)
	defer e.mu.Unlock()

	now := s.now()
	if turn.At.IsZero() {
		turn.At = now
	}
	if turn.Role == domain.RoleUser {
		turn.Tone = toneFor(turn)
		e.state.Tones = keepLast(append(e.state.Tones, turn.Tone), s.cfg.MaxTones)
		e.state.UserTurnCount++
	}
	e.state.Turns = keepLast(append(e.state.Turns, turn), s.cfg.MaxTurns)
	e.state.UpdatedAt = now
	e.touched = now
	return nil
}

func (s *MemoryStore) TrackConcepts(_ context.Context, sessionID, reply string) error {
	found := ExtractConcepts(reply)
	if len(found) == 0 {
		return nil
	}

	e := s.lockEntry(sessionID)
	defer e.mu.Unlock()

	for _, c := range found {
		if !slices.Contains(e.state.Concepts, c) {
			e.state.Concepts = append(e.state.Concepts, c)
		}
	}
	e.state.Concepts = keepLast(e.state.Concepts, s.cfg.MaxConcepts)
	e.touched = s.now()
	return nil
}

func (s *MemoryStore) EmotionalSummary(ctx context.Context, sessionID string) (string, error) {
	snap, err := s.Read(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return Summarize(snap.Tones), nil
}

// Len returns the number of tracked sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle past the TTL and returns how many it removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		if s.expired(e, now) {
			e.dead = true
			delete(s.sessions, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}
