// Package conversation keeps per-session rolling context: bounded turn
// history, concepts already covered and the caregiver's emotional tone.
package conversation

import (
	"context"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// Store is session-partitioned conversation state. Callers guarantee at most
// one writer per session at a time.
type Store interface {
	// Read returns a snapshot. Unknown or expired sessions yield an empty
	// context, never an error.
	Read(ctx context.Context, sessionID string) (domain.ConversationContext, error)

	// Append adds a turn, evicting the oldest beyond the history cap.
	Append(ctx context.Context, sessionID string, turn domain.Turn) error

	// TrackConcepts records the concepts covered by an assistant reply.
	TrackConcepts(ctx context.Context, sessionID, reply string) error

	// EmotionalSummary describes the tone trend over recent user turns.
	EmotionalSummary(ctx context.Context, sessionID string) (string, error)
}

// Config bounds per-session state.
type Config struct {
	MaxTurns    int
	MaxConcepts int
	MaxTones    int
	IdleTTL     time.Duration
}

// DefaultConfig returns production limits.
func DefaultConfig() Config {
	return Config{
		MaxTurns:    10,
		MaxConcepts: 40,
		MaxTones:    10,
		IdleTTL:     30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxTurns <= 0 {
		c.MaxTurns = def.MaxTurns
	}
	if c.MaxConcepts <= 0 {
		c.MaxConcepts = def.MaxConcepts
	}
	if c.MaxTones <= 0 {
		c.MaxTones = def.MaxTones
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = def.IdleTTL
	}
	return c
}

// toneFor fills in a user turn's tone when the caller left it blank.
func toneFor(turn domain.Turn) domain.Tone {
	if turn.Tone != "" {
		return turn.Tone
	}
	return DetectTone(turn.Text)
}

func keepLast[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return append(s[:0:0], s[len(s)-n:]...)
}
