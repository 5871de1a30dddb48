package domain

import "time"

// Outcome is how a turn ended.
type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeEmergency   Outcome = "emergency"
	OutcomeRejected    Outcome = "rejected"
	OutcomeFailed      Outcome = "failed"
	OutcomeInterrupted Outcome = "interrupted"
)

// TurnRecord is the analytics record emitted once per turn.
type TurnRecord struct {
	ID                 string        `json:"id"`
	SessionID          string        `json:"sessionId"`
	Timestamp          time.Time     `json:"timestamp"`
	RedactedSnippet    string        `json:"redactedSnippet"`
	Topic              Topic         `json:"topic"`
	Flags              []Category    `json:"flags,omitempty"`
	HandoffRecommended bool          `json:"handoffRecommended"`
	HandoffReason      HandoffReason `json:"handoffReason"`
	Outcome            Outcome       `json:"outcome"`
	Language           Language      `json:"language"`
	Mode               Mode          `json:"mode"`
}

// SnippetRunes bounds the redacted snippet stored in a TurnRecord.
const SnippetRunes = 120

// Snippet truncates redacted text for a TurnRecord.
func Snippet(s string) string {
	r := []rune(s)
	if len(r) <= SnippetRunes {
		return s
	}
	return string(r[:SnippetRunes]) + "…"
}
