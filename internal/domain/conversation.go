package domain

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Tone is the emotional tone detected in a user turn.
type Tone string

const (
	ToneNeutral    Tone = "neutral"
	ToneWorried    Tone = "worried"
	ToneSad        Tone = "sad"
	ToneFrustrated Tone = "frustrated"
	TonePositive   Tone = "positive"
)

// Turn is a single exchange entry. Text is always redacted.
type Turn struct {
	Role  Role      `json:"role"`
	Text  string    `json:"text"`
	Topic Topic     `json:"topic,omitempty"`
	Tone  Tone      `json:"tone,omitempty"`
	At    time.Time `json:"at"`
}

// ConversationContext is a snapshot of one session's rolling state.
type ConversationContext struct {
	SessionID string    `json:"sessionId"`
	Turns     []Turn    `json:"turns,omitempty"`
	Concepts  []string  `json:"concepts,omitempty"`
	Tones     []Tone    `json:"tones,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`

	// UserTurnCount counts every user turn in the session, including
	// turns already evicted from Turns.
	UserTurnCount int `json:"userTurnCount"`
}

// UserTurns counts turns authored by the user.
func (c ConversationContext) UserTurns() int {
	n := 0
	for _, t := range c.Turns {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// Tone returns the latest detected user tone, or neutral.
func (c ConversationContext) Tone() Tone {
	if len(c.Tones) == 0 {
		return ToneNeutral
	}
	return c.Tones[len(c.Tones)-1]
}

// Profile holds optional demographic hints supplied by an external store.
type Profile struct {
	AgeBracket string `json:"ageBracket,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Region     string `json:"region,omitempty"`
}

// Empty reports whether no field is set.
func (p *Profile) Empty() bool {
	return p == nil || (p.AgeBracket == "" && p.Gender == "" && p.Region == "")
}
