package domain

import "time"

// RawMessage is a user message as received. Never mutated after receipt.
type RawMessage struct {
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Language   Language  `json:"language"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// PIICategory names a class of personally identifying text.
type PIICategory string

const (
	PIIPhone    PIICategory = "phone"
	PIIEmail    PIICategory = "email"
	PIIIDNumber PIICategory = "id_number"
	PIIURL      PIICategory = "url"
	PIIHandle   PIICategory = "social_handle"
	PIIName     PIICategory = "name"
)

// Redaction records one replaced span.
type Redaction struct {
	Category PIICategory `json:"category"`
	Original string      `json:"-"`
}

// Rejection explains why a message cannot proceed.
type Rejection string

const (
	RejectNone    Rejection = ""
	RejectEmpty   Rejection = "empty"
	RejectTooLong Rejection = "too_long"
)

// SanitizedMessage pairs a raw message with its redacted form.
type SanitizedMessage struct {
	Raw        RawMessage  `json:"-"`
	Redacted   string      `json:"redacted"`
	Redactions []Redaction `json:"redactions,omitempty"`
	Rejection  Rejection   `json:"rejection,omitempty"`
}

// OK reports whether the message passed validation.
func (m SanitizedMessage) OK() bool { return m.Rejection == RejectNone }

// Categories returns the distinct redacted categories in first-seen order.
func (m SanitizedMessage) Categories() []PIICategory {
	seen := make(map[PIICategory]bool, len(m.Redactions))
	var out []PIICategory
	for _, r := range m.Redactions {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}
