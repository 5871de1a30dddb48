package format

import (
	"strings"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// BodyStream formats a reply while it arrives. Text is released one
// paragraph at a time, once a later paragraph has started, so that the
// concatenation of everything returned by Write and Flush equals Body of
// the whole reply.
type BodyStream struct {
	lang domain.Language
	raw  strings.Builder
	sent string
}

// NewBodyStream returns a stream for replies in lang.
func NewBodyStream(lang domain.Language) *BodyStream {
	return &BodyStream{lang: lang}
}

// Write adds delta and returns the formatted text that became final.
func (s *BodyStream) Write(delta string) string {
	s.raw.WriteString(delta)
	n := normalize(s.raw.String())
	// normalize trims the tail, so the last paragraph break is followed by
	// content and nothing before it can change.
	idx := strings.LastIndex(n, "\n\n")
	if idx <= 0 {
		return ""
	}
	return s.advance(splitParagraphs(n[:idx], s.lang))
}

// Flush returns the remaining formatted text once the reply is complete.
func (s *BodyStream) Flush() string {
	return s.advance(Body(s.raw.String(), s.lang))
}

func (s *BodyStream) advance(stable string) string {
	if len(stable) <= len(s.sent) || !strings.HasPrefix(stable, s.sent) {
		return ""
	}
	piece := stable[len(s.sent):]
	s.sent = stable
	return piece
}
