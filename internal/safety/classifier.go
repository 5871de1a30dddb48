// Package safety classifies sanitized messages for emergencies, complexity
// and care topic.
package safety

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// Classifier is deterministic and performs no I/O. Safe for concurrent use.
type Classifier struct {
	lex Lexicon
}

// New creates a classifier. Keywords are case-folded once here.
func New(lex Lexicon) *Classifier {
	fold := func(words []string) []string {
		out := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				out = append(out, cases.Fold().String(w))
			}
		}
		return out
	}

	folded := Lexicon{
		Emergency: fold(lex.Emergency),
		Complex:   fold(lex.Complex),
		Medical:   fold(lex.Medical),
	}
	for _, r := range lex.Topics {
		folded.Topics = append(folded.Topics, TopicRule{Topic: r.Topic, Keywords: fold(r.Keywords)})
	}
	return &Classifier{lex: folded}
}

// NewDefault creates a classifier over the built-in lexicon.
func NewDefault() *Classifier { return New(DefaultLexicon()) }

// Classify returns the verdict for already-sanitized text.
func (c *Classifier) Classify(text string) domain.SafetyVerdict {
	folded := cases.Fold().String(text)

	if containsAny(folded, c.lex.Emergency) {
		return domain.SafetyVerdict{
			IsSafe:            false,
			EmergencyDetected: true,
			Flagged:           []domain.Category{domain.CategoryEmergency},
			RecommendHandoff:  true,
			Topic:             domain.TopicEmergency,
		}
	}

	v := domain.SafetyVerdict{IsSafe: true, Topic: c.topic(folded)}
	if containsAny(folded, c.lex.Complex) {
		v.RecommendHandoff = true
		v.Flagged = append(v.Flagged, domain.CategoryComplex)
	}
	if containsAny(folded, c.lex.Medical) {
		v.Flagged = append(v.Flagged, domain.CategoryMedical)
	}
	return v
}

func (c *Classifier) topic(folded string) domain.Topic {
	for _, r := range c.lex.Topics {
		if containsAny(folded, r.Keywords) {
			return r.Topic
		}
	}
	return domain.TopicGeneral
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
