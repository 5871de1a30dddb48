// Package handoff decides when to suggest a human expert.
package handoff

import (
	"regexp"
	"unicode"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// Config tunes the heuristics.
type Config struct {
	// LongConversationTurns is the user-turn count above which a handoff is
	// suggested.
	LongConversationTurns int
	// MixedScriptMinLetters is the minimum letter count of each script before
	// a message counts as mixed.
	MixedScriptMinLetters int
	// MixedScriptMinRatio is the minimum share of the minority script.
	MixedScriptMinRatio float64
	// ComplexTopics always trigger a complex_topic handoff.
	ComplexTopics []domain.Topic
}

// DefaultConfig returns production thresholds.
func DefaultConfig() Config {
	return Config{
		LongConversationTurns: 8,
		MixedScriptMinLetters: 4,
		MixedScriptMinRatio:   0.3,
		ComplexTopics:         []domain.Topic{domain.TopicMedication, domain.TopicFamily},
	}
}

// Decider is pure and safe for concurrent use.
type Decider struct {
	cfg     Config
	complex map[domain.Topic]bool
}

// New creates a decider. Zero fields fall back to defaults.
func New(cfg Config) *Decider {
	def := DefaultConfig()
	if cfg.LongConversationTurns <= 0 {
		cfg.LongConversationTurns = def.LongConversationTurns
	}
	if cfg.MixedScriptMinLetters <= 0 {
		cfg.MixedScriptMinLetters = def.MixedScriptMinLetters
	}
	if cfg.MixedScriptMinRatio <= 0 {
		cfg.MixedScriptMinRatio = def.MixedScriptMinRatio
	}
	if cfg.ComplexTopics == nil {
		cfg.ComplexTopics = def.ComplexTopics
	}
	d := &Decider{cfg: cfg, complex: make(map[domain.Topic]bool)}
	for _, t := range cfg.ComplexTopics {
		d.complex[t] = true
	}
	return d
}

// Decide evaluates the rules in precedence order; the first match wins.
// conversationLength counts user turns including the current one.
func (d *Decider) Decide(text string, topic domain.Topic, conversationLength int) domain.HandoffDecision {
	switch {
	case topic == domain.TopicEmergency:
		return recommend(domain.HandoffEmergency, domain.UrgencyHigh)
	case d.complex[topic]:
		return recommend(domain.HandoffComplexTopic, domain.UrgencyMedium)
	case d.mixedScript(text):
		return recommend(domain.HandoffComplexLanguage, domain.UrgencyLow)
	case conversationLength > d.cfg.LongConversationTurns:
		return recommend(domain.HandoffLongConversation, domain.UrgencyLow)
	default:
		return domain.HandoffDecision{Reason: domain.HandoffNone, Urgency: domain.UrgencyLow}
	}
}

func recommend(reason domain.HandoffReason, urgency domain.Urgency) domain.HandoffDecision {
	return domain.HandoffDecision{ShouldRecommend: true, Reason: reason, Urgency: urgency}
}

var redactionTokenRe = regexp.MustCompile(`\[[A-Z]+\]`)

// mixedScript reports heavy code-switching between Thai and other letters.
func (d *Decider) mixedScript(text string) bool {
	text = redactionTokenRe.ReplaceAllString(text, " ")

	var thai, other int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Thai, r) && unicode.IsLetter(r):
			thai++
		case unicode.IsLetter(r):
			other++
		}
	}
	if thai < d.cfg.MixedScriptMinLetters || other < d.cfg.MixedScriptMinLetters {
		return false
	}
	minority := min(thai, other)
	return float64(minority)/float64(thai+other) >= d.cfg.MixedScriptMinRatio
}
