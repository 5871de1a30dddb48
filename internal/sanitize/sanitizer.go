// Package sanitize validates inbound text and redacts personally identifying
// information before anything else sees it.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// Path selects the length limit applied to a message.
type Path int

const (
	PathStream Path = iota
	PathBatch
)

// Config bounds validation and redaction.
type Config struct {
	MinDigitRun    int
	MaxStreamRunes int
	MaxBatchRunes  int
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		MinDigitRun:    9,
		MaxStreamRunes: 2000,
		MaxBatchRunes:  5000,
	}
}

// Sanitizer is safe for concurrent use.
type Sanitizer struct {
	cfg Config
}

// New creates a sanitizer. Zero fields fall back to defaults.
func New(cfg Config) *Sanitizer {
	def := DefaultConfig()
	if cfg.MinDigitRun <= 0 {
		cfg.MinDigitRun = def.MinDigitRun
	}
	if cfg.MaxStreamRunes <= 0 {
		cfg.MaxStreamRunes = def.MaxStreamRunes
	}
	if cfg.MaxBatchRunes <= 0 {
		cfg.MaxBatchRunes = def.MaxBatchRunes
	}
	return &Sanitizer{cfg: cfg}
}

// Limit returns the maximum message length in runes for a path.
func (s *Sanitizer) Limit(p Path) int {
	if p == PathBatch {
		return s.cfg.MaxBatchRunes
	}
	return s.cfg.MaxStreamRunes
}

// Sanitize validates raw and produces its redacted form. It never fails;
// invalid input is reported through Rejection.
func (s *Sanitizer) Sanitize(raw domain.RawMessage, p Path) domain.SanitizedMessage {
	out := domain.SanitizedMessage{Raw: raw}

	text := strings.TrimSpace(Normalize(raw.Text))
	switch {
	case text == "":
		out.Rejection = domain.RejectEmpty
		return out
	case utf8.RuneCountInString(text) > s.Limit(p):
		out.Rejection = domain.RejectTooLong
		return out
	}

	out.Redacted, out.Redactions = s.Redact(text)
	return out
}

// Redact replaces PII in text with category tokens. Applying it to its own
// output changes nothing.
func (s *Sanitizer) Redact(text string) (string, []domain.Redaction) {
	var all []domain.Redaction
	for _, r := range rules {
		var found []domain.Redaction
		text, found = r.apply(text, s.cfg.MinDigitRun)
		all = append(all, found...)
		if r.category == domain.PIIName && len(found) > 0 {
			text, found = propagate(text, found)
			all = append(all, found...)
		}
	}
	return text, all
}

var thaiDigits = runes.Map(func(r rune) rune {
	if r >= '๐' && r <= '๙' {
		return '0' + (r - '๐')
	}
	return r
})

// Normalize composes text to NFC and folds Thai digits to ASCII.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	if folded, _, err := transform.String(thaiDigits, text); err == nil {
		return folded
	}
	return text
}
