package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// rule is one redaction pattern. Rules run in slice order.
type rule struct {
	category domain.PIICategory
	re       *regexp.Regexp
	group    int  // submatch holding the PII; 0 is the whole match
	numeric  bool // subject to digit-boundary and minimum-length checks
	trim     bool // strip trailing sentence punctuation from the match
	token    string
}

// Email and URL run before phone so digits inside them are consumed first.
// A URL glued to digits is still a URL; glued to letters it is not. Handles
// run last so email local-parts are never taken for handles, and a run of
// handles is one span.
var rules = []rule{
	{
		category: domain.PIIEmail,
		re:       regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		token:    "[EMAIL]",
	},
	{
		category: domain.PIIURL,
		re:       regexp.MustCompile(`(?i)(?:^|[^A-Za-z])((?:https?://|www\.)[^\s<>"]+)`),
		group:    1,
		trim:     true,
		token:    "[URL]",
	},
	{
		category: domain.PIIIDNumber,
		re:       regexp.MustCompile(`\d[ -]?\d{4}[ -]?\d{5}[ -]?\d{2}[ -]?\d`),
		numeric:  true,
		token:    "[ID]",
	},
	{
		category: domain.PIIPhone,
		re:       regexp.MustCompile(`(?:\+66[ .\-]?(?:\(0\)[ .\-]?)?|66|\(?0)(?:\)?[ .\-]?\d){8,9}`),
		numeric:  true,
		token:    "[PHONE]",
	},
	{
		category: domain.PIIIDNumber,
		re:       regexp.MustCompile(`\d+`),
		numeric:  true,
		token:    "[ID]",
	},
	{
		category: domain.PIIName,
		re:       regexp.MustCompile(`(?:ผมชื่อ|ฉันชื่อ|ดิฉันชื่อ|หนูชื่อ|เราชื่อ|ชื่อของฉันคือ|ชื่อของผมคือ)\s*(\p{Thai}+|[A-Za-z](?:[A-Za-z'\-]*[A-Za-z])?)`),
		group:    1,
		token:    "[NAME]",
	},
	{
		category: domain.PIIName,
		re:       regexp.MustCompile(`(?i)\b(?:my name is|i am called)\s+([a-z][a-z'\-]*[a-z])`),
		group:    1,
		token:    "[NAME]",
	},
	{
		category: domain.PIIHandle,
		re:       regexp.MustCompile(`(?:^|[^A-Za-z0-9._%+\-])((?:@[A-Za-z0-9_.]{2,30})+)`),
		group:    1,
		trim:     true,
		token:    "[HANDLE]",
	},
}

// apply replaces every accepted match of r in text.
func (r rule) apply(text string, minDigits int) (string, []domain.Redaction) {
	matches := r.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var (
		b     strings.Builder
		found []domain.Redaction
		last  int
	)
	for _, m := range matches {
		start, end := m[2*r.group], m[2*r.group+1]
		if start < 0 {
			continue
		}
		if r.trim {
			end = start + len(strings.TrimRight(text[start:end], ".,!?;:)"))
		}
		span := text[start:end]
		if span == "" || strings.HasPrefix(span, "[") {
			continue
		}
		if r.numeric && (digitAdjacent(text, start, end) || countDigits(span) < minDigits) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(r.token)
		last = end
		found = append(found, domain.Redaction{Category: r.category, Original: span})
	}
	if len(found) == 0 {
		return text, nil
	}
	b.WriteString(text[last:])
	return b.String(), found
}

func digitAdjacent(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isDigit(r) {
			return true
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isDigit(r) {
			return true
		}
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if isDigit(r) {
			n++
		}
	}
	return n
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

const tokenPattern = `\[[A-Z]+\]`

// propagate replaces later mentions of names already found. Latin names
// match as whole words; Thai has no word breaks so Thai names match
// anywhere. Existing tokens are left alone.
func propagate(text string, names []domain.Redaction) (string, []domain.Redaction) {
	var found []domain.Redaction
	for _, n := range names {
		pattern := regexp.QuoteMeta(n.Original)
		if strings.IndexFunc(n.Original, isASCIIWord) >= 0 {
			pattern = `(?i:\b` + pattern + `\b)`
		}
		re := regexp.MustCompile(tokenPattern + "|" + pattern)
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			if strings.HasPrefix(m, "[") {
				return m
			}
			found = append(found, domain.Redaction{Category: domain.PIIName, Original: m})
			return "[NAME]"
		})
	}
	return text, found
}

func isASCIIWord(r rune) bool {
	return r == '_' || isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
