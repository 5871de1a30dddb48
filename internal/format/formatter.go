// Package format post-processes provider replies before they reach the user.
package format

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// ParagraphRunes is the length above which a paragraph is split at
// sentence ends. Shorter paragraphs keep their sentences together: Thai
// replies end nearly every clause with a polite particle, and breaking on
// each one would leave a reply of one-line paragraphs.
const ParagraphRunes = 280

var (
	codeFenceRe       = regexp.MustCompile("(?m)^[ \t]*```[^\n]*\n?")
	whitespaceLineRe  = regexp.MustCompile(`(?m)[ \t]+$`)
	blankLineCollapse = regexp.MustCompile(`\n{3,}`)

	englishSentenceEnd = regexp.MustCompile(`([.!?])[ \t]+`)
	thaiSentenceEnd    = regexp.MustCompile(`(ค่ะ|คะ|ครับ|จ้ะ|[.!?])[ \t]+`)
)

// Topics where the reply touches on medicine.
var medicalTopics = map[domain.Topic]bool{
	domain.TopicMedication:    true,
	domain.TopicDiabetes:      true,
	domain.TopicPostOperative: true,
}

// Topics that gain from the structured analysis register.
var analyticalTopics = map[domain.Topic]bool{
	domain.TopicDiabetes:      true,
	domain.TopicMedication:    true,
	domain.TopicPostOperative: true,
	domain.TopicMemory:        true,
	domain.TopicDiet:          true,
}

// Format normalizes a reply and appends at most one disclaimer and at most
// one mode-switch suggestion. Apply it exactly once per reply.
func Format(raw string, topic domain.Topic, lang domain.Language, recommendHandoff bool, mode domain.Mode) string {
	text := Body(raw, lang)
	for _, a := range Additions(text, topic, lang, recommendHandoff, mode) {
		if text == "" {
			text = a
			continue
		}
		text += "\n\n" + a
	}
	return text
}

// Body normalizes line endings, blank lines and paragraph length.
func Body(raw string, lang domain.Language) string {
	return splitParagraphs(normalize(raw), lang)
}

// Additions returns what Format appends to text, in order: the disclaimer
// then the mode-switch suggestion. Anything already present is skipped.
func Additions(text string, topic domain.Topic, lang domain.Language, recommendHandoff bool, mode domain.Mode) []string {
	var out []string
	if d := disclaimer(topic, lang, recommendHandoff, mode); d != "" && !strings.Contains(text, d) {
		out = append(out, d)
	}
	if s := modeSuggestion(topic, lang, mode); s != "" && !strings.Contains(text, s) {
		out = append(out, s)
	}
	return out
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = codeFenceRe.ReplaceAllString(s, "")
	s = whitespaceLineRe.ReplaceAllString(s, "")
	s = blankLineCollapse.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// splitParagraphs breaks long single-line paragraphs into groups of
// sentences. Lists and other multi-line blocks are left alone.
func splitParagraphs(s string, lang domain.Language) string {
	var re *regexp.Regexp
	switch lang {
	case domain.LanguageThai:
		re = thaiSentenceEnd
	case domain.LanguageEnglish:
		re = englishSentenceEnd
	default:
		panic("format: unknown language " + string(lang))
	}

	paras := strings.Split(s, "\n\n")
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		if strings.Contains(p, "\n") || utf8.RuneCountInString(p) <= ParagraphRunes {
			out = append(out, p)
			continue
		}
		out = append(out, groupSentences(sentences(p, re))...)
	}
	return strings.Join(out, "\n\n")
}

func sentences(p string, re *regexp.Regexp) []string {
	var out []string
	start := 0
	for _, m := range re.FindAllStringSubmatchIndex(p, -1) {
		// m[3] is the end of the punctuation, m[1] the end of the spacing.
		out = append(out, p[start:m[3]])
		start = m[1]
	}
	if start < len(p) {
		out = append(out, p[start:])
	}
	return out
}

func groupSentences(sents []string) []string {
	var (
		out  []string
		cur  strings.Builder
		size int
	)
	for _, s := range sents {
		n := utf8.RuneCountInString(s)
		if size > 0 && size+n+1 > ParagraphRunes {
			out = append(out, cur.String())
			cur.Reset()
			size = 0
		}
		if size > 0 {
			cur.WriteByte(' ')
			size++
		}
		cur.WriteString(s)
		size += n
	}
	if size > 0 {
		out = append(out, cur.String())
	}
	return out
}

// disclaimer picks one disclaimer by priority: emergency, handoff, medical,
// analytical.
func disclaimer(topic domain.Topic, lang domain.Language, handoff bool, mode domain.Mode) string {
	th := isThai(lang)
	switch {
	case topic == domain.TopicEmergency:
		return pick(th, emergencyDisclaimerTH, emergencyDisclaimerEN)
	case handoff:
		return pick(th, handoffDisclaimerTH, handoffDisclaimerEN)
	case medicalTopics[topic]:
		return pick(th, medicalDisclaimerTH, medicalDisclaimerEN)
	case mode == domain.ModeIntelligence:
		return pick(th, analyticalDisclaimerTH, analyticalDisclaimerEN)
	}
	return ""
}

func modeSuggestion(topic domain.Topic, lang domain.Language, mode domain.Mode) string {
	switch mode {
	case domain.ModeConversation:
		if analyticalTopics[topic] {
			return pick(isThai(lang), modeSuggestionTH, modeSuggestionEN)
		}
		return ""
	case domain.ModeIntelligence:
		return ""
	default:
		panic("format: unknown mode " + string(mode))
	}
}

func isThai(lang domain.Language) bool {
	switch lang {
	case domain.LanguageThai:
		return true
	case domain.LanguageEnglish:
		return false
	default:
		panic("format: unknown language " + string(lang))
	}
}

func pick(th bool, thai, english string) string {
	if th {
		return thai
	}
	return english
}
