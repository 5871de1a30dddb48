package domain

import (
	"fmt"
	"strings"
)

// Language is the reply language for a turn. The set is closed.
type Language string

const (
	LanguageThai    Language = "th"
	LanguageEnglish Language = "en"
)

// ParseLanguage validates a language code. Empty input defaults to Thai.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "th", "thai":
		return LanguageThai, nil
	case "en", "english":
		return LanguageEnglish, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// Valid reports whether l is one of the known languages.
func (l Language) Valid() bool {
	return l == LanguageThai || l == LanguageEnglish
}

// Mode selects the assistant's register. The set is closed.
type Mode string

const (
	// ModeConversation is the warm, supportive register.
	ModeConversation Mode = "conversation"
	// ModeIntelligence is the structured, analytical register.
	ModeIntelligence Mode = "intelligence"
)

// ParseMode validates a mode name. Empty input defaults to conversation.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "conversation", "chat":
		return ModeConversation, nil
	case "intelligence", "analysis":
		return ModeIntelligence, nil
	default:
		return "", fmt.Errorf("unsupported mode %q", s)
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeConversation || m == ModeIntelligence
}
