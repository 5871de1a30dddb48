// Package prompt assembles the provider prompt for one turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

const (
	// RecentTurns is how many prior turns are quoted back to the model.
	RecentTurns = 6
	// TurnRunes bounds each quoted turn.
	TurnRunes = 200
)

// Input carries everything the prompt depends on. Every field except Text,
// Topic, Mode and Language is optional.
type Input struct {
	Text             string
	Topic            domain.Topic
	Mode             domain.Mode
	Language         domain.Language
	Profile          *domain.Profile
	Context          domain.ConversationContext
	EmotionalSummary string
	Findings         []string
	SuggestHandoff   bool
}

// Package is the assembled prompt. Built once per turn and never persisted.
type Package struct {
	System string
	User   string
}

// String renders the package as a single prompt.
func (p Package) String() string {
	return p.System + "\n\n" + p.User
}

// Build assembles a prompt. It is pure: the same input gives the same output.
func Build(in Input) Package {
	var b strings.Builder

	b.WriteString(persona)
	b.WriteString("\n")
	b.WriteString(languageClause(in.Language))
	b.WriteString("\n\n")

	guidance, ok := topicGuidance[in.Topic]
	if !ok {
		guidance = topicGuidance[domain.TopicGeneral]
	}
	b.WriteString(guidance)
	b.WriteString("\n")
	b.WriteString(modeClause(in.Mode))
	b.WriteString("\n")

	if hints := profileHints(in.Profile); hints != "" {
		fmt.Fprintf(&b, "\nAbout the person being cared for: %s.\n", hints)
	}

	if history := recentHistory(in.Context.Turns); history != "" {
		b.WriteString("\nRecent conversation:\n")
		b.WriteString(history)
	}

	if len(in.Context.Concepts) > 0 {
		fmt.Fprintf(&b, "\nAlready covered, do not repeat unless asked: %s.\n",
			strings.Join(in.Context.Concepts, "; "))
	}

	if in.EmotionalSummary != "" {
		fmt.Fprintf(&b, "\nCaregiver's emotional state: %s. Match your tone to it.\n", in.EmotionalSummary)
	}

	if len(in.Findings) > 0 {
		b.WriteString("\nAnalysis notes:\n")
		for _, f := range in.Findings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if in.SuggestHandoff {
		b.WriteString("\nThis situation may need a human expert. Gently suggest talking to a nurse, " +
			"doctor or social worker.\n")
	}

	return Package{
		System: strings.TrimRight(b.String(), "\n"),
		User:   in.Text,
	}
}

func profileHints(p *domain.Profile) string {
	if p.Empty() {
		return ""
	}
	var parts []string
	if p.AgeBracket != "" {
		parts = append(parts, "age "+p.AgeBracket)
	}
	if p.Gender != "" {
		parts = append(parts, p.Gender)
	}
	if p.Region != "" {
		parts = append(parts, "lives in "+p.Region)
	}
	return strings.Join(parts, ", ")
}

func recentHistory(turns []domain.Turn) string {
	if len(turns) > RecentTurns {
		turns = turns[len(turns)-RecentTurns:]
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, truncate(t.Text, TurnRunes))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
