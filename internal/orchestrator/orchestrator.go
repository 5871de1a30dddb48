// Package orchestrator runs a user turn end to end: sanitize, classify,
// build the prompt, call the provider with retry or streaming, decide on a
// handoff and format the reply.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/conversation"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/handoff"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/hooks"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/llm"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/safety"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/sanitize"
)

// ProfileSource supplies optional demographic hints for a session.
type ProfileSource interface {
	GetProfile(ctx context.Context, sessionID string) (*domain.Profile, error)
}

// AnalysisRequest is what an Analyzer sees. Text is already redacted.
type AnalysisRequest struct {
	SessionID string
	Text      string
	Topic     domain.Topic
	Language  domain.Language
}

// Analyzer is an external analysis capability consulted in intelligence
// mode. Its findings are quoted into the prompt.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) ([]string, error)
}

// Config holds the provider request settings and retry policy.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	Retry       RetryConfig
}

// Deps are the collaborators of an Orchestrator. Client and Store are
// required; the rest fall back to defaults or are skipped when nil.
type Deps struct {
	Client     llm.Client
	Store      conversation.Store
	Sanitizer  *sanitize.Sanitizer
	Classifier *safety.Classifier
	Decider    *handoff.Decider
	Pacer      Pacer
	Profiles   ProfileSource
	Analyzer   Analyzer
	Hooks      *hooks.Manager
	Log        *logging.Logger
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	cfg        Config
	client     llm.Client
	store      conversation.Store
	sanitizer  *sanitize.Sanitizer
	classifier *safety.Classifier
	decider    *handoff.Decider
	pacer      Pacer
	profiles   ProfileSource
	analyzer   Analyzer
	hooks      *hooks.Manager
	locks      *SessionLocks
	log        *logging.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Retry.MaxRetries < 0 {
		cfg.Retry.MaxRetries = 0
	}
	o := &Orchestrator{
		cfg:        cfg,
		client:     deps.Client,
		store:      deps.Store,
		sanitizer:  deps.Sanitizer,
		classifier: deps.Classifier,
		decider:    deps.Decider,
		pacer:      deps.Pacer,
		profiles:   deps.Profiles,
		analyzer:   deps.Analyzer,
		hooks:      deps.Hooks,
		locks:      NewSessionLocks(),
		log:        deps.Log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	if o.sanitizer == nil {
		o.sanitizer = sanitize.New(sanitize.DefaultConfig())
	}
	if o.classifier == nil {
		o.classifier = safety.NewDefault()
	}
	if o.decider == nil {
		o.decider = handoff.New(handoff.DefaultConfig())
	}
	if o.pacer == nil {
		o.pacer = NoPacing{}
	}
	if o.log == nil {
		o.log = logging.Nop()
	}
	o.log = o.log.Sub("orchestrator")
	return o
}

// Options select how a turn is handled.
type Options struct {
	Mode domain.Mode
	Path sanitize.Path
}

// Result is a finished turn. Text is always safe to show the user: the
// formatted reply, the emergency message, or a same-language apology.
type Result struct {
	SessionID  string                 `json:"sessionId"`
	Text       string                 `json:"text"`
	Topic      domain.Topic           `json:"topic"`
	Verdict    domain.SafetyVerdict   `json:"verdict"`
	Handoff    domain.HandoffDecision `json:"handoff"`
	Outcome    domain.Outcome         `json:"outcome"`
	Redactions []domain.PIICategory   `json:"redactions,omitempty"`
	Usage      llm.Usage              `json:"usage"`
	RecordID   string                 `json:"recordId"`
}

// Event is one item of a streamed turn. Text events carry reply text as
// it arrives; the last event has Done set and carries the Result, plus Err
// when the turn failed.
type Event struct {
	Text   string  `json:"text,omitempty"`
	Done   bool    `json:"done,omitempty"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// ActiveSessions returns the number of sessions with a turn running or
// queued.
func (o *Orchestrator) ActiveSessions() int {
	return o.locks.Len()
}
