package orchestrator

import (
	"context"
	"strings"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/format"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/metrics"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/prompt"
)

// turn is the state of one message between preparation and completion.
type turn struct {
	raw     domain.RawMessage
	lang    domain.Language
	mode    domain.Mode
	msg     domain.SanitizedMessage
	verdict domain.SafetyVerdict
	history int // user turns before this one
	prompt  prompt.Package

	// early is set when the turn ends without calling the provider.
	early *Result
	err   error
}

// Handle runs one turn to completion. Turns for the same session are
// queued. The Result is non-nil whenever the session lock was acquired;
// on failure its Text is an apology and err carries the classification.
// An emergency is not an error: it yields the emergency message with a
// nil error.
func (o *Orchestrator) Handle(ctx context.Context, raw domain.RawMessage, opts Options) (*Result, error) {
	lang, mode, err := o.validate(raw, opts)
	if err != nil {
		return nil, err
	}

	release, err := o.locks.Acquire(ctx, raw.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()
	metrics.TurnsInFlight.Inc()
	defer metrics.TurnsInFlight.Dec()

	t := o.prepare(ctx, raw, lang, mode, opts)
	if t.early != nil {
		return t.early, t.err
	}

	reply, err := o.Generate(ctx, t.prompt)
	if err != nil {
		return o.fail(ctx, t, err), err
	}
	return o.complete(ctx, t, reply), nil
}

// HandleStream runs one turn and streams the reply. Input errors are
// returned immediately; everything else arrives on the channel, which ends
// with a Done event and is always closed. The reply is formatted as it
// arrives and released a paragraph at a time through the pacer, followed by
// any disclaimer or suggestion, so the streamed text of a completed turn
// equals Result.Text. If the session lock cannot be taken before ctx ends,
// the only event is Done carrying ctx's error.
func (o *Orchestrator) HandleStream(ctx context.Context, raw domain.RawMessage, opts Options) (<-chan Event, error) {
	lang, mode, err := o.validate(raw, opts)
	if err != nil {
		return nil, err
	}

	// One slot so the lock failure event is delivered after ctx is done.
	out := make(chan Event, 1)
	go func() {
		defer close(out)
		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		release, err := o.locks.Acquire(ctx, raw.SessionID)
		if err != nil {
			out <- Event{Done: true, Err: err}
			return
		}
		defer release()
		metrics.TurnsInFlight.Inc()
		defer metrics.TurnsInFlight.Dec()

		t := o.prepare(ctx, raw, lang, mode, opts)
		if t.early != nil {
			if send(Event{Text: t.early.Text}) {
				send(Event{Done: true, Result: t.early, Err: t.err})
			}
			return
		}

		body := format.NewBodyStream(t.lang)
		emit := func(text string) bool {
			if text == "" {
				return true
			}
			return o.pacer.Pace(ctx, text, func(piece string) bool {
				return send(Event{Text: piece})
			})
		}

		chunks := make(chan Chunk)
		go o.stream(ctx, t.prompt, chunks, NoPacing{})
		for c := range chunks {
			switch {
			case c.Err != nil:
				// Show what arrived before the failure.
				emit(body.Flush())
				res := o.fail(ctx, t, c.Err)
				send(Event{Done: true, Result: res, Err: c.Err})
				return
			case c.Done:
				res := o.complete(ctx, t, c.Reply)
				if !emit(body.Flush()) {
					return
				}
				text := format.Body(c.Reply.Text, t.lang)
				for _, a := range format.Additions(text, t.verdict.Topic, t.lang, res.Handoff.ShouldRecommend, t.mode) {
					if text != "" {
						a = "\n\n" + a
					}
					text += a
					if !send(Event{Text: a}) {
						return
					}
				}
				send(Event{Done: true, Result: res})
				return
			default:
				if !emit(body.Write(c.Text)) {
					// ctx is done; the stream winds down and closes.
					for range chunks {
					}
				}
			}
		}

		// The stream closed without a final chunk: the consumer went away.
		err = ctx.Err()
		if err == nil {
			err = domain.Errorf(domain.KindStreamInterrupted, "stream", "stream ended without a result")
		}
		o.fail(ctx, t, err)
	}()
	return out, nil
}

func (o *Orchestrator) validate(raw domain.RawMessage, opts Options) (domain.Language, domain.Mode, error) {
	if strings.TrimSpace(raw.SessionID) == "" {
		return "", "", domain.Errorf(domain.KindInvalidInput, "handle", "missing session id")
	}
	lang := raw.Language
	if lang == "" {
		lang = domain.LanguageThai
	}
	if !lang.Valid() {
		return "", "", domain.Errorf(domain.KindInvalidInput, "handle", "unsupported language %q", raw.Language)
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.ModeConversation
	}
	if !mode.Valid() {
		return "", "", domain.Errorf(domain.KindInvalidInput, "handle", "unsupported mode %q", opts.Mode)
	}
	return lang, mode, nil
}

// prepare runs everything up to the provider call. Rejected and emergency
// messages finish here.
func (o *Orchestrator) prepare(ctx context.Context, raw domain.RawMessage, lang domain.Language, mode domain.Mode, opts Options) *turn {
	if raw.ReceivedAt.IsZero() {
		raw.ReceivedAt = o.now()
	}
	t := &turn{raw: raw, lang: lang, mode: mode}

	t.msg = o.sanitizer.Sanitize(raw, opts.Path)
	for _, r := range t.msg.Redactions {
		metrics.RedactionsTotal.WithLabelValues(string(r.Category)).Inc()
	}
	if !t.msg.OK() {
		t.err = domain.Errorf(domain.KindInvalidInput, "sanitize", "message rejected: %s", t.msg.Rejection)
		t.early = o.finish(ctx, t, format.Rejected(lang, t.msg.Rejection), domain.HandoffDecision{
			Reason: domain.HandoffNone, Urgency: domain.UrgencyLow,
		}, domain.OutcomeRejected)
		return t
	}

	t.verdict = o.classifier.Classify(t.msg.Redacted)
	o.log.Debug().
		Str("session", raw.SessionID).
		Str("topic", string(t.verdict.Topic)).
		Strs("redactions", pii(t.msg.Categories())).
		Msg("message classified")

	if !t.verdict.IsSafe {
		decision := o.decider.Decide(t.msg.Redacted, domain.TopicEmergency, 1)
		text := format.Format(format.EmergencyMessage(lang), domain.TopicEmergency, lang, true, mode)
		o.log.Warn().Str("session", raw.SessionID).Msg("emergency detected, provider bypassed")
		t.early = o.finish(ctx, t, text, decision, domain.OutcomeEmergency)
		return t
	}

	cc, err := o.store.Read(ctx, raw.SessionID)
	if err != nil {
		o.log.Warn().Err(err).Str("session", raw.SessionID).Msg("conversation read failed, continuing without context")
		cc = domain.ConversationContext{SessionID: raw.SessionID}
	}
	t.history = cc.UserTurnCount

	summary, err := o.store.EmotionalSummary(ctx, raw.SessionID)
	if err != nil {
		o.log.Warn().Err(err).Str("session", raw.SessionID).Msg("emotional summary failed")
	}

	var profile *domain.Profile
	if o.profiles != nil {
		if profile, err = o.profiles.GetProfile(ctx, raw.SessionID); err != nil {
			o.log.Warn().Err(err).Str("session", raw.SessionID).Msg("profile lookup failed")
			profile = nil
		}
	}

	var findings []string
	if mode == domain.ModeIntelligence && o.analyzer != nil {
		findings, err = o.analyzer.Analyze(ctx, AnalysisRequest{
			SessionID: raw.SessionID,
			Text:      t.msg.Redacted,
			Topic:     t.verdict.Topic,
			Language:  lang,
		})
		if err != nil {
			o.log.Warn().Err(err).Str("session", raw.SessionID).Msg("analysis failed, continuing without findings")
			findings = nil
		}
	}

	hint := o.decider.Decide(t.msg.Redacted, t.verdict.Topic, t.history)
	t.prompt = prompt.Build(prompt.Input{
		Text:             t.msg.Redacted,
		Topic:            t.verdict.Topic,
		Mode:             mode,
		Language:         lang,
		Profile:          profile,
		Context:          cc,
		EmotionalSummary: summary,
		Findings:         findings,
		SuggestHandoff:   hint.ShouldRecommend || t.verdict.RecommendHandoff,
	})
	return t
}

// complete writes the turn to the conversation store, makes the final
// handoff decision and formats the reply.
func (o *Orchestrator) complete(ctx context.Context, t *turn, reply *Reply) *Result {
	topic := t.verdict.Topic
	now := o.now()

	if err := o.store.Append(ctx, t.raw.SessionID, domain.Turn{
		Role: domain.RoleUser, Text: t.msg.Redacted, Topic: topic, At: t.raw.ReceivedAt,
	}); err != nil {
		o.log.Warn().Err(err).Str("session", t.raw.SessionID).Msg("storing user turn failed")
	}
	if err := o.store.Append(ctx, t.raw.SessionID, domain.Turn{
		Role: domain.RoleAssistant, Text: reply.Text, Topic: topic, At: now,
	}); err != nil {
		o.log.Warn().Err(err).Str("session", t.raw.SessionID).Msg("storing reply failed")
	}
	if err := o.store.TrackConcepts(ctx, t.raw.SessionID, reply.Text); err != nil {
		o.log.Warn().Err(err).Str("session", t.raw.SessionID).Msg("concept tracking failed")
	}

	decision := o.decider.Decide(t.msg.Redacted, topic, t.history+1)
	if !decision.ShouldRecommend && t.verdict.RecommendHandoff {
		decision = domain.HandoffDecision{
			ShouldRecommend: true,
			Reason:          domain.HandoffComplexTopic,
			Urgency:         domain.UrgencyMedium,
		}
	}

	text := format.Format(reply.Text, topic, t.lang, decision.ShouldRecommend, t.mode)
	res := o.finish(ctx, t, text, decision, domain.OutcomeAnswered)
	res.Usage = reply.Usage

	o.log.Info().
		Str("session", t.raw.SessionID).
		Str("topic", string(topic)).
		Int("attempts", reply.Attempts).
		Int("outputTokens", reply.Usage.OutputTokens).
		Dur("duration", reply.Duration).
		Bool("handoff", decision.ShouldRecommend).
		Msg("turn answered")
	return res
}

// fail ends a turn whose generation failed.
func (o *Orchestrator) fail(ctx context.Context, t *turn, err error) *Result {
	outcome := domain.OutcomeFailed
	if domain.IsCanceled(err) || domain.KindOf(err) == domain.KindStreamInterrupted {
		outcome = domain.OutcomeInterrupted
	}
	o.log.Error().
		Err(err).
		Str("session", t.raw.SessionID).
		Str("kind", string(domain.KindOf(err))).
		Msg("turn failed")
	return o.finish(ctx, t, format.Apology(t.lang), domain.HandoffDecision{
		Reason: domain.HandoffNone, Urgency: domain.UrgencyLow,
	}, outcome)
}

// finish builds the Result and emits the turn record.
func (o *Orchestrator) finish(ctx context.Context, t *turn, text string, decision domain.HandoffDecision, outcome domain.Outcome) *Result {
	topic := t.verdict.Topic
	if topic == "" {
		topic = domain.TopicGeneral
	}
	rec := domain.TurnRecord{
		ID:                 o.newID(),
		SessionID:          t.raw.SessionID,
		Timestamp:          o.now(),
		RedactedSnippet:    domain.Snippet(t.msg.Redacted),
		Topic:              topic,
		Flags:              t.verdict.Flagged,
		HandoffRecommended: decision.ShouldRecommend,
		HandoffReason:      decision.Reason,
		Outcome:            outcome,
		Language:           t.lang,
		Mode:               t.mode,
	}

	metrics.TurnsTotal.WithLabelValues(string(outcome), string(topic)).Inc()
	if decision.ShouldRecommend {
		metrics.HandoffsTotal.WithLabelValues(string(decision.Reason)).Inc()
	}
	if o.hooks != nil {
		o.hooks.EmitTurn(context.WithoutCancel(ctx), rec)
	}

	return &Result{
		SessionID:  t.raw.SessionID,
		Text:       text,
		Topic:      topic,
		Verdict:    t.verdict,
		Handoff:    decision,
		Outcome:    outcome,
		Redactions: t.msg.Categories(),
		RecordID:   rec.ID,
	}
}

func pii(cats []domain.PIICategory) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
