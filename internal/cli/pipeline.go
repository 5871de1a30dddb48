package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/conversation"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/handoff"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/hooks"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/llm"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/orchestrator"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/safety"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/sanitize"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/store"
)

// pipeline is everything a turn needs, built from config.
type pipeline struct {
	orch     *orchestrator.Orchestrator
	client   llm.Client
	hooks    *hooks.Manager
	records  *store.RecordStore
	profiles *store.ProfileStore

	closers []func() error
}

// Close releases the pipeline's resources in reverse order.
func (p *pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	return errors.Join(errs...)
}

// buildPipeline wires the provider, conversation store, sqlite store and
// orchestrator. Background sweeping stops when ctx is done.
func buildPipeline(ctx context.Context, cfg config.Config) (_ *pipeline, err error) {
	p := &pipeline{}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	registry, err := llm.NewRegistryFromConfig(cfg.Provider, cfg.Breaker, log)
	if err != nil {
		return nil, err
	}
	if p.client, err = registry.Resolve(cfg.Provider.Model); err != nil {
		return nil, err
	}

	convStore, err := newConversationStore(ctx, p, cfg.Conversation)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, paths.DatabasePath(cfg.Store), log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	p.closers = append(p.closers, db.Close)
	p.records = store.NewRecordStore(db)
	p.profiles = store.NewProfileStore(db)

	p.hooks = hooks.NewManager(log)
	p.records.Attach(p.hooks)

	p.orch = orchestrator.New(orchestrator.Config{
		Model:       cfg.Provider.Model,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
		Retry:       retryFrom(cfg.Retry),
	}, orchestrator.Deps{
		Client: p.client,
		Store:  convStore,
		Sanitizer: sanitize.New(sanitize.Config{
			MinDigitRun:    cfg.Sanitizer.MinDigitRun,
			MaxStreamRunes: cfg.Sanitizer.MaxStreamChars,
			MaxBatchRunes:  cfg.Sanitizer.MaxBatchChars,
		}),
		Classifier: safety.NewDefault(),
		Decider: handoff.New(handoff.Config{
			LongConversationTurns: cfg.Handoff.LongConversationTurns,
			MixedScriptMinRatio:   cfg.Handoff.MixedScriptMinRatio,
		}),
		Pacer:    pacerFrom(cfg.Streaming),
		Profiles: p.profiles,
		Hooks:    p.hooks,
		Log:      log,
	})
	return p, nil
}

func newConversationStore(ctx context.Context, p *pipeline, cc config.ConversationConfig) (conversation.Store, error) {
	sc := conversation.Config{
		MaxTurns:    cc.MaxTurns,
		MaxConcepts: cc.MaxConcepts,
		IdleTTL:     cc.IdleTTL(),
	}

	switch cc.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		p.closers = append(p.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", cc.Redis.Addr, err)
		}
		log.Info().Str("addr", cc.Redis.Addr).Msg("using redis conversation store")
		return conversation.NewRedisStore(client, sc), nil
	default:
		s := conversation.NewMemoryStore(sc)
		interval := time.Duration(cc.SweepSeconds) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		go s.Run(ctx, interval)
		log.Debug().Msg("using in-memory conversation store")
		return s, nil
	}
}

func retryFrom(rc config.RetryConfig) orchestrator.RetryConfig {
	return orchestrator.RetryConfig{
		MaxRetries: rc.Retries(),
		BaseDelay:  time.Duration(rc.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(rc.MaxDelayMs) * time.Millisecond,
	}
}

func pacerFrom(sc config.StreamingConfig) orchestrator.Pacer {
	if !sc.PacingEnabled() {
		return orchestrator.NoPacing{}
	}
	return orchestrator.NewTypingPacer(orchestrator.PacingConfig{
		Threshold: sc.ChunkThreshold,
		MinPiece:  sc.MinPiece,
		MaxPiece:  sc.MaxPiece,
		MinDelay:  time.Duration(sc.MinDelayMs) * time.Millisecond,
		MaxDelay:  time.Duration(sc.MaxDelayMs) * time.Millisecond,
	}, uint64(time.Now().UnixNano()))
}
