package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// RedisStore is a Store shared across processes. Every write refreshes the
// idle TTL on all of the session's keys.
type RedisStore struct {
	client *redis.Client
	cfg    Config
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, cfg Config) *RedisStore {
	return &RedisStore{client: client, cfg: cfg.withDefaults(), prefix: "pranara:conv:"}
}

func (s *RedisStore) key(sessionID, kind string) string {
	return s.prefix + sessionID + ":" + kind
}

func (s *RedisStore) keys(sessionID string) []string {
	return []string{
		s.key(sessionID, "turns"),
		s.key(sessionID, "concepts"),
		s.key(sessionID, "tones"),
		s.key(sessionID, "count"),
	}
}

func (s *RedisStore) Read(ctx context.Context, sessionID string) (domain.ConversationContext, error) {
	out := domain.ConversationContext{SessionID: sessionID}

	pipe := s.client.Pipeline()
	turnsCmd := pipe.LRange(ctx, s.key(sessionID, "turns"), 0, -1)
	conceptsCmd := pipe.ZRange(ctx, s.key(sessionID, "concepts"), 0, -1)
	tonesCmd := pipe.LRange(ctx, s.key(sessionID, "tones"), 0, -1)
	countCmd := pipe.Get(ctx, s.key(sessionID, "count"))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return out, fmt.Errorf("reading session %s: %w", sessionID, err)
	}

	for _, raw := range turnsCmd.Val() {
		var t domain.Turn
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue // skip malformed entries
		}
		out.Turns = append(out.Turns, t)
	}
	out.Concepts = conceptsCmd.Val()
	for _, t := range tonesCmd.Val() {
		out.Tones = append(out.Tones, domain.Tone(t))
	}
	if n, err := countCmd.Int(); err == nil {
		out.UserTurnCount = n
	}
	if n := len(out.Turns); n > 0 {
		out.UpdatedAt = out.Turns[n-1].At
	}
	return out, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turn domain.Turn) error {
	if turn.At.IsZero() {
		turn.At = time.Now()
	}
	if turn.Role == domain.RoleUser {
		turn.Tone = toneFor(turn)
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshaling turn: %w", err)
	}

	turnsKey := s.key(sessionID, "turns")
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, turnsKey, string(data))
	pipe.LTrim(ctx, turnsKey, int64(-s.cfg.MaxTurns), -1)
	if turn.Role == domain.RoleUser {
		tonesKey := s.key(sessionID, "tones")
		pipe.RPush(ctx, tonesKey, string(turn.Tone))
		pipe.LTrim(ctx, tonesKey, int64(-s.cfg.MaxTones), -1)
		pipe.Incr(ctx, s.key(sessionID, "count"))
	}
	s.touch(ctx, pipe, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("appending turn for %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) TrackConcepts(ctx context.Context, sessionID, reply string) error {
	found := ExtractConcepts(reply)
	if len(found) == 0 {
		return nil
	}

	key := s.key(sessionID, "concepts")
	base := float64(time.Now().UnixMicro())
	members := make([]redis.Z, len(found))
	for i, c := range found {
		members[i] = redis.Z{Score: base + float64(i), Member: c}
	}

	pipe := s.client.TxPipeline()
	pipe.ZAddNX(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.cfg.MaxConcepts-1))
	s.touch(ctx, pipe, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tracking concepts for %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) EmotionalSummary(ctx context.Context, sessionID string) (string, error) {
	vals, err := s.client.LRange(ctx, s.key(sessionID, "tones"), 0, -1).Result()
	if err != nil {
		return "", fmt.Errorf("reading tones for %s: %w", sessionID, err)
	}
	tones := make([]domain.Tone, len(vals))
	for i, v := range vals {
		tones[i] = domain.Tone(v)
	}
	return Summarize(tones), nil
}

// Clear deletes all state for a session.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.keys(sessionID)...).Err()
}

func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, sessionID string) {
	for _, k := range s.keys(sessionID) {
		pipe.Expire(ctx, k, s.cfg.IdleTTL)
	}
}
