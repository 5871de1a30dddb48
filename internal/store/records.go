package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/hooks"
)

// RecordStore keeps the per-turn analytics records. Records only ever hold
// redacted text.
type RecordStore struct {
	db *DB
}

// NewRecordStore creates a record store on db.
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

// Record inserts rec. Re-recording the same ID is a no-op.
func (s *RecordStore) Record(ctx context.Context, rec domain.TurnRecord) error {
	flags, err := json.Marshal(rec.Flags)
	if err != nil {
		return fmt.Errorf("marshaling flags: %w", err)
	}
	if rec.Flags == nil {
		flags = []byte("[]")
	}
	_, err = s.db.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO turn_records
		 (id, session_id, ts, snippet, topic, flags, handoff_recommended, handoff_reason, outcome, language, mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.RedactedSnippet,
		string(rec.Topic), string(flags), rec.HandoffRecommended, string(rec.HandoffReason),
		string(rec.Outcome), string(rec.Language), string(rec.Mode),
	)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.ID, err)
	}
	return nil
}

// Query filters List. Zero fields match everything.
type Query struct {
	SessionID string
	Outcome   domain.Outcome
	Limit     int
}

// List returns matching records, newest first.
func (s *RecordStore) List(ctx context.Context, q Query) ([]domain.TurnRecord, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, session_id, ts, snippet, topic, flags, handoff_recommended, handoff_reason, outcome, language, mode
		 FROM turn_records
		 WHERE (? = '' OR session_id = ?) AND (? = '' OR outcome = ?)
		 ORDER BY ts DESC, rowid DESC
		 LIMIT ?`,
		q.SessionID, q.SessionID, string(q.Outcome), string(q.Outcome), q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []domain.TurnRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByOutcome tallies records per outcome.
func (s *RecordStore) CountByOutcome(ctx context.Context) (map[domain.Outcome]int, error) {
	rows, err := s.db.sql.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM turn_records GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		out[domain.Outcome(outcome)] = n
	}
	return out, rows.Err()
}

// Attach persists every completed turn reported through m.
func (s *RecordStore) Attach(m *hooks.Manager) {
	m.On(hooks.EventTurnCompleted, "record-store", func(ctx context.Context, p hooks.Payload) error {
		if p.Record == nil {
			return nil
		}
		return s.Record(ctx, *p.Record)
	})
}

func scanRecord(rows *sql.Rows) (domain.TurnRecord, error) {
	var (
		rec                                         domain.TurnRecord
		ts, topic, flags, reason, outcome, lang, md string
	)
	err := rows.Scan(&rec.ID, &rec.SessionID, &ts, &rec.RedactedSnippet, &topic, &flags,
		&rec.HandoffRecommended, &reason, &outcome, &lang, &md)
	if err != nil {
		return rec, fmt.Errorf("scanning record: %w", err)
	}
	rec.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	rec.Topic = domain.Topic(topic)
	rec.HandoffReason = domain.HandoffReason(reason)
	rec.Outcome = domain.Outcome(outcome)
	rec.Language = domain.Language(lang)
	rec.Mode = domain.Mode(md)
	if err := json.Unmarshal([]byte(flags), &rec.Flags); err != nil {
		return rec, fmt.Errorf("decoding flags for %s: %w", rec.ID, err)
	}
	return rec, nil
}
