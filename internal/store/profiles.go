package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
)

// ProfileStore holds the optional demographic hints per session.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a profile store on db.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// GetProfile returns nil, nil when no profile is stored.
func (s *ProfileStore) GetProfile(ctx context.Context, sessionID string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT age_bracket, gender, region FROM profiles WHERE session_id = ?`, sessionID,
	).Scan(&p.AgeBracket, &p.Gender, &p.Region)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", sessionID, err)
	}
	return &p, nil
}

// PutProfile upserts the profile for a session.
func (s *ProfileStore) PutProfile(ctx context.Context, sessionID string, p domain.Profile) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO profiles (session_id, age_bracket, gender, region, updated_at)
		 VALUES (?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(session_id) DO UPDATE SET
			age_bracket = excluded.age_bracket,
			gender      = excluded.gender,
			region      = excluded.region,
			updated_at  = excluded.updated_at`,
		sessionID, p.AgeBracket, p.Gender, p.Region,
	)
	if err != nil {
		return fmt.Errorf("writing profile %s: %w", sessionID, err)
	}
	return nil
}

// DeleteProfile removes a stored profile.
func (s *ProfileStore) DeleteProfile(ctx context.Context, sessionID string) error {
	_, err := s.db.sql.ExecContext(ctx, `DELETE FROM profiles WHERE session_id = ?`, sessionID)
	return err
}
