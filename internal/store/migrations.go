package store

type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is append-only; applied versions are never edited.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create turn records",
		SQL: `
			CREATE TABLE turn_records (
				id                  TEXT PRIMARY KEY,
				session_id          TEXT NOT NULL,
				ts                  TEXT NOT NULL,
				snippet             TEXT NOT NULL DEFAULT '',
				topic               TEXT NOT NULL,
				flags               TEXT NOT NULL DEFAULT '[]',
				handoff_recommended INTEGER NOT NULL DEFAULT 0,
				handoff_reason      TEXT NOT NULL DEFAULT 'none',
				outcome             TEXT NOT NULL,
				language            TEXT NOT NULL,
				mode                TEXT NOT NULL
			);

			CREATE INDEX idx_turn_records_session ON turn_records (session_id, ts);
			CREATE INDEX idx_turn_records_outcome ON turn_records (outcome);
		`,
	},
	{
		Version: 2,
		Name:    "create profiles",
		SQL: `
			CREATE TABLE profiles (
				session_id  TEXT PRIMARY KEY,
				age_bracket TEXT NOT NULL DEFAULT '',
				gender      TEXT NOT NULL DEFAULT '',
				region      TEXT NOT NULL DEFAULT '',
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
