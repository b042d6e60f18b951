package sqlite

// Schema creates the directory tables. It is idempotent and runs on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	aliases     TEXT NOT NULL DEFAULT '[]',
	attributes  TEXT NOT NULL DEFAULT '',
	department  TEXT NOT NULL DEFAULT '',
	room        TEXT NOT NULL DEFAULT '',
	floor       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS activities (
	id           TEXT PRIMARY KEY,
	entity_id    INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	day          INTEGER NOT NULL CHECK (day BETWEEN 1 AND 7),
	start_minute INTEGER NOT NULL CHECK (start_minute >= 0),
	end_minute   INTEGER NOT NULL CHECK (end_minute <= 1440 AND end_minute > start_minute),
	label        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_entity_day
	ON activities(entity_id, day, start_minute);
`
