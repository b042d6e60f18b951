// Package postgres provides a PostgreSQL implementation of storage.Directory.
package postgres

// Schema creates the directory tables. Activity times use TIME columns and
// days are stored by name, the layout the web directory already uses.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    id BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    aliases TEXT[] NOT NULL DEFAULT '{}',
    attributes TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    room TEXT NOT NULL DEFAULT '',
    floor TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,
    entity_id BIGINT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    day TEXT NOT NULL,
    start_time TIME NOT NULL,
    end_time TIME NOT NULL CHECK (end_time > start_time),
    label TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_activities_entity_day ON activities(entity_id, day, start_time);
`
