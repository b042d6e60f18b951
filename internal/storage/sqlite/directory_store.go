// Package sqlite implements storage.Directory on an embedded SQLite database
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/rollcall/internal/storage"
	"github.com/scrypster/rollcall/pkg/types"
)

// DirectoryStore implements storage.Directory using SQLite.
type DirectoryStore struct {
	db *sql.DB
}

var _ storage.Directory = (*DirectoryStore)(nil)

// NewDirectoryStore opens (or creates) a SQLite directory.
// If the open fails because of stale WAL files left by a crashed process, it
// checks that no other process holds them and retries once after removing them.
func NewDirectoryStore(dsn string) (*DirectoryStore, error) {
	store, err := openDirectoryStore(dsn)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openDirectoryStore(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Info("sqlite: recovered from stale WAL files", "path", dbPath)
	return store, nil
}

func openDirectoryStore(dsn string) (*DirectoryStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; a single connection serialises writes and
	// also keeps a :memory: database alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DirectoryStore{db: db}, nil
}

// ListEntities returns all entities ordered by ID with activities attached.
func (s *DirectoryStore) ListEntities(ctx context.Context) ([]types.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, aliases, attributes, department, room, floor, created_at, updated_at
		FROM entities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}

	activities, err := s.queryActivities(ctx, `
		SELECT id, entity_id, day, start_minute, end_minute, label, created_at
		FROM activities ORDER BY entity_id, day, start_minute`)
	if err != nil {
		return nil, err
	}
	storage.Attach(entities, activities)
	return entities, nil
}

// GetEntity retrieves an entity by ID with its activities.
func (s *DirectoryStore) GetEntity(ctx context.Context, id int64) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, aliases, attributes, department, room, floor, created_at, updated_at
		FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	e.Activities, err = s.ActivitiesOf(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpsertEntity creates or updates an entity.
func (s *DirectoryStore) UpsertEntity(ctx context.Context, entity *types.Entity) error {
	if err := storage.ValidateEntity(entity); err != nil {
		return err
	}

	aliases, err := json.Marshal(nonNil(entity.Aliases))
	if err != nil {
		return fmt.Errorf("failed to encode aliases: %w", err)
	}

	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (id, name, aliases, attributes, department, room, floor, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			aliases = excluded.aliases,
			attributes = excluded.attributes,
			department = excluded.department,
			room = excluded.room,
			floor = excluded.floor,
			updated_at = excluded.updated_at`,
		entity.ID, entity.Name, string(aliases), entity.Attributes,
		entity.Department, entity.Room, entity.Floor, entity.CreatedAt, entity.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert entity %d: %w", entity.ID, err)
	}
	return nil
}

// DeleteEntity removes an entity; its activities cascade.
func (s *DirectoryStore) DeleteEntity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("entity %d", id))
}

// ActivitiesFor returns one entity's activities on a day, ordered by start.
func (s *DirectoryStore) ActivitiesFor(ctx context.Context, entityID int64, day types.Weekday) ([]types.Activity, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, types.ErrInvalidDay)
	}
	return s.queryActivities(ctx, `
		SELECT id, entity_id, day, start_minute, end_minute, label, created_at
		FROM activities WHERE entity_id = ? AND day = ? ORDER BY start_minute`,
		entityID, int(day))
}

// ActivitiesOf returns all activities of the given entities.
func (s *DirectoryStore) ActivitiesOf(ctx context.Context, entityIDs []int64) ([]types.Activity, error) {
	if len(entityIDs) == 0 {
		return []types.Activity{}, nil
	}

	placeholders := make([]string, len(entityIDs))
	args := make([]interface{}, len(entityIDs))
	for i, id := range entityIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, entity_id, day, start_minute, end_minute, label, created_at
		FROM activities WHERE entity_id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY entity_id, day, start_minute`
	return s.queryActivities(ctx, query, args...)
}

// AddActivity persists an activity.
func (s *DirectoryStore) AddActivity(ctx context.Context, activity *types.Activity) error {
	if err := storage.ValidateActivity(activity); err != nil {
		return err
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, entity_id, day, start_minute, end_minute, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.EntityID, int(activity.Day), activity.Start, activity.End,
		activity.Label, activity.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return fmt.Errorf("entity %d: %w", activity.EntityID, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to add activity: %w", err)
	}
	return nil
}

// DeleteActivity removes an activity by ID.
func (s *DirectoryStore) DeleteActivity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity %s: %w", id, err)
	}
	return requireAffected(res, "activity "+id)
}

// Close flushes the WAL into the main database file and releases resources.
func (s *DirectoryStore) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Warn("sqlite: WAL checkpoint on close failed", "err", err)
	}
	return s.db.Close()
}

func (s *DirectoryStore) queryActivities(ctx context.Context, query string, args ...interface{}) ([]types.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := []types.Activity{}
	for rows.Next() {
		var a types.Activity
		var day int
		if err := rows.Scan(&a.ID, &a.EntityID, &day, &a.Start, &a.End, &a.Label, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Day = types.Weekday(day)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row scanner) (*types.Entity, error) {
	var e types.Entity
	var aliases string
	err := row.Scan(&e.ID, &e.Name, &aliases, &e.Attributes, &e.Department, &e.Room, &e.Floor,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}
	if err := json.Unmarshal([]byte(aliases), &e.Aliases); err != nil {
		return nil, fmt.Errorf("failed to decode aliases for entity %d: %w", e.ID, err)
	}
	if len(e.Aliases) == 0 {
		e.Aliases = nil
	}
	return &e, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// dbPathFromDSN extracts the filesystem path from a SQLite DSN.
// Handles bare paths ("/path/to/db.sqlite") and file: URIs ("file:/path/to/db.sqlite?mode=rwc").
// Returns empty string for in-memory databases or unparseable DSNs.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}

	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" || path == "" {
			return ""
		}
		return path
	}

	return dsn
}

// isRecoverableWALError returns true if the error matches patterns caused by
// stale WAL files left behind after a crash (SIGKILL, OOM, etc.).
func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") ||
		strings.Contains(msg, "database is locked")
}

// isWALStale checks whether -shm/-wal files exist for the given database path
// AND no other process currently holds them open (via lsof).
// Returns false if lsof is unavailable (conservative: no deletion).
func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"

	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	// Check if any process has the database or WAL files open.
	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		// lsof not available (e.g., Alpine Docker): conservative fallback.
		return false
	}

	// Check the main db file, -shm, and -wal in a single lsof invocation.
	cmd := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath)
	output, err := cmd.Output()
	if err != nil {
		// lsof returns exit code 1 when no files are open, which means stale.
		return true
	}

	// If lsof produced output, some process has these files open: not stale.
	return strings.TrimSpace(string(output)) == ""
}

// removeStaleWAL removes -shm and -wal files for the given database path.
func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("sqlite: failed to remove stale WAL file", "path", path, "err", err)
		}
	}
}

// fileExists returns true if the path exists on disk.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
