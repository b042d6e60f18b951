// Package storage defines the directory contract rollcall reads entities and
// activities from.
//
// The engine treats the directory as an external collaborator: it lists
// entities to build its in-memory indexes and reads or writes activities when
// booking. Implementations live in the sqlite and postgres subpackages.
package storage

import (
	"context"

	"github.com/scrypster/rollcall/pkg/types"
)

// EntitySource lists every entity with its activities attached.
// It is the only method a rebuild needs.
type EntitySource interface {
	ListEntities(ctx context.Context) ([]types.Entity, error)
}

// Directory provides CRUD over entities and their weekly activities.
type Directory interface {
	EntitySource

	// GetEntity retrieves an entity by ID with its activities.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id int64) (*types.Entity, error)

	// UpsertEntity creates or updates an entity (upsert semantics on ID).
	// Activities on the value are ignored; use AddActivity.
	UpsertEntity(ctx context.Context, entity *types.Entity) error

	// DeleteEntity removes an entity and its activities.
	// Returns ErrNotFound if the entity doesn't exist.
	DeleteEntity(ctx context.Context, id int64) error

	// ActivitiesFor returns one entity's activities on a day, ordered by start.
	ActivitiesFor(ctx context.Context, entityID int64, day types.Weekday) ([]types.Activity, error)

	// ActivitiesOf returns all activities of the given entities, ordered by
	// entity, day and start.
	ActivitiesOf(ctx context.Context, entityIDs []int64) ([]types.Activity, error)

	// AddActivity persists an activity. The caller is responsible for
	// conflict checks; the store only validates the record itself.
	AddActivity(ctx context.Context, activity *types.Activity) error

	// DeleteActivity removes an activity by ID.
	// Returns ErrNotFound if the activity doesn't exist.
	DeleteActivity(ctx context.Context, id string) error

	// Close releases the underlying connection pool.
	Close() error
}
