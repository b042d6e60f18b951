package storage

import (
	"errors"
	"fmt"

	"github.com/scrypster/rollcall/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateEntity wraps entity validation failures in ErrInvalidInput so
// callers can test for a single sentinel regardless of backend.
func ValidateEntity(e *types.Entity) error {
	if e == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidInput)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ValidateActivity is the activity counterpart of ValidateEntity.
func ValidateActivity(a *types.Activity) error {
	if a == nil {
		return fmt.Errorf("%w: activity is nil", ErrInvalidInput)
	}
	if a.ID == "" {
		return fmt.Errorf("%w: activity id is required", ErrInvalidInput)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Attach groups activities onto their entities in place. Activities whose
// entity is not in the slice are dropped.
func Attach(entities []types.Entity, activities []types.Activity) {
	pos := make(map[int64]int, len(entities))
	for i := range entities {
		pos[entities[i].ID] = i
		entities[i].Activities = nil
	}
	for _, a := range activities {
		if i, ok := pos[a.EntityID]; ok {
			entities[i].Activities = append(entities[i].Activities, a)
		}
	}
}
