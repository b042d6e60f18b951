// Package engine composes the directory indexes and the scheduling
// components behind one API: lexical search with fuzzy fallback, affinity
// recommendations, conflict-checked booking, free-time queries, schedule
// optimization, and the request queue and reminder services.
//
// Search and recommendation read an immutable snapshot that Rebuild swaps
// atomically. Booking and availability read the directory store directly.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/scrypster/rollcall/internal/config"
	"github.com/scrypster/rollcall/internal/lexicon"
	"github.com/scrypster/rollcall/internal/scheduler"
	"github.com/scrypster/rollcall/pkg/types"
)

// Config holds configuration for the engine.
type Config struct {
	// FuzzyMaxDistance is the edit distance used when prefix search finds
	// nothing (default: 2).
	FuzzyMaxDistance int

	// Window is the working-hours range used by GroupAvailability and
	// Presence (default: 09:00-17:00).
	Window types.Range

	// Grid is the candidate space for Optimize (default: Mon-Fri hourly).
	Grid scheduler.Grid

	// MaxRequests and MaxSteps bound Optimize (defaults: 64, 1,000,000).
	MaxRequests int
	MaxSteps    int

	// ReminderLead is how long before a booked activity's next occurrence
	// Book schedules a reminder. Zero disables it (default: 15m).
	ReminderLead time.Duration

	// Location is the time zone Presence evaluates instants in
	// (default: Asia/Kolkata, falling back to UTC if tzdata is missing).
	Location *time.Location
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.UTC
	}
	return Config{
		FuzzyMaxDistance: lexicon.DefaultMaxDistance,
		Window:           types.Range{Start: 9 * 60, End: 17 * 60},
		Grid:             scheduler.DefaultGrid(),
		MaxRequests:      64,
		MaxSteps:         1_000_000,
		ReminderLead:     15 * time.Minute,
		Location:         loc,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.FuzzyMaxDistance < 0 {
		return fmt.Errorf("FuzzyMaxDistance must be >= 0, got %d", c.FuzzyMaxDistance)
	}
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("Window: %w", err)
	}
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("Grid: %w", err)
	}
	if c.MaxRequests < 0 {
		return fmt.Errorf("MaxRequests must be >= 0, got %d", c.MaxRequests)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("MaxSteps must be >= 0, got %d", c.MaxSteps)
	}
	if c.ReminderLead < 0 {
		return fmt.Errorf("ReminderLead must be >= 0, got %v", c.ReminderLead)
	}
	if c.Location == nil {
		return errors.New("Location is required")
	}
	return nil
}

// ConfigFromSettings derives the engine config from loaded settings.
func ConfigFromSettings(cfg *config.Config) (Config, error) {
	window, err := cfg.Schedule.Window()
	if err != nil {
		return Config{}, err
	}
	days, err := cfg.Schedule.Weekdays()
	if err != nil {
		return Config{}, err
	}
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return Config{}, err
	}

	c := Config{
		FuzzyMaxDistance: cfg.Search.FuzzyMaxDistance,
		Window:           window,
		Grid:             scheduler.HourlyGrid(days, window.Start, window.End, cfg.Schedule.SlotMinutes),
		MaxRequests:      cfg.Schedule.MaxRequests,
		MaxSteps:         cfg.Schedule.MaxSteps,
		ReminderLead:     cfg.Reminders.Lead,
		Location:         loc,
	}
	return c, c.Validate()
}

// PresenceState describes where an entity is at an instant.
type PresenceState string

const (
	InActivity PresenceState = "in_activity"
	Available  PresenceState = "available"
	OffHours   PresenceState = "off_hours"
)

// Presence is the answer to "where is this person right now, and when can I
// catch them?".
type Presence struct {
	EntityID int64         `json:"entity_id"`
	At       time.Time     `json:"at"` // in the configured location
	Day      types.Weekday `json:"day"`
	Minute   int           `json:"minute"`
	State    PresenceState `json:"state"`

	// Current is the activity in progress, if State is InActivity.
	Current *types.Activity `json:"current,omitempty"`

	// Free is the free gap containing At when Available, otherwise the next
	// free gap later the same day inside working hours. Nil if none remains.
	Free *types.Range `json:"free,omitempty"`
}

// Stats describes the published snapshot.
type Stats struct {
	Entities int       `json:"entities"`
	Tokens   int       `json:"tokens"`
	Edges    int       `json:"edges"`
	BuiltAt  time.Time `json:"built_at"`
}
