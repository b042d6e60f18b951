// Package importer loads a directory seed file (YAML) into a storage.Directory.
//
// A seed lists entities with their weekly activities:
//
//	entities:
//	  - id: 1
//	    name: Prashant Kumar
//	    aliases: [PK]
//	    attributes: Machine Learning, Compilers
//	    room: A-204
//	    activities:
//	      - {day: Monday, start: "09:00", end: "10:00", label: Compilers}
//
// Import is idempotent: activity IDs are derived from their content, so
// re-importing the same file adds nothing.
package importer

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/scrypster/rollcall/internal/storage"
	"github.com/scrypster/rollcall/internal/timeslot"
	"github.com/scrypster/rollcall/pkg/types"
)

// activityNamespace scopes content-derived activity IDs.
var activityNamespace = uuid.MustParse("6f1c3c1e-8f7a-4c55-9a53-2f0f7d2d9a11")

// Seed is the parsed seed file.
type Seed struct {
	Entities []SeedEntity `yaml:"entities"`
}

// SeedEntity is one directory entry.
type SeedEntity struct {
	ID         int64          `yaml:"id"`
	Name       string         `yaml:"name"`
	Aliases    []string       `yaml:"aliases"`
	Attributes string         `yaml:"attributes"`
	Department string         `yaml:"department"`
	Room       string         `yaml:"room"`
	Floor      string         `yaml:"floor"`
	Activities []SeedActivity `yaml:"activities"`
}

// SeedActivity uses clock strings so files stay readable.
type SeedActivity struct {
	Day   types.Weekday `yaml:"day"`
	Start string        `yaml:"start"`
	End   string        `yaml:"end"`
	Label string        `yaml:"label"`
}

// Result summarizes an import.
type Result struct {
	Entities   int
	Activities int // newly added
	Skipped    int // already present
}

// ParseSeed decodes and validates a seed document.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("importer: parse seed: %w", err)
	}

	seen := make(map[int64]bool, len(seed.Entities))
	for i, e := range seed.Entities {
		ent := e.entity()
		if err := ent.Validate(); err != nil {
			return nil, fmt.Errorf("importer: entity #%d: %w", i+1, err)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("importer: duplicate entity id %d", e.ID)
		}
		seen[e.ID] = true
		for j, a := range e.Activities {
			if _, err := a.activity(e.ID); err != nil {
				return nil, fmt.Errorf("importer: entity %d activity #%d: %w", e.ID, j+1, err)
			}
		}
	}
	return &seed, nil
}

// LoadSeedFile reads and parses a seed file.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", path, err)
	}
	return ParseSeed(data)
}

// Import upserts every entity and adds every activity not already stored.
// An activity overlapping a different stored activity aborts the import with
// a timeslot.ErrConflict; entities processed before it stay imported.
func Import(ctx context.Context, dir storage.Directory, seed *Seed) (Result, error) {
	var res Result
	for _, e := range seed.Entities {
		ent := e.entity()
		if err := dir.UpsertEntity(ctx, &ent); err != nil {
			return res, fmt.Errorf("importer: entity %d: %w", e.ID, err)
		}
		res.Entities++

		for _, sa := range e.Activities {
			act, err := sa.activity(e.ID)
			if err != nil {
				return res, fmt.Errorf("importer: entity %d: %w", e.ID, err)
			}

			existing, err := dir.ActivitiesFor(ctx, e.ID, act.Day)
			if err != nil {
				return res, fmt.Errorf("importer: entity %d: %w", e.ID, err)
			}
			if containsID(existing, act.ID) {
				res.Skipped++
				continue
			}
			if err := timeslot.Check(existing, act.Range()); err != nil {
				return res, fmt.Errorf("importer: entity %d: %w", e.ID, err)
			}
			if err := dir.AddActivity(ctx, &act); err != nil {
				return res, fmt.Errorf("importer: entity %d: %w", e.ID, err)
			}
			res.Activities++
		}
	}
	return res, nil
}

func (e SeedEntity) entity() types.Entity {
	return types.Entity{
		ID:         e.ID,
		Name:       e.Name,
		Aliases:    e.Aliases,
		Attributes: e.Attributes,
		Department: e.Department,
		Room:       e.Room,
		Floor:      e.Floor,
	}
}

func (a SeedActivity) activity(entityID int64) (types.Activity, error) {
	start, err := types.ParseClock(a.Start)
	if err != nil {
		return types.Activity{}, err
	}
	end, err := types.ParseClock(a.End)
	if err != nil {
		return types.Activity{}, err
	}
	act := types.Activity{
		EntityID: entityID,
		Day:      a.Day,
		Start:    start,
		End:      end,
		Label:    a.Label,
	}
	if err := act.Validate(); err != nil {
		return types.Activity{}, err
	}
	key := fmt.Sprintf("%d|%d|%d|%d|%s", entityID, act.Day, start, end, a.Label)
	act.ID = uuid.NewSHA1(activityNamespace, []byte(key)).String()
	return act, nil
}

func containsID(acts []types.Activity, id string) bool {
	for _, a := range acts {
		if a.ID == id {
			return true
		}
	}
	return false
}
