package engine

import (
	"time"

	"github.com/scrypster/rollcall/internal/affinity"
	"github.com/scrypster/rollcall/internal/lexicon"
	"github.com/scrypster/rollcall/pkg/types"
)

// snapshot is immutable once published.
type snapshot struct {
	index    *lexicon.Index
	graph    *affinity.Graph
	entities map[int64]types.Entity
	builtAt  time.Time
}

func emptySnapshot() *snapshot {
	return &snapshot{
		index:    lexicon.New(),
		graph:    affinity.Build(nil),
		entities: map[int64]types.Entity{},
	}
}

func buildSnapshot(entities []types.Entity, now time.Time) *snapshot {
	byID := make(map[int64]types.Entity, len(entities))
	for _, ent := range entities {
		byID[ent.ID] = ent
	}
	return &snapshot{
		index:    lexicon.Build(entities),
		graph:    affinity.Build(entities),
		entities: byID,
		builtAt:  now,
	}
}

func (s *snapshot) lookup(ids []int64) []types.Entity {
	out := make([]types.Entity, 0, len(ids))
	for _, id := range ids {
		if ent, ok := s.entities[id]; ok {
			out = append(out, ent)
		}
	}
	return out
}
