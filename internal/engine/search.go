package engine

import (
	"strings"

	"github.com/scrypster/rollcall/internal/lexicon"
	"github.com/scrypster/rollcall/pkg/types"
)

// Search returns the entities matching query by prefix, falling back to
// fuzzy matching when no token has query as a prefix. The fuzzy budget is
// lexicon.EffectiveDistance: one edit per four runes, capped at
// Config.FuzzyMaxDistance. Results are ordered by entity ID. No match yields an empty slice.
func (e *Engine) Search(query string) ([]types.Entity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.Entity{}, nil
	}

	s := e.snap.Load()
	ids := s.index.PrefixSearch(query)
	if len(ids) == 0 {
		var err error
		ids, err = s.index.FuzzySearch(query, lexicon.EffectiveDistance(query, e.config.FuzzyMaxDistance))
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			e.logger.Debug("fuzzy fallback", "query", query, "matches", len(ids))
		}
	}
	return s.lookup(ids), nil
}

// Entity returns an entity from the current snapshot.
func (e *Engine) Entity(id int64) (types.Entity, bool) {
	ent, ok := e.snap.Load().entities[id]
	return ent, ok
}

// Recommend returns the IDs of entities sharing an attribute keyword with id,
// ascending. Unknown IDs yield an empty slice.
func (e *Engine) Recommend(id int64) []int64 {
	return e.snap.Load().graph.Recommend(id)
}
