// Package affinity links directory entities that share an attribute
// keyword and recommends an entity's direct neighbors.
//
// Build compares every pair of entities, so it is O(n²) in the number of
// entities with attributes. That is fine for a department-sized directory
// (a few thousand people); past that an inverted keyword index would be
// the next step.
package affinity

import (
	"sort"

	"github.com/scrypster/rollcall/internal/lexicon"
	"github.com/scrypster/rollcall/pkg/types"
)

// Edge is an undirected link between two entities. A is always the
// smaller id.
type Edge struct {
	A int64 `json:"a"`
	B int64 `json:"b"`
}

// Graph is an immutable adjacency structure produced by Build.
type Graph struct {
	adjacency map[int64]map[int64]struct{}
}

// Build creates a node per entity and an edge between every pair whose
// attribute keyword sets intersect (case-insensitive, split on whitespace
// and commas).
func Build(entities []types.Entity) *Graph {
	g := &Graph{adjacency: make(map[int64]map[int64]struct{}, len(entities))}

	keywords := make([]map[string]struct{}, len(entities))
	for i, e := range entities {
		g.addNode(e.ID)
		set := make(map[string]struct{})
		for _, kw := range lexicon.SplitAttributes(e.Attributes) {
			set[kw] = struct{}{}
		}
		keywords[i] = set
	}

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			if entities[i].ID != entities[j].ID && overlap(keywords[i], keywords[j]) {
				g.addEdge(entities[i].ID, entities[j].ID)
			}
		}
	}
	return g
}

func overlap(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for kw := range a {
		if _, ok := b[kw]; ok {
			return true
		}
	}
	return false
}

func (g *Graph) addNode(id int64) {
	if _, ok := g.adjacency[id]; !ok {
		g.adjacency[id] = make(map[int64]struct{})
	}
}

func (g *Graph) addEdge(a, b int64) {
	g.addNode(a)
	g.addNode(b)
	g.adjacency[a][b] = struct{}{}
	g.adjacency[b][a] = struct{}{}
}

// Recommend returns the direct neighbors of id, ascending. Unknown ids
// yield an empty slice.
func (g *Graph) Recommend(id int64) []int64 {
	out := make([]int64, 0, len(g.adjacency[id]))
	for n := range g.adjacency[id] {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Connected reports whether a and b share an edge.
func (g *Graph) Connected(a, b int64) bool {
	_, ok := g.adjacency[a][b]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.adjacency)
}

// Edges lists every edge once, ordered by (A, B).
func (g *Graph) Edges() []Edge {
	var out []Edge
	for a, ns := range g.adjacency {
		for b := range ns {
			if a < b {
				out = append(out, Edge{A: a, B: b})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
