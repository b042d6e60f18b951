// Package lexicon implements the directory's lexical index: a prefix trie
// over normalized tokens that maps each token to the set of entity ids that
// contributed it, with an edit-distance fallback for misspelled queries.
//
// Nodes live in a single arena slice and refer to their children by index,
// so the whole index can be dropped and rebuilt without per-node cleanup.
package lexicon

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDistance is the default fuzzy threshold. Callers cap it by
// query length with EffectiveDistance, so a two-letter query never reaches
// every two-letter alias.
const DefaultMaxDistance = 2

// RunesPerEdit is how many query runes buy one edit in EffectiveDistance.
const RunesPerEdit = 4

// EffectiveDistance returns the edit budget for query: one edit per
// RunesPerEdit runes, never more than maxDistance. Queries shorter than
// RunesPerEdit get zero, which only matches whole tokens.
func EffectiveDistance(query string, maxDistance int) int {
	d := utf8.RuneCountInString(query) / RunesPerEdit
	if d > maxDistance {
		return maxDistance
	}
	return d
}

// ErrInvalidDistance is returned for a negative fuzzy threshold.
var ErrInvalidDistance = errors.New("lexicon: max distance must be >= 0")

type edge struct {
	r     rune
	child int32
}

type node struct {
	edges []edge  // sorted by rune
	ids   []int64 // sorted, unique; non-empty marks the end of a token
}

// Index is a prefix trie keyed by lower-cased tokens. It is not safe for
// concurrent mutation; the engine builds a fresh Index per rebuild and only
// reads it afterwards.
type Index struct {
	nodes  []node
	tokens int
}

// New returns an empty index.
func New() *Index {
	return &Index{nodes: make([]node, 1)}
}

// Normalize trims and lower-cases a token or query.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Insert associates token with id. Empty tokens are ignored and repeated
// (token, id) pairs are no-ops.
func (ix *Index) Insert(token string, id int64) {
	key := Normalize(token)
	if key == "" {
		return
	}
	cur := int32(0)
	for _, r := range key {
		cur = ix.child(cur, r, true)
	}

	ids := ix.nodes[cur].ids
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	if pos < len(ids) && ids[pos] == id {
		return
	}
	if len(ids) == 0 {
		ix.tokens++
	}
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	ix.nodes[cur].ids = ids
}

// child returns the index of cur's child for r, creating it when create is
// set. It returns -1 when the child is missing and create is false.
func (ix *Index) child(cur int32, r rune, create bool) int32 {
	edges := ix.nodes[cur].edges
	pos := sort.Search(len(edges), func(i int) bool { return edges[i].r >= r })
	if pos < len(edges) && edges[pos].r == r {
		return edges[pos].child
	}
	if !create {
		return -1
	}

	next := int32(len(ix.nodes))
	ix.nodes = append(ix.nodes, node{})

	edges = append(edges, edge{})
	copy(edges[pos+1:], edges[pos:])
	edges[pos] = edge{r: r, child: next}
	ix.nodes[cur].edges = edges
	return next
}

// PrefixSearch returns the distinct ids whose tokens start with query,
// ascending. An empty query or a miss returns an empty slice.
func (ix *Index) PrefixSearch(query string) []int64 {
	key := Normalize(query)
	if key == "" {
		return []int64{}
	}
	cur := int32(0)
	for _, r := range key {
		if cur = ix.child(cur, r, false); cur < 0 {
			return []int64{}
		}
	}

	found := make(map[int64]struct{})
	stack := []int32{cur}
	for len(stack) > 0 {
		n := &ix.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		for _, id := range n.ids {
			found[id] = struct{}{}
		}
		for _, e := range n.edges {
			stack = append(stack, e.child)
		}
	}
	return sortedIDs(found)
}

// FuzzySearch returns the ids owning at least one token within maxDistance
// Levenshtein edits of query, ascending. The trie is walked once with one
// dynamic-programming row per node; subtrees whose best row value already
// exceeds maxDistance are pruned.
func (ix *Index) FuzzySearch(query string, maxDistance int) ([]int64, error) {
	if maxDistance < 0 {
		return nil, ErrInvalidDistance
	}
	word := []rune(Normalize(query))
	if len(word) == 0 {
		return []int64{}, nil
	}

	row := make([]int, len(word)+1)
	for i := range row {
		row[i] = i
	}
	found := make(map[int64]struct{})
	for _, e := range ix.nodes[0].edges {
		ix.fuzzyWalk(e.child, e.r, word, row, maxDistance, found)
	}
	return sortedIDs(found), nil
}

func (ix *Index) fuzzyWalk(cur int32, r rune, word []rune, prev []int, maxDistance int, found map[int64]struct{}) {
	row := make([]int, len(prev))
	row[0] = prev[0] + 1
	best := row[0]
	for i := 1; i < len(row); i++ {
		cost := prev[i-1]
		if word[i-1] != r {
			cost++
		}
		row[i] = min(row[i-1]+1, prev[i]+1, cost)
		best = min(best, row[i])
	}

	n := &ix.nodes[cur]
	if row[len(row)-1] <= maxDistance {
		for _, id := range n.ids {
			found[id] = struct{}{}
		}
	}
	if best > maxDistance {
		return
	}
	for _, e := range n.edges {
		ix.fuzzyWalk(e.child, e.r, word, row, maxDistance, found)
	}
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.nodes = make([]node, 1)
	ix.tokens = 0
}

// Len returns the number of distinct tokens.
func (ix *Index) Len() int {
	return ix.tokens
}

// Tokens lists every indexed token in lexical order.
func (ix *Index) Tokens() []string {
	var out []string
	var walk func(cur int32, prefix []rune)
	walk = func(cur int32, prefix []rune) {
		n := &ix.nodes[cur]
		if len(n.ids) > 0 {
			out = append(out, string(prefix))
		}
		for _, e := range n.edges {
			walk(e.child, append(prefix, e.r))
		}
	}
	walk(0, nil)
	return out
}

// Levenshtein returns the edit distance between a and b over runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := prev[j-1]
			if ra[i-1] != rb[j-1] {
				cost++
			}
			cur[j] = min(cur[j-1]+1, prev[j]+1, cost)
		}
		prev = cur
	}
	return prev[len(rb)]
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
