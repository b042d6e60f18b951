package lexicon

import (
	"strings"
	"unicode"

	"github.com/scrypster/rollcall/pkg/types"
)

// SplitAttributes breaks a free-text attribute string on whitespace and
// commas, lower-casing each part and dropping empties.
func SplitAttributes(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	out := parts[:0]
	for _, p := range parts {
		if p = Normalize(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TokensFor derives the tokens an entity is searchable by: the full name,
// each alias, the individual name parts when the name has more than one,
// and every attribute keyword.
func TokensFor(e types.Entity) []string {
	var out []string
	add := func(s string) {
		if s = Normalize(s); s != "" {
			out = append(out, s)
		}
	}

	add(e.Name)
	for _, alias := range e.Aliases {
		add(alias)
	}
	if parts := strings.Fields(e.Name); len(parts) > 1 {
		for _, p := range parts {
			add(p)
		}
	}
	out = append(out, SplitAttributes(e.Attributes)...)
	return out
}

// Build returns a new index over every token of every entity.
func Build(entities []types.Entity) *Index {
	ix := New()
	for _, e := range entities {
		for _, tok := range TokensFor(e) {
			ix.Insert(tok, e.ID)
		}
	}
	return ix
}
