package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/rollcall/pkg/types"
)

func TestBuildLinksSharedKeywords(t *testing.T) {
	g := Build([]types.Entity{
		{ID: 1, Name: "A", Attributes: "Machine Learning, Data Mining"},
		{ID: 2, Name: "B", Attributes: "machine vision"},
		{ID: 3, Name: "C", Attributes: "Networks"},
		{ID: 4, Name: "D", Attributes: "data,networks"},
		{ID: 5, Name: "E"},
	})

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, []int64{2, 4}, g.Recommend(1))
	assert.Equal(t, []int64{1}, g.Recommend(2))
	assert.Equal(t, []int64{4}, g.Recommend(3))
	assert.Equal(t, []int64{1, 3}, g.Recommend(4))
	assert.Empty(t, g.Recommend(5))
	assert.Empty(t, g.Recommend(99))

	assert.Equal(t, []Edge{{1, 2}, {1, 4}, {3, 4}}, g.Edges())
}

func TestEdgesAreUndirected(t *testing.T) {
	g := Build([]types.Entity{
		{ID: 10, Attributes: "VLSI"},
		{ID: 20, Attributes: "vlsi design"},
	})
	assert.True(t, g.Connected(10, 20))
	assert.True(t, g.Connected(20, 10))
	assert.False(t, g.Connected(10, 10))
}

func TestEmptyAttributesNeverLink(t *testing.T) {
	g := Build([]types.Entity{{ID: 1, Attributes: " , "}, {ID: 2, Attributes: ""}})
	assert.Empty(t, g.Edges())
	assert.Equal(t, 2, g.Len())
}
