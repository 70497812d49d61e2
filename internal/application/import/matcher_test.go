package importapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankMatches(t *testing.T) {
	candidates := []Candidate{
		{ID: 7, Name: "Farmacia La Luz"},
		{ID: 3, Name: "Óptica Central SRL"},
		{ID: 9, Name: "Juana Perez"},
	}

	matches := RankMatches("optica central", candidates)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(3), matches[0].ID)
	assert.Equal(t, 3, matches[0].Distance)

	m, ok := BestMatch("Farmacia Luz", candidates)
	require.True(t, ok)
	assert.Equal(t, int64(7), m.ID)

	_, ok = BestMatch("Juan", candidates)
	assert.False(t, ok, "distance over the ratio must not match")
}

func TestRankMatches_TiesGoToLowestID(t *testing.T) {
	candidates := []Candidate{
		{ID: 12, Name: "Lente Azul"},
		{ID: 4, Name: "lente azul"},
	}

	m, ok := BestMatch("LENTE AZUL", candidates)
	require.True(t, ok)
	assert.Equal(t, int64(4), m.ID)
}

func TestRankMatches_Empty(t *testing.T) {
	assert.Nil(t, RankMatches("", []Candidate{{ID: 1, Name: "x"}}))
	assert.Nil(t, RankMatches("x", nil))
}
