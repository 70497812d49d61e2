package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeLastWins(t *testing.T) {
	entries := []*Entry{
		{RNC: "101", Name: "first"},
		{RNC: "102", Name: "other"},
		{RNC: "101", Name: "second"},
	}

	out := DedupeLastWins(entries)

	assert.Len(t, out, 2)
	assert.Equal(t, "102", out[0].RNC)
	assert.Equal(t, "101", out[1].RNC)
	assert.Equal(t, "second", out[1].Name)
}

func TestDedupeLastWins_Empty(t *testing.T) {
	assert.Empty(t, DedupeLastWins(nil))
}
