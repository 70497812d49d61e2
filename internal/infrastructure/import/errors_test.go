package csvimport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  RowError
		want string
	}{
		{"line only", RowError{Line: 10, Reason: "missing_name", Message: "name is empty"}, "line 10: name is empty"},
		{"with field", RowError{Line: 5, Field: "email", Message: "invalid"}, "line 5, email: invalid"},
		{"with value", RowError{Line: 3, Field: "rnc", Message: "already used", Value: "101"}, `line 3, rnc: already used ("101")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorLog(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		l := NewErrorLog(0)
		for i := 0; i < 25; i++ {
			l.Add(RowError{Line: i + 2, Reason: "missing_name", Message: "name is empty"})
		}
		assert.Len(t, l.Kept(), DefaultMaxErrors)
		assert.Equal(t, 25, l.Total())
		assert.Equal(t, 5, l.Dropped())
	})

	t.Run("at limit nothing dropped", func(t *testing.T) {
		l := NewErrorLog(2)
		l.Add(RowError{Line: 2})
		l.Add(RowError{Line: 3})
		assert.Zero(t, l.Dropped())
	})
}

func TestErrorLog_WriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewErrorLog(1).WriteTo(&buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, buf.String())

	l := NewErrorLog(1)
	l.Add(RowError{Line: 2, Message: "name is empty"})
	l.Add(RowError{Line: 3, Message: "name is empty"})

	n, err = l.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.String()
	assert.Contains(t, out, "errors: 2")
	assert.Contains(t, out, "line 2: name is empty")
	assert.Contains(t, out, "... and 1 more")
	assert.NotContains(t, out, "line 3")
}

func TestErrorLog_Absorb(t *testing.T) {
	a := NewErrorLog(2)
	a.Add(RowError{Line: 2, Message: "first"})

	b := NewErrorLog(1)
	b.Add(RowError{Line: 5, Message: "second"})
	b.Add(RowError{Line: 6, Message: "dropped"})

	a.Absorb(b, "b.csv")

	assert.Equal(t, 3, a.Total())
	require.Len(t, a.Kept(), 2)
	assert.Equal(t, "b.csv: second", a.Kept()[1].Message)
	assert.Equal(t, 1, a.Dropped())
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"database_error", "duplicate_name"},
		SortedKeys(map[string]int{"duplicate_name": 2, "database_error": 1}))
	assert.Empty(t, SortedKeys(nil))
}
