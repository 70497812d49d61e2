package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestList_Embedded(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "20250301090000_create_importer_schema")
}

func TestList_Directory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2_b.up.sql", "2_b.down.sql", "1_a.up.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}

	out, err := run(t, "list", "--path", dir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "1_a")
	assert.Contains(t, lines[1], "2_b")

	out, err = run(t, "list", "--path", filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Contains(t, out, "no migrations found")
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "create", "Add registry index", "--path", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"down without confirm", []string{"down"}, "--confirm"},
		{"step not a number", []string{"step", "two"}, "invalid step count"},
		{"force not a number", []string{"force", "v1"}, "invalid version"},
		{"step missing count", []string{"step"}, "accepts 1 arg"},
		{"create missing name", []string{"create"}, "accepts between 1 and 2 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteVersion(t *testing.T) {
	tests := []struct {
		version uint
		dirty   bool
		want    string
	}{
		{0, false, "no migrations applied\n"},
		{20250301090000, false, "20250301090000\n"},
		{7, true, "7 (dirty)\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, writeVersion(&buf, tt.version, tt.dirty))
		assert.Equal(t, tt.want, buf.String())
	}
}
