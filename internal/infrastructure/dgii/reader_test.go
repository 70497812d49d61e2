package dgii

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/erp/importer/internal/domain/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

var syncTime = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

const registryText = "101000001|ÓPTICA CENTRAL SRL|OPTICA CENTRAL|VENTA AL POR MENOR|||||15/03/2001|ACTIVO|NORMAL\r\n" +
	"\r\n" +
	"101-00000-2|PEÑA & ASOCIADOS|||||||  |SUSPENDIDO\r\n" +
	"bad line\r\n" +
	"|SIN RNC|||||||01/01/2000|ACTIVO|NORMAL\r\n"

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func writeText(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "DGII_RNC.TXT")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

// drain reads every result of r, collecting entries and malformed lines
func drain(t *testing.T, r *Reader) ([]*registry.Entry, []*registry.MalformedLineError, []int) {
	t.Helper()
	var entries []*registry.Entry
	var malformed []*registry.MalformedLineError
	var lines []int
	for {
		e, err := r.Next()
		if err == io.EOF {
			return entries, malformed, lines
		}
		var m *registry.MalformedLineError
		if errors.As(err, &m) {
			malformed = append(malformed, m)
			continue
		}
		require.NoError(t, err)
		entries = append(entries, e)
		lines = append(lines, r.Line())
	}
}

func TestReader_DecodesLatin1(t *testing.T) {
	path := writeText(t, latin1(t, registryText))
	r, err := openText(path, syncTime, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, path, r.Path())
	assert.Equal(t, int64(len(latin1(t, registryText))), r.Size())

	entries, malformed, lines := drain(t, r)
	require.Len(t, entries, 2)
	assert.Equal(t, []int{1, 3}, lines, "blank lines still count")

	first := entries[0]
	assert.Equal(t, "101000001", first.RNC)
	assert.Equal(t, "ÓPTICA CENTRAL SRL", first.Name)
	assert.Equal(t, "OPTICA CENTRAL", first.CommercialName)
	assert.Equal(t, "VENTA AL POR MENOR", first.Category)
	assert.Equal(t, "ACTIVO", first.Status)
	assert.Equal(t, "NORMAL", first.PaymentRegime)
	require.NotNil(t, first.RegisteredAt)
	assert.Equal(t, time.Date(2001, 3, 15, 0, 0, 0, 0, time.UTC), *first.RegisteredAt)
	assert.Equal(t, syncTime, first.UpdatedAt)

	second := entries[1]
	assert.Equal(t, "101000002", second.RNC)
	assert.Equal(t, "PEÑA & ASOCIADOS", second.Name)
	assert.Nil(t, second.RegisteredAt)
	assert.Equal(t, "SUSPENDIDO", second.Status)
	assert.Empty(t, second.PaymentRegime, "the regime column is optional")

	require.Len(t, malformed, 2)
	assert.Equal(t, 4, malformed[0].Line)
	assert.Contains(t, malformed[0].Reason, "expected at least 10 columns")
	assert.Equal(t, 5, malformed[1].Line)
	assert.Equal(t, "missing rnc", malformed[1].Reason)
}

func TestParseLine_MissingName(t *testing.T) {
	_, err := ParseLine(7, "131000001| |||||||||", syncTime)
	var m *registry.MalformedLineError
	require.ErrorAs(t, err, &m)
	assert.Equal(t, 7, m.Line)
	assert.Equal(t, "missing name for rnc 131000001", m.Reason)
}

func TestReader_CloseRunsCleanup(t *testing.T) {
	path := writeText(t, []byte("1|A|||||||||\n"))
	cleaned := 0
	r, err := openText(path, syncTime, func() error { cleaned++; return nil })
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.Equal(t, 1, cleaned)
}

func TestOpenText_Missing(t *testing.T) {
	_, err := OpenText(filepath.Join(t.TempDir(), "none.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
