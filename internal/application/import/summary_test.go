package importapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestSummary_Record(t *testing.T) {
	s := NewSummary(bulk.ImportEntityContacts, "clientes.csv", 2)
	s.Record(2, Ok())
	s.Record(3, SkipValue(ReasonDuplicateName, FieldName, "Ana", "contact already exists"))
	s.Record(4, Skip(ReasonMissingName, "name is empty"))
	s.Record(5, Skip(ReasonMissingName, "name is empty"))
	s.Record(6, Deferred())
	s.Record(7, Fatal(errors.New("boom")))

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Imported)
	assert.Equal(t, 3, s.Skipped)
	assert.Equal(t, map[string]int{ReasonDuplicateName: 1, ReasonMissingName: 2}, s.Reasons)
	assert.Len(t, s.Errors(), 2)
	assert.Equal(t, 3, s.TotalErrors())
	assert.True(t, s.IsTruncated())

	details := s.ErrorDetails()
	assert.Equal(t, "Ana", details[0].Value)
	assert.Equal(t, FieldName, details[0].Column)
}

func TestSummary_WriteTo(t *testing.T) {
	s := NewSummary(bulk.ImportEntityProducts, "productos.csv", 1)
	s.Record(2, Ok())
	s.Record(3, Skip(ReasonMissingProductName, "product name is empty"))
	s.Record(4, Skip(ReasonDuplicateSKU, "product exists"))

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	assert.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.String()
	assert.Contains(t, out, "products: productos.csv")
	assert.Contains(t, out, "imported: 1")
	assert.Contains(t, out, "skipped: 2")
	assert.Contains(t, out, "duplicate_sku: 1")
	assert.Contains(t, out, "... and 1 more")
}

func TestSummary_Merge(t *testing.T) {
	total := NewSummary(bulk.ImportEntityContacts, "batch", 10)

	a := NewSummary(bulk.ImportEntityContacts, "a.csv", 10)
	a.Record(2, Ok())
	a.Record(3, Skip(ReasonDuplicateName, "exists"))
	b := NewSummary(bulk.ImportEntityContacts, "b.csv", 10)
	b.Record(2, Skip(ReasonDuplicateName, "exists"))

	total.Merge(a)
	total.Merge(b)

	assert.Equal(t, 3, total.Total)
	assert.Equal(t, 1, total.Imported)
	assert.Equal(t, 2, total.Reasons[ReasonDuplicateName])
	assert.Equal(t, "b.csv: exists", total.Errors()[1].Message)
}

func TestPersistFailure(t *testing.T) {
	res := persistFailure("save contact", fmt.Errorf("wrap: %w", context.Canceled))
	assert.Equal(t, KindFatal, res.Kind)

	res = persistFailure("save contact", shared.NewDomainError("INVALID_NAME", "name too long"))
	assert.Equal(t, KindSkip, res.Kind)
	assert.Equal(t, ReasonInvalidRow, res.Reason)

	res = persistFailure("save contact", errors.New("constraint failed"))
	assert.Equal(t, ReasonDatabaseError, res.Reason)
	assert.Contains(t, res.Message, "failed to save contact")
}

func TestResultKind_String(t *testing.T) {
	assert.Equal(t, "deferred", KindDeferred.String())
	assert.Equal(t, "kind(42)", ResultKind(42).String())
}
