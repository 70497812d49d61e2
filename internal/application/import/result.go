package importapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/importer/internal/domain/shared"
)

// Skip reasons reported in the run summary
const (
	ReasonMissingName           = "missing_name"
	ReasonDuplicateName         = "duplicate_name"
	ReasonDuplicateIDNumber     = "duplicate_id_number"
	ReasonDatabaseError         = "database_error"
	ReasonInvalidRow            = "invalid_row"
	ReasonDuplicateDocument     = "duplicate_document"
	ReasonMissingDocumentNumber = "missing_document_number"
	ReasonUnknownSubtype        = "unknown_subtype"
	ReasonMissingPatient        = "missing_patient"
	ReasonDuplicatePrescription = "duplicate_prescription"
	ReasonMissingProductName    = "missing_product_name"
	ReasonDuplicateSKU          = "duplicate_sku"
	ReasonDuplicateRNC          = "duplicate_rnc"
	ReasonMalformedLine         = "malformed_line"
)

// ResultKind tells the run loop what happened to a row
type ResultKind int

const (
	// KindOK means the row was persisted
	KindOK ResultKind = iota
	// KindSkip means the row was rejected and the run continues
	KindSkip
	// KindFatal aborts the run and rolls back the transaction
	KindFatal
	// KindDeferred means the row was buffered and is reported later
	KindDeferred
)

// String implements fmt.Stringer
func (k ResultKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindSkip:
		return "skip"
	case KindFatal:
		return "fatal"
	case KindDeferred:
		return "deferred"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// RowResult is the outcome of handling one row or one grouped unit
type RowResult struct {
	Kind    ResultKind
	Reason  string
	Column  string
	Value   string
	Message string
	Err     error
}

// Ok reports a persisted row
func Ok() RowResult {
	return RowResult{Kind: KindOK}
}

// Skip reports a rejected row
func Skip(reason, message string) RowResult {
	return RowResult{Kind: KindSkip, Reason: reason, Message: message}
}

// SkipValue reports a row rejected because of one cell
func SkipValue(reason, column, value, message string) RowResult {
	return RowResult{Kind: KindSkip, Reason: reason, Column: column, Value: value, Message: message}
}

// Fatal aborts the run
func Fatal(err error) RowResult {
	return RowResult{Kind: KindFatal, Err: err, Message: err.Error()}
}

// Deferred reports a row kept for a later flush
func Deferred() RowResult {
	return RowResult{Kind: KindDeferred}
}

// persistFailure turns a repository error into a row result. Context
// cancellation stops the run, a domain validation error is an invalid
// row and anything else skips the row as a database error.
func persistFailure(what string, err error) RowResult {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal(err)
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && !errors.Is(err, shared.ErrNotFound) {
		return Skip(ReasonInvalidRow, fmt.Sprintf("failed to %s: %v", what, err))
	}
	return Skip(ReasonDatabaseError, fmt.Sprintf("failed to %s: %v", what, err))
}
