package importapp

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/catalog"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/invoice"
	"github.com/erp/importer/internal/domain/prescription"
	"github.com/erp/importer/internal/domain/registry"
	"github.com/erp/importer/internal/domain/workspace"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRepos runs Isolate inline and counts rolled back savepoints
type stubRepos struct {
	rolledBack int
	isolateErr error
}

func (r *stubRepos) Isolate(_ context.Context, fn func(Repositories) error) error {
	if r.isolateErr != nil {
		return r.isolateErr
	}
	err := fn(r)
	if err != nil {
		r.rolledBack++
	}
	return err
}

func (r *stubRepos) Workspaces() workspace.WorkspaceRepository          { return nil }
func (r *stubRepos) Users() workspace.UserRepository                    { return nil }
func (r *stubRepos) Contacts() contact.ContactRepository                { return nil }
func (r *stubRepos) Products() catalog.ProductRepository                { return nil }
func (r *stubRepos) Taxes() catalog.TaxRepository                       { return nil }
func (r *stubRepos) Invoices() invoice.InvoiceRepository                { return nil }
func (r *stubRepos) Prescriptions() prescription.PrescriptionRepository { return nil }
func (r *stubRepos) MasterTables() prescription.MasterTableRepository   { return nil }
func (r *stubRepos) Registry() registry.EntryRepository                 { return nil }
func (r *stubRepos) History() bulk.ImportHistoryRepository              { return nil }

func newTestRun(repos Repositories) *Run {
	return &Run{
		TenantID: uuid.New(),
		Repos:    repos,
		Resolver: NewResolver(uuid.New(), decimal.Zero),
		Summary:  NewSummary(bulk.ImportEntityContacts, "test.csv", 10),
	}
}

func TestApply_OkCommitsResolverCache(t *testing.T) {
	repos := &stubRepos{}
	run := newTestRun(repos)
	svc := &Service{}

	res := svc.apply(context.Background(), run, 2, func(context.Context, Repositories) RowResult {
		run.Resolver.track("contact", func() {})
		return Ok()
	})

	assert.Equal(t, KindOK, res.Kind)
	assert.Equal(t, 1, run.Summary.Imported)
	assert.Equal(t, 1, run.Resolver.Created()["contact"])
	assert.Zero(t, repos.rolledBack)
}

func TestApply_SkipRollsBackResolverCache(t *testing.T) {
	repos := &stubRepos{}
	run := newTestRun(repos)
	svc := &Service{}

	undone := false
	res := svc.apply(context.Background(), run, 3, func(context.Context, Repositories) RowResult {
		run.Resolver.track("contact", func() { undone = true })
		return Skip(ReasonInvalidRow, "bad row")
	})

	assert.Equal(t, KindSkip, res.Kind)
	assert.True(t, undone)
	assert.Zero(t, run.Resolver.Created()["contact"])
	assert.Equal(t, 1, repos.rolledBack)
	assert.Equal(t, 1, run.Summary.Reasons[ReasonInvalidRow])
	require.Len(t, run.Summary.Errors(), 1)
	assert.Equal(t, 3, run.Summary.Errors()[0].Line)
}

func TestApply_PanicBecomesDatabaseError(t *testing.T) {
	repos := &stubRepos{}
	run := newTestRun(repos)
	svc := &Service{}

	res := svc.apply(context.Background(), run, 4, func(context.Context, Repositories) RowResult {
		panic("boom")
	})

	assert.Equal(t, KindSkip, res.Kind)
	assert.Equal(t, ReasonDatabaseError, res.Reason)
	assert.Contains(t, res.Message, "boom")
	assert.Equal(t, 1, repos.rolledBack)
	assert.Equal(t, 1, run.Summary.Skipped)
}

func TestApply_SavepointFailure(t *testing.T) {
	repos := &stubRepos{isolateErr: errors.New("savepoint failed")}
	run := newTestRun(repos)

	res := (&Service{}).apply(context.Background(), run, 5, func(context.Context, Repositories) RowResult {
		return Ok()
	})

	assert.Equal(t, KindSkip, res.Kind)
	assert.Equal(t, ReasonDatabaseError, res.Reason)
	assert.Zero(t, run.Summary.Imported)
}

func TestApply_FatalIsNotCounted(t *testing.T) {
	run := newTestRun(&stubRepos{})

	res := (&Service{}).apply(context.Background(), run, 6, func(context.Context, Repositories) RowResult {
		return Fatal(context.Canceled)
	})

	assert.Equal(t, KindFatal, res.Kind)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Zero(t, run.Summary.Total)
}

// sliceSource serves fixed rows
type sliceSource struct {
	headers []string
	rows    []*csvimport.Row
	errs    map[int]error
	pos     int
}

func (s *sliceSource) Headers() []string { return s.headers }

func (s *sliceSource) Next() (*csvimport.Row, error) {
	if err, ok := s.errs[s.pos]; ok {
		delete(s.errs, s.pos)
		return nil, err
	}
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceSource) Close() error { return nil }

// recordingHandler accepts rows whose name is not "bad"
type recordingHandler struct {
	seen []string
}

func (h *recordingHandler) Entity() bulk.ImportEntityType { return bulk.ImportEntityContacts }
func (h *recordingHandler) Layout() csvimport.Layout      { return ContactLayout }
func (h *recordingHandler) Required() []string            { return []string{FieldName} }

func (h *recordingHandler) Handle(_ context.Context, _ *Run, _ Repositories, rec Record) RowResult {
	name := rec.Text(FieldName)
	h.seen = append(h.seen, name)
	if name == "bad" {
		return Skip(ReasonInvalidRow, "bad name")
	}
	return Ok()
}

func rawRow(line int, fields ...string) *csvimport.Row {
	return &csvimport.Row{LineNumber: line, RawFields: fields}
}

func TestProcess_RowHandler(t *testing.T) {
	run := newTestRun(&stubRepos{})
	src := &sliceSource{
		headers: []string{"Nombre"},
		rows:    []*csvimport.Row{rawRow(2, "Ana"), rawRow(3, " "), rawRow(4, "bad"), rawRow(5, "Luis")},
		errs:    map[int]error{3: &csv.ParseError{StartLine: 9, Line: 9, Err: csv.ErrQuote}},
	}
	h := &recordingHandler{}

	require.NoError(t, (&Service{}).process(context.Background(), run, h, src))
	assert.Equal(t, []string{"Ana", "bad", "Luis"}, h.seen)
	assert.Equal(t, 2, run.Summary.Imported)
	assert.Equal(t, 1, run.Summary.Reasons[ReasonInvalidRow])
	assert.Equal(t, 1, run.Summary.Reasons[ReasonMalformedLine])
}

func TestProcess_MissingRequiredColumn(t *testing.T) {
	run := newTestRun(&stubRepos{})
	src := &sliceSource{headers: []string{"telefono"}}

	err := (&Service{}).process(context.Background(), run, &recordingHandler{}, src)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), FieldName)
}

func TestProcess_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run := newTestRun(&stubRepos{})
	src := &sliceSource{headers: []string{"nombre"}, rows: []*csvimport.Row{rawRow(2, "Ana")}}

	err := (&Service{}).process(ctx, run, &recordingHandler{}, src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, run.Summary.Total)
}

func TestProcess_ReadErrorIsFatal(t *testing.T) {
	run := newTestRun(&stubRepos{})
	src := &sliceSource{headers: []string{"nombre"}, errs: map[int]error{0: errors.New("disk gone")}}

	err := (&Service{}).process(context.Background(), run, &recordingHandler{}, src)
	assert.ErrorContains(t, err, "disk gone")
}

func TestProcess_Headerless(t *testing.T) {
	run := newTestRun(&stubRepos{})
	src := &sliceSource{rows: []*csvimport.Row{rawRow(1, "Ana", "40212345678")}}
	h := &recordingHandler{}

	require.NoError(t, (&Service{}).process(context.Background(), run, h, src))
	assert.Equal(t, []string{"Ana"}, h.seen)
}
