package importapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/invoice"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultWorkspace is used when a run does not name a workspace
const DefaultWorkspace = "Principal"

// Options tunes the import service
type Options struct {
	// MaxErrors caps the error messages kept per run
	MaxErrors int
	// ProgressInterval logs a progress line every N rows; zero disables it
	ProgressInterval int
	// DefaultTaxRate is the rate of taxes created without one
	DefaultTaxRate decimal.Decimal
	// Subtypes maps document number prefixes to subtype IDs
	Subtypes invoice.SubtypeMap
	// RegistryBatchSize is the registry upsert batch size
	RegistryBatchSize int
}

// Archiver keeps a copy of a source file and returns its key
type Archiver interface {
	Archive(ctx context.Context, tenantID uuid.UUID, kind, path string) (string, error)
}

// Metrics receives run outcomes
type Metrics interface {
	RecordRows(ctx context.Context, entity bulk.ImportEntityType, outcome string, n int)
	RecordRun(ctx context.Context, entity bulk.ImportEntityType, status bulk.ImportStatus, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordRows(context.Context, bulk.ImportEntityType, string, int) {}

func (nopMetrics) RecordRun(context.Context, bulk.ImportEntityType, bulk.ImportStatus, time.Duration) {
}

// Service runs file imports
type Service struct {
	scope    TransactionScope
	history  *HistoryService
	archiver Archiver
	metrics  Metrics
	feed     RegistryFeed
	opts     Options
	now      func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithArchiver uploads every source file before it is processed
func WithArchiver(a Archiver) ServiceOption {
	return func(s *Service) { s.archiver = a }
}

// WithMetrics reports run outcomes to m
func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithRegistryFeed sets the source of the taxpayer registry file
func WithRegistryFeed(f RegistryFeed) ServiceOption {
	return func(s *Service) { s.feed = f }
}

// WithClock overrides the clock used for dates and durations
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a new import Service
func NewService(scope TransactionScope, history *HistoryService, opts Options, options ...ServiceOption) *Service {
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = csvimport.DefaultMaxErrors
	}
	s := &Service{
		scope:   scope,
		history: history,
		metrics: nopMetrics{},
		opts:    opts,
		now:     time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Request describes one file import
type Request struct {
	Entity    bulk.ImportEntityType
	Path      string
	TenantID  uuid.UUID
	Workspace string
	// UserEmail selects the creator; empty means the tenant's first user
	UserEmail string
	Source    csvimport.SourceOptions
}

// NewHandler returns a fresh handler for the entity type
func (s *Service) NewHandler(entity bulk.ImportEntityType) (Handler, error) {
	switch entity {
	case bulk.ImportEntityContacts:
		return NewContactHandler(), nil
	case bulk.ImportEntityInvoices:
		return NewInvoiceHandler(s.opts.Subtypes), nil
	case bulk.ImportEntityPrescriptions:
		return NewPrescriptionHandler(), nil
	case bulk.ImportEntityProducts:
		return NewProductHandler(), nil
	}
	return nil, fmt.Errorf("no file importer for %q", entity)
}

// ImportFile imports one file in a single transaction. Row problems are
// counted in the summary; the returned error is always fatal.
func (s *Service) ImportFile(ctx context.Context, req Request) (*Summary, error) {
	handler, err := s.NewHandler(req.Entity)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("input file %s: %w", req.Path, err)
	}
	src, err := csvimport.OpenSource(req.Path, req.Source)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return s.track(ctx, req.TenantID, req.Entity, req.Path, info.Size(),
		func(ctx context.Context, history *bulk.ImportHistory, summary *Summary) error {
			return s.scope.Execute(ctx, func(repos Repositories) error {
				run, err := s.newRun(ctx, repos, req, summary)
				if err != nil {
					return err
				}
				history.SetImportedBy(run.Creator.ID)
				return s.process(ctx, run, handler, src)
			})
		})
}

// ImportFolder imports every supported file of dir in lexical order, each
// in its own transaction. It stops at the first fatal error.
func (s *Service) ImportFolder(ctx context.Context, dir string, req Request) (*Summary, []*Summary, error) {
	files, err := csvimport.ListFolder(dir)
	if err != nil {
		return nil, nil, err
	}

	total := NewSummary(req.Entity, dir, s.opts.MaxErrors)
	perFile := make([]*Summary, 0, len(files))
	for _, path := range files {
		fileReq := req
		fileReq.Path = path
		summary, err := s.ImportFile(ctx, fileReq)
		if err != nil {
			return total, perFile, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		perFile = append(perFile, summary)
		total.Merge(summary)
	}
	return total, perFile, nil
}

func (s *Service) newRun(ctx context.Context, repos Repositories, req Request, summary *Summary) (*Run, error) {
	resolver := NewResolver(req.TenantID, s.opts.DefaultTaxRate)

	creator, err := resolver.ResolveCreator(ctx, repos, req.UserEmail)
	if err != nil {
		return nil, err
	}

	name := req.Workspace
	if name == "" {
		name = DefaultWorkspace
	}
	ws, _, err := resolver.ResolveWorkspace(ctx, repos, name)
	if err != nil {
		return nil, err
	}

	return &Run{
		TenantID:      req.TenantID,
		Workspace:     ws,
		Creator:       creator,
		Repos:         repos,
		Resolver:      resolver,
		Summary:       summary,
		Dates:         csvimport.NewDateParser(s.now),
		progressEvery: s.opts.ProgressInterval,
	}, nil
}

// track records the history of one run around body and reports metrics
func (s *Service) track(
	ctx context.Context,
	tenantID uuid.UUID,
	entity bulk.ImportEntityType,
	path string,
	size int64,
	body func(ctx context.Context, history *bulk.ImportHistory, summary *Summary) error,
) (*Summary, error) {
	history, err := s.history.Begin(ctx, tenantID, entity, filepath.Base(path), size)
	if err != nil {
		return nil, err
	}

	summary := NewSummary(entity, history.FileName, s.opts.MaxErrors)
	summary.RunID = history.RunID
	ctx = logger.WithRun(ctx, logger.RunFields{
		RunID:    history.RunID.String(),
		TenantID: tenantID.String(),
		Entity:   string(entity),
		File:     history.FileName,
	})
	log := logger.L(ctx)

	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, tenantID, string(entity), path)
		if err != nil {
			log.Warn("Failed to archive source file", zap.Error(err))
		} else {
			history.ArchiveKey = key
		}
	}

	if err := s.history.Start(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to start import history: %w", err)
	}
	log.Info("Import started", zap.Int64("file_size", size))

	started := s.now()
	err = body(ctx, history, summary)
	summary.Duration = s.now().Sub(started)

	if err != nil {
		log.Error("Import failed, transaction rolled back", zap.Error(err))
		if herr := s.history.Fail(ctx, history, err); herr != nil {
			log.Warn("Failed to record failed import", zap.Error(herr))
		}
		s.metrics.RecordRun(ctx, entity, bulk.ImportStatusFailed, summary.Duration)
		return summary, err
	}

	if err := s.history.Complete(ctx, history, summary); err != nil {
		return summary, fmt.Errorf("failed to record import history: %w", err)
	}
	s.metrics.RecordRows(ctx, entity, "imported", summary.Imported)
	s.metrics.RecordRows(ctx, entity, "skipped", summary.Skipped)
	s.metrics.RecordRun(ctx, entity, bulk.ImportStatusCompleted, summary.Duration)

	log.Info("Import finished",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}
