package importapp

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/workspace"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMissingColumns is returned when a header row lacks a required column
var ErrMissingColumns = errors.New("input file is missing required columns")

// errRowRejected rolls back the savepoint of a row that was not imported
var errRowRejected = errors.New("row rejected")

// Handler describes how one entity type is imported
type Handler interface {
	Entity() bulk.ImportEntityType
	Layout() csvimport.Layout
	// Required lists the fields a header row must provide
	Required() []string
}

// RowHandler imports each row on its own
type RowHandler interface {
	Handler
	Handle(ctx context.Context, run *Run, repos Repositories, rec Record) RowResult
}

// GroupHandler buffers rows and imports them in units once the whole
// source has been read.
type GroupHandler interface {
	Handler
	// Collect buffers a row. It returns Deferred, or Skip when the row
	// cannot belong to any unit.
	Collect(run *Run, rec Record) RowResult
	// Units returns the buffered units in first-seen order
	Units(run *Run) []Unit
}

// Unit is a piece of work imported inside its own savepoint
type Unit struct {
	Line  int
	Apply func(ctx context.Context, repos Repositories) RowResult
}

// Run carries the state shared by every row of one import run
type Run struct {
	TenantID  uuid.UUID
	Workspace *workspace.Workspace
	Creator   *workspace.User
	Repos     Repositories
	Resolver  *Resolver
	Summary   *Summary
	Dates     *csvimport.DateParser

	progressEvery int
	processed     int
}

// process reads every row of src and feeds it to the handler
func (s *Service) process(ctx context.Context, run *Run, handler Handler, src csvimport.RowSource) error {
	mapper := csvimport.NewRowMapper(handler.Layout(), src.Headers())
	if missing := mapper.Missing(handler.Required()...); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				run.Summary.Record(parseErr.StartLine, Skip(ReasonMalformedLine, err.Error()))
				continue
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if row.IsEmpty() {
			continue
		}

		rec := NewRecord(row, mapper)
		var res RowResult
		switch h := handler.(type) {
		case GroupHandler:
			res = h.Collect(run, rec)
			if res.Kind != KindDeferred {
				run.Summary.Record(rec.Line, res)
			}
		case RowHandler:
			res = s.apply(ctx, run, rec.Line, func(ctx context.Context, repos Repositories) RowResult {
				return h.Handle(ctx, run, repos, rec)
			})
		default:
			return fmt.Errorf("handler for %s cannot import rows", handler.Entity())
		}
		if res.Kind == KindFatal {
			return res.Err
		}
		run.progress(ctx)
	}

	if h, ok := handler.(GroupHandler); ok {
		for _, unit := range h.Units(run) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if res := s.apply(ctx, run, unit.Line, unit.Apply); res.Kind == KindFatal {
				return res.Err
			}
		}
	}

	if created := run.Resolver.Created(); len(created) > 0 {
		fields := make([]zap.Field, 0, len(created))
		for _, kind := range sortedKinds(created) {
			fields = append(fields, zap.Int(kind, created[kind]))
		}
		logger.L(ctx).Info("Created referenced entities", fields...)
	}
	return nil
}

// apply runs fn inside a savepoint. Anything but Ok rolls the savepoint
// back together with the resolver cache entries the row added. A panic
// is reported as a database error and the run goes on.
func (s *Service) apply(ctx context.Context, run *Run, line int, fn func(ctx context.Context, repos Repositories) RowResult) (res RowResult) {
	run.Resolver.Checkpoint()

	err := run.Repos.Isolate(ctx, func(repos Repositories) (err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.L(ctx).Error("Row handler panicked", zap.Int("line", line), zap.Any("panic", p))
				res = Skip(ReasonDatabaseError, fmt.Sprintf("unexpected error: %v", p))
				err = errRowRejected
			}
		}()

		res = fn(ctx, repos)
		if res.Kind != KindOK {
			return errRowRejected
		}
		return nil
	})
	if err != nil && !errors.Is(err, errRowRejected) {
		res = persistFailure("save row", err)
	}

	if res.Kind == KindOK {
		run.Resolver.Commit()
	} else {
		run.Resolver.Rollback()
	}

	if res.Kind == KindSkip {
		logger.L(ctx).Debug("Row skipped",
			zap.Int("line", line),
			zap.String("reason", res.Reason),
			zap.String("message", res.Message))
	}
	run.Summary.Record(line, res)
	return res
}

func (r *Run) progress(ctx context.Context) {
	r.processed++
	if r.progressEvery > 0 && r.processed%r.progressEvery == 0 {
		logger.L(ctx).Info("Import progress",
			zap.Int("rows", r.processed),
			zap.Int("imported", r.Summary.Imported),
			zap.Int("skipped", r.Summary.Skipped))
	}
}
