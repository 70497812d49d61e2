package importapp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/registry"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRegistryBatchSize is the number of registry lines upserted at once
const DefaultRegistryBatchSize = 1000

// ErrNoRegistryFeed is returned when the service has no registry source
var ErrNoRegistryFeed = errors.New("taxpayer registry feed is not configured")

// RegistryReader yields the entries of one registry file
type RegistryReader interface {
	// Next returns the next entry, a *registry.MalformedLineError for a
	// line that cannot be parsed, or io.EOF
	Next() (*registry.Entry, error)
	// Line is the line number of the last entry returned by Next
	Line() int
	// Path is the local file the entries are read from
	Path() string
	// Size is the size of that file in bytes
	Size() int64
	Close() error
}

// RegistryFeed opens the published taxpayer registry. An empty source
// means the configured download URL; otherwise it is a local ZIP or TXT.
type RegistryFeed interface {
	Open(ctx context.Context, source string) (RegistryReader, error)
}

// SyncRegistry replaces the registry mirror with the published file. The
// table is truncated and refilled in one transaction, so a failed sync
// leaves the previous mirror in place.
func (s *Service) SyncRegistry(ctx context.Context, tenantID uuid.UUID, source string) (*Summary, error) {
	if s.feed == nil {
		return nil, ErrNoRegistryFeed
	}

	reader, err := s.feed.Open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return s.track(ctx, tenantID, bulk.ImportEntityRNCRegistry, reader.Path(), reader.Size(),
		func(ctx context.Context, _ *bulk.ImportHistory, summary *Summary) error {
			return s.scope.Execute(ctx, func(repos Repositories) error {
				return s.syncEntries(ctx, repos, reader, summary)
			})
		})
}

func (s *Service) syncEntries(ctx context.Context, repos Repositories, reader RegistryReader, summary *Summary) error {
	if err := repos.Registry().Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate registry: %w", err)
	}

	size := s.opts.RegistryBatchSize
	if size <= 0 {
		size = DefaultRegistryBatchSize
	}
	batch := newRegistryBatch(size)
	log := logger.L(ctx)

	flush := func() error {
		if batch.len() == 0 {
			return nil
		}
		entries := batch.dedupe(summary)
		if err := repos.Registry().UpsertBatch(ctx, entries); err != nil {
			return fmt.Errorf("failed to upsert registry batch: %w", err)
		}
		for _, line := range batch.kept {
			summary.Record(line, Ok())
		}
		log.Debug("Registry batch stored", zap.Int("entries", len(entries)), zap.Int("total", summary.Imported))
		batch.reset()
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var malformed *registry.MalformedLineError
			if errors.As(err, &malformed) {
				summary.Record(malformed.Line, Skip(ReasonMalformedLine, malformed.Reason))
				continue
			}
			return fmt.Errorf("failed to read registry: %w", err)
		}

		batch.add(entry, reader.Line())
		if batch.len() >= size {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	count, err := repos.Registry().Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count registry: %w", err)
	}
	log.Info("Registry mirror replaced", zap.Int64("entries", count))
	return nil
}

// registryBatch buffers entries with the line they came from
type registryBatch struct {
	entries []*registry.Entry
	lines   []int
	kept    []int
}

func newRegistryBatch(size int) *registryBatch {
	return &registryBatch{
		entries: make([]*registry.Entry, 0, size),
		lines:   make([]int, 0, size),
	}
}

func (b *registryBatch) add(e *registry.Entry, line int) {
	b.entries = append(b.entries, e)
	b.lines = append(b.lines, line)
}

func (b *registryBatch) len() int { return len(b.entries) }

// dedupe keeps the last occurrence of every RNC, counting the earlier
// ones as duplicates.
func (b *registryBatch) dedupe(summary *Summary) []*registry.Entry {
	last := make(map[string]int, len(b.entries))
	for i, e := range b.entries {
		last[e.RNC] = i
	}
	b.kept = b.kept[:0]
	for i, e := range b.entries {
		if last[e.RNC] != i {
			summary.Record(b.lines[i], SkipValue(ReasonDuplicateRNC, "rnc", e.RNC, "superseded by a later line"))
			continue
		}
		b.kept = append(b.kept, b.lines[i])
	}
	return registry.DedupeLastWins(b.entries)
}

func (b *registryBatch) reset() {
	b.entries = b.entries[:0]
	b.lines = b.lines[:0]
}
