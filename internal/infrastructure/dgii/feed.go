package dgii

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/infrastructure/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrNoTextEntry is returned when a registry ZIP holds no .txt file
	ErrNoTextEntry = errors.New("registry archive contains no .txt file")
	// ErrDownload is returned for a non-2xx registry response
	ErrDownload = errors.New("registry download failed")
)

// Ensure Feed implements importapp.RegistryFeed
var _ importapp.RegistryFeed = (*Feed)(nil)

// Feed opens the registry from the published URL or a local file
type Feed struct {
	client *resty.Client
	url    string
	logger *zap.Logger
	now    func() time.Time
}

// FeedOption is a functional option for Feed
type FeedOption func(*Feed)

// WithLogger sets the feed logger
func WithLogger(logger *zap.Logger) FeedOption {
	return func(f *Feed) { f.logger = logger }
}

// WithClock sets the clock stamped on entries as UpdatedAt
func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) { f.now = now }
}

// NewFeed creates a feed for the configured registry URL. The download is
// a single request without retries.
func NewFeed(cfg config.DGIIConfig, opts ...FeedOption) *Feed {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/zip, application/octet-stream").
		SetHeader("User-Agent", "erp-importer")

	f := &Feed{
		client: client,
		url:    cfg.RegistryURL,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open implements importapp.RegistryFeed. An empty source downloads the
// configured URL; a .zip path is extracted; any other path is read as text.
func (f *Feed) Open(ctx context.Context, source string) (importapp.RegistryReader, error) {
	if source != "" {
		var r *Reader
		var err error
		if strings.EqualFold(filepath.Ext(source), ".zip") {
			r, err = f.openZip(source, nil)
		} else {
			r, err = openText(source, f.now(), nil)
		}
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	dir, err := os.MkdirTemp("", "dgii-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	removeDir := func() error { return os.RemoveAll(dir) }

	archive := filepath.Join(dir, "DGII_RNC.zip")
	if err := f.download(ctx, archive); err != nil {
		_ = removeDir()
		return nil, err
	}

	r, err := f.openZip(archive, removeDir)
	if err != nil {
		_ = removeDir()
		return nil, err
	}
	return r, nil
}

func (f *Feed) download(ctx context.Context, dest string) error {
	f.logger.Info("Downloading taxpayer registry", zap.String("url", f.url))
	started := f.now()

	resp, err := f.client.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(f.url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %s returned HTTP %d", ErrDownload, f.url, resp.StatusCode())
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("failed to stat downloaded registry: %w", err)
	}
	f.logger.Info("Taxpayer registry downloaded",
		zap.Int64("bytes", info.Size()),
		zap.Duration("elapsed", f.now().Sub(started)))
	return nil
}

// openZip extracts the first .txt entry next to the archive and opens it.
// Other entries are ignored.
func (f *Feed) openZip(path string, cleanup func() error) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry archive: %w", err)
	}
	defer zr.Close()

	var entry *zip.File
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(zf.Name), ".txt") {
			continue
		}
		if entry != nil {
			f.logger.Warn("Registry archive has more than one text file, using the first",
				zap.String("used", entry.Name),
				zap.String("ignored", zf.Name))
			break
		}
		entry = zf
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTextEntry, path)
	}

	dir, err := os.MkdirTemp(filepath.Dir(path), "extract-*")
	if err != nil {
		// The archive may sit in a read-only folder
		dir, err = os.MkdirTemp("", "dgii-extract-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create extract dir: %w", err)
		}
	}
	removeExtract := func() error {
		err := os.RemoveAll(dir)
		if cleanup != nil {
			if cerr := cleanup(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}

	dest := filepath.Join(dir, filepath.Base(entry.Name))
	if err := extract(entry, dest); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	f.logger.Debug("Extracted registry text",
		zap.String("entry", entry.Name),
		zap.Uint64("bytes", entry.UncompressedSize64))
	r, err := openText(dest, f.now(), removeExtract)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return r, nil
}

func extract(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s in registry archive: %w", entry.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return out.Close()
}
