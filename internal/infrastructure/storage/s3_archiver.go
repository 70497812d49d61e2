// Package storage archives import source files in S3-compatible storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	importapp "github.com/erp/importer/internal/application/import"
	infraconfig "github.com/erp/importer/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Ensure S3Archiver implements importapp.Archiver
var _ importapp.Archiver = (*S3Archiver)(nil)

// S3API is the subset of the S3 client the archiver uses
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Archiver uploads source files before they are imported.
// It works with any S3-compatible storage (AWS S3, MinIO, RustFS).
type S3Archiver struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
	now    func() time.Time
}

// S3ArchiverOption is a functional option for configuring S3Archiver
type S3ArchiverOption func(*S3Archiver)

// WithLogger sets a custom logger for S3Archiver
func WithLogger(logger *zap.Logger) S3ArchiverOption {
	return func(a *S3Archiver) {
		a.logger = logger
	}
}

// WithClient replaces the S3 client
func WithClient(client S3API) S3ArchiverOption {
	return func(a *S3Archiver) {
		a.client = client
	}
}

// WithClock overrides the clock used for object key timestamps
func WithClock(now func() time.Time) S3ArchiverOption {
	return func(a *S3Archiver) {
		a.now = now
	}
}

// NewS3Archiver creates an S3Archiver from configuration
func NewS3Archiver(cfg *infraconfig.StorageConfig, opts ...S3ArchiverOption) (*S3Archiver, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	a := &S3Archiver{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	if a.prefix == "" {
		a.prefix = "imports"
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.client != nil {
		return a, nil
	}

	client, err := newS3Client(cfg)
	if err != nil {
		return nil, err
	}
	a.client = client
	return a, nil
}

func newS3Client(cfg *infraconfig.StorageConfig) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	// Static keys when given, otherwise the default AWS credential chain
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3Archiver) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		// Lost a race with another importer
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Key returns the object key of a source file:
// <prefix>/<tenant>/<kind>/<timestamp>-<file>
func (a *S3Archiver) Key(tenantID uuid.UUID, kind, filePath string) string {
	return path.Join(a.prefix, tenantID.String(), kind,
		a.now().UTC().Format("20060102T150405Z")+"-"+objectName(filePath))
}

// objectName makes a file name safe for an object key, keeping the extension
func objectName(filePath string) string {
	base := filepath.Base(filePath)
	ext := strings.ToLower(filepath.Ext(base))
	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "source"
	}
	return name + ext
}

// Archive implements importapp.Archiver
func (a *S3Archiver) Archive(ctx context.Context, tenantID uuid.UUID, kind, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat source file: %w", err)
	}

	key := a.Key(tenantID, kind, filePath)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(filePath)),
		Metadata: map[string]string{
			"tenant-id":   tenantID.String(),
			"import-kind": kind,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.logger.Debug("Archived source file",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size()))
	return key, nil
}

// Bucket returns the bucket name
func (a *S3Archiver) Bucket() string {
	return a.bucket
}

func contentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".zip":
		return "application/zip"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
