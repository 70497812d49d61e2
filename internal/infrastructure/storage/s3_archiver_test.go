package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/importer/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeS3 struct {
	puts      []*s3.PutObjectInput
	bodies    []string
	putErr    error
	headErr   error
	createErr error
	created   int
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func (f *fakeS3) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created++
	return &s3.CreateBucketOutput{}, f.createErr
}

var (
	testTenant = uuid.MustParse("5b0c4a52-3f7e-4e2b-9a57-1d2f0c9e8a11")
	testNow    = time.Date(2025, 3, 1, 14, 30, 5, 0, time.UTC)
)

func newTestArchiver(t *testing.T, client *fakeS3) *S3Archiver {
	t.Helper()
	a, err := NewS3Archiver(&config.StorageConfig{Bucket: "erp-imports"},
		WithClient(client),
		WithClock(func() time.Time { return testNow }),
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return a
}

func TestNewS3Archiver_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Archiver(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3Archiver(&config.StorageConfig{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("valid config creates archiver", func(t *testing.T) {
		a, err := NewS3Archiver(&config.StorageConfig{
			Bucket:          "test-bucket",
			Region:          "us-east-1",
			Endpoint:        "localhost:9000",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			UsePathStyle:    true,
			Prefix:          "/archive/",
		})
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", a.Bucket())
		assert.Equal(t, "archive", a.prefix)
	})
}

func TestS3Archiver_Key(t *testing.T) {
	a := newTestArchiver(t, &fakeS3{})

	tests := []struct {
		file string
		want string
	}{
		{"/data/Clientes Marzo.CSV", "clientes-marzo.csv"},
		{"facturas 2024.txt", "facturas-2024.txt"},
		{"/tmp/ÓPTICA.xlsx", "optica.xlsx"},
		{"/tmp/.csv", "source.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t,
				"imports/5b0c4a52-3f7e-4e2b-9a57-1d2f0c9e8a11/contacts/20250301T143005Z-"+tt.want,
				a.Key(testTenant, "contacts", tt.file))
		})
	}
}

func TestS3Archiver_Archive(t *testing.T) {
	client := &fakeS3{}
	a := newTestArchiver(t, client)

	file := filepath.Join(t.TempDir(), "clientes.csv")
	require.NoError(t, os.WriteFile(file, []byte("nombre\nJuan\n"), 0o600))

	key, err := a.Archive(context.Background(), testTenant, "contacts", file)
	require.NoError(t, err)
	assert.Equal(t, "imports/5b0c4a52-3f7e-4e2b-9a57-1d2f0c9e8a11/contacts/20250301T143005Z-clientes.csv", key)

	require.Len(t, client.puts, 1)
	put := client.puts[0]
	assert.Equal(t, "erp-imports", aws.ToString(put.Bucket))
	assert.Equal(t, key, aws.ToString(put.Key))
	assert.Equal(t, "text/csv", aws.ToString(put.ContentType))
	assert.Equal(t, int64(12), aws.ToInt64(put.ContentLength))
	assert.Equal(t, "contacts", put.Metadata["import-kind"])
	assert.Equal(t, "nombre\nJuan\n", client.bodies[0])
}

func TestS3Archiver_ArchiveErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		a := newTestArchiver(t, &fakeS3{})
		_, err := a.Archive(context.Background(), testTenant, "contacts", filepath.Join(t.TempDir(), "none.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("upload failure", func(t *testing.T) {
		boom := errors.New("connection reset")
		a := newTestArchiver(t, &fakeS3{putErr: boom})
		file := filepath.Join(t.TempDir(), "a.zip")
		require.NoError(t, os.WriteFile(file, []byte("PK"), 0o600))

		_, err := a.Archive(context.Background(), testTenant, "rnc_registry", file)
		assert.ErrorIs(t, err, boom)
	})
}

func TestS3Archiver_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		client := &fakeS3{}
		require.NoError(t, newTestArchiver(t, client).EnsureBucket(ctx))
		assert.Zero(t, client.created)
	})

	t.Run("created when missing", func(t *testing.T) {
		client := &fakeS3{headErr: &types.NotFound{}}
		require.NoError(t, newTestArchiver(t, client).EnsureBucket(ctx))
		assert.Equal(t, 1, client.created)
	})

	t.Run("created concurrently", func(t *testing.T) {
		client := &fakeS3{headErr: &types.NoSuchBucket{}, createErr: &types.BucketAlreadyOwnedByYou{}}
		assert.NoError(t, newTestArchiver(t, client).EnsureBucket(ctx))
	})

	t.Run("other head error", func(t *testing.T) {
		client := &fakeS3{headErr: errors.New("forbidden")}
		assert.Error(t, newTestArchiver(t, client).EnsureBucket(ctx))
		assert.Zero(t, client.created)
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain", contentType("a.TXT"))
	assert.Equal(t, "application/zip", contentType("a.zip"))
	assert.Equal(t, "application/octet-stream", contentType("a"))
}
