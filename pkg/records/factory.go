package records

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backend names an Archive implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendS3       Backend = "s3"
	BackendGCS      Backend = "gcs"
)

// Options configures Open. Zero values fall back to an embedded
// SQLite database under DataDir.
type Options struct {
	Backend     Backend
	DataDir     string // file and sqlite backends
	DatabaseURL string // postgres backend
	Bucket      string // s3 and gcs backends
	Region      string // s3 backend
	Endpoint    string // s3 backend, optional (MinIO/LocalStack)
}

// Open builds the Archive named by opts.Backend.
func Open(ctx context.Context, opts Options) (Archive, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendSQLite
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	switch backend {
	case BackendMemory:
		return NewMemoryArchive(), nil
	case BackendFile:
		return NewFileArchive(filepath.Join(dataDir, "archive"))
	case BackendSQLite:
		//nolint:gosec // G301: 0755 is intentional for a shared data directory
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
		return OpenSQLiteArchive(filepath.Join(dataDir, "archive.db"))
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres archive requires DATABASE_URL")
		}
		return OpenPostgresArchive(opts.DatabaseURL)
	case BackendS3:
		region := opts.Region
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Archive(ctx, S3Config{Bucket: opts.Bucket, Region: region, Endpoint: opts.Endpoint})
	case BackendGCS:
		return newGCSArchive(ctx, opts.Bucket)
	default:
		return nil, fmt.Errorf("unsupported archive backend: %s", backend)
	}
}
