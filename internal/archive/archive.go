// Package archive keeps a copy of each generated payload in an object
// store, so the exported artifact survives independently of the
// recipient's mailbox. Archival is a convenience copy: failures are
// warnings, never run failures.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
)

// Store writes payloads to the configured backend.
type Store interface {
	// Put writes the payload under key.
	Put(ctx context.Context, key string, payload []byte) error

	// Close releases backend resources.
	Close() error
}

// Config selects and configures the backend.
type Config struct {
	Backend string // "local" | "gcs" | "s3"
	Bucket  string
	Dir     string // local backend
	Prefix  string
	Region  string // s3 backend
}

// New opens a store for the configured backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	var (
		bucket *blob.Bucket
		err    error
	)

	switch cfg.Backend {
	case "local":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("Dir required for local backend")
		}
		bucket, err = fileblob.OpenBucket(cfg.Dir, &fileblob.Options{CreateDir: true})
		if err != nil {
			return nil, fmt.Errorf("open local archive %s: %w", cfg.Dir, err)
		}
	case "gcs":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("Bucket required for gcs backend")
		}
		bucket, err = blob.OpenBucket(ctx, fmt.Sprintf("gs://%s", cfg.Bucket))
		if err != nil {
			return nil, fmt.Errorf("open GCS bucket %s: %w", cfg.Bucket, err)
		}
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("Bucket required for s3 backend")
		}
		u := fmt.Sprintf("s3://%s?region=%s", cfg.Bucket, url.QueryEscape(cfg.Region))
		bucket, err = blob.OpenBucket(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("open S3 bucket %s: %w", cfg.Bucket, err)
		}
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Backend)
	}

	return &bucketStore{
		bucket: bucket,
		prefix: cfg.Prefix,
		log:    slog.With("component", "archive"),
	}, nil
}

type bucketStore struct {
	bucket *blob.Bucket
	prefix string
	log    *slog.Logger
}

// Put writes the payload under prefix+key.
func (s *bucketStore) Put(ctx context.Context, key string, payload []byte) error {
	full := s.prefix + key
	if err := s.bucket.WriteAll(ctx, full, payload, nil); err != nil {
		return fmt.Errorf("write archive object %s: %w", full, err)
	}

	s.log.Debug("archived payload", "key", full, "bytes", len(payload))
	return nil
}

// Close releases the bucket.
func (s *bucketStore) Close() error {
	return s.bucket.Close()
}
