// Package storage provides object storage implementations for archived
// statement PDFs.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khata/backend/internal/infrastructure/config"
)

// ObjectStorage is the port the statement archive writes through. A
// rendered statement is uploaded once and later fetched via a
// time-limited download URL.
type ObjectStorage interface {
	// Upload stores data under the given key
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// GenerateDownloadURL returns a presigned URL for fetching an object
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error
}

// NewObjectStorage builds the storage backend named by the
// configuration. Unknown providers fall back to the stub so a
// misconfigured dev environment still starts.
func NewObjectStorage(cfg *config.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "s3":
		store, err := NewS3ObjectStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 storage: %w", err)
		}
		logger.Info("Using S3 object storage",
			zap.String("bucket", cfg.Bucket),
			zap.String("endpoint", cfg.Endpoint),
		)
		return store, nil
	default:
		logger.Info("Using stub object storage", zap.String("provider", cfg.Provider))
		return NewStubObjectStorage(), nil
	}
}
