package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/nixground/nixground-server/internal/blob"
	"github.com/nixground/nixground-server/internal/config"
	"github.com/nixground/nixground-server/internal/fetch"
	"github.com/nixground/nixground-server/internal/logger"
)

// BlobStoreHandle wraps the configured blob backend.
type BlobStoreHandle struct {
	blob.Store
}

// ProvideBlobStore provides the object store for image bytes, backed by the
// filesystem or an S3-compatible bucket depending on configuration.
func ProvideBlobStore(i do.Injector) (*BlobStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Blob.Backend {
	case "fs":
		store, err := blob.NewFSStore(cfg.Blob.FSRoot, cfg.Blob.PublicBaseURL, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Blob store ready", "backend", "fs", "root", cfg.Blob.FSRoot)
		return &BlobStoreHandle{Store: store}, nil

	case "s3":
		store, err := blob.NewS3Store(context.Background(), blob.S3Config{
			AccountID:       cfg.Blob.S3AccountID,
			Endpoint:        cfg.Blob.S3Endpoint,
			AccessKeyID:     cfg.Blob.S3AccessKeyID,
			SecretAccessKey: cfg.Blob.S3SecretAccessKey,
			Bucket:          cfg.Blob.S3Bucket,
			PublicBaseURL:   cfg.Blob.PublicBaseURL,
		}, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Blob store ready", "backend", "s3", "bucket", cfg.Blob.S3Bucket)
		return &BlobStoreHandle{Store: store}, nil

	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.Blob.Backend)
	}
}

// ProvideFetcher provides the remote source fetcher for URL uploads.
func ProvideFetcher(i do.Injector) (*fetch.Fetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return fetch.New(log.Logger,
		fetch.WithMaxBytes(cfg.Upload.MaxSourceBytes),
		fetch.WithTimeout(cfg.Upload.SourceTimeout),
	), nil
}
