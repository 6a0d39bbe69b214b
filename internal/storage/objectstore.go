package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jonesrussell/gamesync/internal/config"
	"github.com/jonesrussell/gamesync/internal/logger"
)

// ErrObjectNotFound indicates the requested object does not exist in the
// bucket. Bootstrap callers treat this as a clean cache start.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore uploads and downloads pipeline files against an
// S3-compatible bucket. It is used for two things only: bootstrapping
// caches from a previous host and backing up run output.
type ObjectStore struct {
	client *minio.Client
	cfg    *config.StorageConfig
	log    logger.Interface
}

// NewObjectStore creates a client for the configured endpoint.
func NewObjectStore(cfg *config.StorageConfig, log logger.Interface) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// EnsureBucket creates the configured bucket if it does not exist.
func (o *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := o.client.BucketExists(ctx, o.cfg.Bucket)
	if err != nil {
		return o.maybeSilence(fmt.Errorf("failed to check bucket %s: %w", o.cfg.Bucket, err))
	}
	if exists {
		return nil
	}

	if err := o.client.MakeBucket(ctx, o.cfg.Bucket, minio.MakeBucketOptions{Region: o.cfg.Region}); err != nil {
		return o.maybeSilence(fmt.Errorf("failed to create bucket %s: %w", o.cfg.Bucket, err))
	}

	o.log.Info("Created bucket", "bucket", o.cfg.Bucket)
	return nil
}

// Upload stores a local file under objectName.
func (o *ObjectStore) Upload(ctx context.Context, localPath, objectName string) error {
	if err := o.put(ctx, localPath, objectName); err != nil {
		return o.maybeSilence(fmt.Errorf("failed to upload %s: %w", objectName, err))
	}
	return nil
}

func (o *ObjectStore) put(ctx context.Context, localPath, objectName string) error {
	uctx, cancel := context.WithTimeout(ctx, o.cfg.UploadTimeout)
	defer cancel()

	_, err := o.client.FPutObject(uctx, o.cfg.Bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	})
	if err != nil {
		return err
	}

	o.log.Debug("Uploaded object", "object", objectName)
	return nil
}

// Download fetches objectName into localPath. A missing object returns
// ErrObjectNotFound so callers can degrade to a cold start.
func (o *ObjectStore) Download(ctx context.Context, objectName, localPath string) error {
	err := o.client.FGetObject(ctx, o.cfg.Bucket, objectName, localPath, minio.GetObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to download %s: %w", objectName, err)
	}
	return nil
}

// UploadDir uploads every regular file beneath dir under prefix,
// preserving relative paths. It returns how many objects were actually
// stored; in fail-silent mode a failed file is logged and skipped
// without aborting the walk.
func (o *ObjectStore) UploadDir(ctx context.Context, dir, prefix string) (int, error) {
	uploaded := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}

		objectName := path.Join(prefix, filepath.ToSlash(rel))
		if err := o.put(ctx, p, objectName); err != nil {
			wrapped := fmt.Errorf("failed to upload %s: %w", objectName, err)
			if o.cfg.FailSilently {
				o.log.Warn("Object storage operation failed", "error", wrapped)
				return nil
			}
			return wrapped
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, o.maybeSilence(fmt.Errorf("failed to upload directory %s: %w", dir, err))
	}
	return uploaded, nil
}

// maybeSilence downgrades an error to a warning when the store is
// configured to fail silently, so backup trouble never fails a run.
func (o *ObjectStore) maybeSilence(err error) error {
	if err == nil || !o.cfg.FailSilently {
		return err
	}
	o.log.Warn("Object storage operation failed", "error", err)
	return nil
}

func contentTypeFor(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
