package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the connection settings for an S3-compatible backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Minio is a Store backed by any S3-compatible object store. Cache entries
// are stored as cache/<scope>/<key> objects, artifacts as artifacts/<name>.
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio connects to the object store and verifies the bucket exists.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

func cacheObjectName(scope, key string) string {
	return "cache/" + url.PathEscape(scope) + "/" + key
}

// SaveCache implements Store.
func (m *Minio) SaveCache(ctx context.Context, scope, key string, src io.Reader) error {
	_, err := m.client.PutObject(ctx, m.bucket, cacheObjectName(scope, key), src, -1,
		minio.PutObjectOptions{ContentType: "application/gzip"})
	if err != nil {
		return fmt.Errorf("failed to save cache entry %q: %w", key, err)
	}
	return nil
}

// RestoreCache implements Store.
func (m *Minio) RestoreCache(ctx context.Context, scope, key, restorePrefix string) (io.ReadCloser, string, error) {
	if rc, err := m.open(ctx, cacheObjectName(scope, key)); err == nil {
		return rc, key, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, "", err
	}

	if restorePrefix == "" {
		return nil, "", ErrNotFound
	}

	prefix := cacheObjectName(scope, restorePrefix)
	var bestName string
	var bestTime time.Time
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, "", fmt.Errorf("failed to list cache entries: %w", obj.Err)
		}
		if bestName == "" || obj.LastModified.After(bestTime) {
			bestName = obj.Key
			bestTime = obj.LastModified
		}
	}
	if bestName == "" {
		return nil, "", ErrNotFound
	}

	rc, err := m.open(ctx, bestName)
	if err != nil {
		return nil, "", err
	}
	matched := bestName[len(cacheObjectName(scope, "")):]
	return rc, matched, nil
}

// PutArtifact implements Store.
func (m *Minio) PutArtifact(ctx context.Context, name string, src io.Reader) error {
	_, err := m.client.PutObject(ctx, m.bucket, "artifacts/"+url.PathEscape(name), src, -1,
		minio.PutObjectOptions{ContentType: "application/gzip"})
	if err != nil {
		return fmt.Errorf("failed to put artifact %q: %w", name, err)
	}
	return nil
}

// GetArtifact implements Store.
func (m *Minio) GetArtifact(ctx context.Context, name string) (io.ReadCloser, error) {
	return m.open(ctx, "artifacts/"+url.PathEscape(name))
}

// open fetches an object and eagerly checks its existence, mapping the
// backend's missing-key error onto ErrNotFound.
func (m *Minio) open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", name, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat object %q: %w", name, err)
	}
	return obj, nil
}
