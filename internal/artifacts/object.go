package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/shanidan92/muza-metadata-server/internal/config"
)

// ObjectStore wraps the S3-compatible client for the raw-audio and cover-art
// buckets.
type ObjectStore struct {
	client      *minio.Client
	audioBucket string
	coverBucket string
}

// NewObjectStore connects to the configured S3-compatible endpoint.
func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return &ObjectStore{
		client:      client,
		audioBucket: cfg.AudioBucket,
		coverBucket: cfg.CoverBucket,
	}, nil
}

// PutAudio uploads an audio object to the raw-audio bucket.
func (o *ObjectStore) PutAudio(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := o.client.PutObject(ctx, o.audioBucket, key, r, size, minio.PutObjectOptions{
		ContentType: "audio/flac",
	})
	return err
}

// PutCover uploads a cover art object to the cover-art bucket.
func (o *ObjectStore) PutCover(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	_, err := o.client.PutObject(ctx, o.coverBucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// RemoveCover deletes a cover art object. Used only to discard rejected
// downloads before a reference escapes; published references are never
// deleted.
func (o *ObjectStore) RemoveCover(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, coverObjectPrefix) {
		return fmt.Errorf("refusing to remove non-cover key %q", key)
	}
	return o.client.RemoveObject(ctx, o.coverBucket, key, minio.RemoveObjectOptions{})
}
