package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageStore issues presigned URLs for supporter listing images. Upload
// plumbing stays client-side; the service only hands out narrow, short-lived
// URLs after the ownership check.
type ImageStore struct {
	client *minio.Client
	bucket string
}

// NewImageStore creates the MinIO-backed image store and ensures the bucket
// exists.
func NewImageStore(cfg *config.MinIOConfig) (*ImageStore, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &ImageStore{client: mc, bucket: cfg.Bucket}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// tolerate pre-existing bucket
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// ImageKey is the canonical object key for a supporter's listing image.
func ImageKey(slug string) string {
	return "supporters/" + slug + "/image"
}

// PresignedUploadURL returns a presigned PUT URL the owner's browser can
// upload the listing image to.
func (s *ImageStore) PresignedUploadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expires)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PresignedDownloadURL returns a presigned GET URL for the stored image.
func (s *ImageStore) PresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
