package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/echomed/echobank-backend/internal/config"
)

// MinioProvider stores objects in a MinIO (or S3-compatible) bucket.
type MinioProvider struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioProvider connects to MinIO and ensures the bucket exists.
func NewMinioProvider(ctx context.Context, cfg *config.Config) (*MinioProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
	}

	publicURL := strings.TrimSuffix(cfg.MinioPublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
	}

	return &MinioProvider{client: client, bucket: cfg.MinioBucket, publicURL: publicURL}, nil
}

// Upload stores the object in the bucket.
func (p *MinioProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, p.bucket, filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.URL(filename), nil
}

// Delete removes the object from the bucket.
func (p *MinioProvider) Delete(ctx context.Context, filename string) error {
	return p.client.RemoveObject(ctx, p.bucket, filename, minio.RemoveObjectOptions{})
}

// URL resolves the object's public URL.
func (p *MinioProvider) URL(filename string) string {
	return p.publicURL + "/" + filename
}
