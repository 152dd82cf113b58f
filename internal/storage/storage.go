// Package storage abstracts where uploaded media lives: a MinIO bucket in
// production, the local disk as a dev fallback.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for upload validation.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed media MIME types mapped to the extension stored keys get.
// Cine clips upload as short video files.
var allowedMIMETypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// UploadResult describes a stored object.
type UploadResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// Provider stores and deletes media objects.
type Provider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, filename string) error
	URL(filename string) string
}

// Service wraps a Provider with upload validation and key generation.
type Service struct {
	provider   Provider
	maxBytes   int64
	configured bool
}

// NewService builds a Service around the given provider. configured=false
// marks the local-disk fallback so callers can warn that uploads are not
// going to object storage.
func NewService(provider Provider, maxBytes int64, configured bool) *Service {
	return &Service{provider: provider, maxBytes: maxBytes, configured: configured}
}

// IsConfigured reports whether a real object storage backend is in use.
func (s *Service) IsConfigured() bool {
	return s.configured
}

// MaxBytes returns the upload size cap. Zero means uncapped.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload validates MIME type and size, stores the object under a
// UUID-keyed filename and returns its location.
func (s *Service) Upload(ctx context.Context, reader io.Reader, originalName, contentType string, size int64) (*UploadResult, error) {
	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, s.maxBytes)
	}

	filename := uuid.New().String() + ext
	url, err := s.provider.Upload(ctx, filename, reader, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store object %s: %w", filename, err)
	}

	return &UploadResult{Filename: filename, URL: url, Size: size}, nil
}

// Delete removes a stored object. Used both for explicit deletes and to
// roll back an upload whose database insert failed.
func (s *Service) Delete(ctx context.Context, filename string) error {
	return s.provider.Delete(ctx, filename)
}

// URL resolves a stored filename to its public URL.
func (s *Service) URL(filename string) string {
	return s.provider.URL(filename)
}

// IsCineType reports whether the MIME type is a video/cine clip.
func IsCineType(contentType string) bool {
	return strings.HasPrefix(contentType, "video/")
}

// LocalProvider stores objects on the local filesystem. Dev fallback when
// MinIO is not configured.
type LocalProvider struct {
	Dir string
}

// Upload writes the object under Dir.
func (p *LocalProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(p.Dir, filename))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, reader); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return p.URL(filename), nil
}

// Delete removes the local file.
func (p *LocalProvider) Delete(ctx context.Context, filename string) error {
	return os.Remove(filepath.Join(p.Dir, filename))
}

// URL returns the path served by the static /uploads route.
func (p *LocalProvider) URL(filename string) string {
	return "/uploads/" + filename
}
