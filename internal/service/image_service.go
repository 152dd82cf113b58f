package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/review"
	"github.com/echomed/echobank-backend/internal/storage"
)

// Image service errors.
var (
	ErrQuotaExceeded  = errors.New("contribution quota exceeded")
	ErrInvalidLicense = errors.New("unknown license")
	ErrRemoteFetch    = errors.New("could not fetch remote image")
)

// ImageStore is the slice of the image repository this service uses.
type ImageStore interface {
	Create(ctx context.Context, img *model.Image) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Image, error)
	List(ctx context.Context, f repository.ImageFilter, limit, offset int) ([]model.Image, int, error)
	UpdateMeta(ctx context.Context, img *model.Image) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ImageStatus, notes *string, reviewedBy *int, reviewedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ObjectStore is the slice of the storage service this service uses.
type ObjectStore interface {
	Upload(ctx context.Context, reader io.Reader, originalName, contentType string, size int64) (*storage.UploadResult, error)
	Delete(ctx context.Context, filename string) error
	IsConfigured() bool
	MaxBytes() int64
}

// ContributionCounter mirrors the contributor quota into the users table.
type ContributionCounter interface {
	IncrementContribution(ctx context.Context, id int, by int) (int, error)
}

// ImageService owns media uploads, their review lifecycle, and the
// upload-rollback contract with object storage.
type ImageService struct {
	store   ImageStore
	objects ObjectStore
	users   ContributionCounter
	rdb     *redis.Client
	quota   int
	log     zerolog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(store ImageStore, objects ObjectStore, users ContributionCounter, rdb *redis.Client, quota int, log zerolog.Logger) *ImageService {
	return &ImageService{store: store, objects: objects, users: users, rdb: rdb, quota: quota, log: log}
}

// quotaKey is the Redis counter for a contributor's combined contributions.
func quotaKey(userID int) string {
	return "quota:user:" + strconv.Itoa(userID)
}

// ChargeQuota reserves n contribution slots for a quota-capped uploader.
// Image uploads and image-description inserts both count against the
// same combined quota. Returns ErrQuotaExceeded (and releases the
// reservation) past the cap.
func (s *ImageService) ChargeQuota(ctx context.Context, uploader *model.User, n int) error {
	if uploader == nil || !uploader.IsContributor || uploader.IsAdmin {
		return nil
	}
	total, err := s.rdb.IncrBy(ctx, quotaKey(uploader.ID), int64(n)).Result()
	if err != nil {
		return fmt.Errorf("quota counter: %w", err)
	}
	if total > int64(s.quota) {
		s.rdb.DecrBy(ctx, quotaKey(uploader.ID), int64(n))
		return ErrQuotaExceeded
	}
	if _, err := s.users.IncrementContribution(ctx, uploader.ID, n); err != nil {
		s.log.Warn().Err(err).Int("user_id", uploader.ID).Msg("Contribution mirror update failed")
	}
	return nil
}

// Upload validates, stores the object, then inserts the image row. If the
// insert fails after the object was stored, the object is deleted so no
// orphan remains.
func (s *ImageService) Upload(ctx context.Context, reader io.Reader, originalName, contentType string, size int64, meta *model.UploadImageMetaRequest, uploader *model.User) (*model.Image, error) {
	lic := model.License(meta.License)
	if !lic.Valid() {
		return nil, ErrInvalidLicense
	}
	if err := s.ChargeQuota(ctx, uploader, 1); err != nil {
		return nil, err
	}

	result, err := s.objects.Upload(ctx, reader, originalName, contentType, size)
	if err != nil {
		return nil, err
	}

	img := &model.Image{
		FilePath:     result.URL,
		OriginalName: originalName,
		URL:          result.URL,
		SizeBytes:    result.Size,
		MimeType:     contentType,
		IsCine:       meta.IsCine || storage.IsCineType(contentType),
		Description:  meta.Description,
		Tags:         meta.Tags,
		License:      lic,
		ExamCategory: meta.ExamCategory,
		ExamType:     meta.ExamType,
		ReviewStatus: model.ImagePending,
	}
	if uploader != nil {
		img.UploaderID = &uploader.ID
	}
	if img.Tags == nil {
		img.Tags = []string{}
	}

	if err := s.store.Create(ctx, img); err != nil {
		// Roll back the stored object; a dangling row is worse than a
		// retried upload.
		if delErr := s.objects.Delete(ctx, result.Filename); delErr != nil {
			s.log.Error().Err(delErr).
				Str("filename", result.Filename).
				Msg("Orphaned storage object after failed insert")
		}
		return nil, err
	}
	return img, nil
}

// UploadFromURL fetches a remote image and runs the regular upload path.
func (s *ImageService) UploadFromURL(ctx context.Context, req *model.UploadImageURLRequest, uploader *model.User) (*model.Image, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteFetch, err)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteFetch, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if parsed, _, perr := mime.ParseMediaType(contentType); perr == nil {
		contentType = parsed
	}

	// Chunked responses carry no Content-Length (-1). Buffer those
	// through the size cap so an unbounded remote body cannot slip past
	// the limit or persist a negative size.
	size := resp.ContentLength
	var body io.Reader = resp.Body
	if size < 0 {
		limit := s.objects.MaxBytes()
		var data []byte
		if limit > 0 {
			data, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
		} else {
			data, err = io.ReadAll(resp.Body)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRemoteFetch, err)
		}
		if limit > 0 && int64(len(data)) > limit {
			return nil, fmt.Errorf("%w: remote body exceeds %d bytes", storage.ErrFileTooLarge, limit)
		}
		size = int64(len(data))
		body = bytes.NewReader(data)
	}

	meta := &model.UploadImageMetaRequest{
		Description:  req.Description,
		Tags:         req.Tags,
		License:      req.License,
		ExamCategory: req.ExamCategory,
		ExamType:     req.ExamType,
		IsCine:       req.IsCine,
	}
	return s.Upload(ctx, body, req.URL, contentType, size, meta, uploader)
}

// Get retrieves a single image.
func (s *ImageService) Get(ctx context.Context, id uuid.UUID) (*model.Image, error) {
	return s.store.GetByID(ctx, id)
}

// List retrieves images matching the filter with pagination.
func (s *ImageService) List(ctx context.Context, f repository.ImageFilter, page, perPage int) ([]model.Image, *response.Pagination, error) {
	limit, offset, pagination := paginate(page, perPage)

	images, total, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if images == nil {
		images = []model.Image{}
	}
	pagination.Fill(total)
	return images, pagination, nil
}

// UpdateMeta edits image metadata.
func (s *ImageService) UpdateMeta(ctx context.Context, id uuid.UUID, req *model.UpdateImageRequest) (*model.Image, error) {
	lic := model.License(req.License)
	if !lic.Valid() {
		return nil, ErrInvalidLicense
	}

	img, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	img.Description = req.Description
	img.Tags = req.Tags
	if img.Tags == nil {
		img.Tags = []string{}
	}
	img.License = lic
	img.ExamCategory = req.ExamCategory
	img.ExamType = req.ExamType
	img.IsCine = req.IsCine

	if err := s.store.UpdateMeta(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

// ApplyReview validates and applies a reviewer decision on an image.
func (s *ImageService) ApplyReview(ctx context.Context, id uuid.UUID, d review.ImageDecision) error {
	if err := d.Validate(); err != nil {
		return err
	}

	var notes *string
	if d.Notes != "" {
		notes = &d.Notes
	}
	reviewer := d.ReviewerID
	return s.store.UpdateStatus(ctx, id, d.Status, notes, &reviewer, time.Now())
}

// Delete removes an image row and its stored object. Remotely stored
// images are deleted from object storage by key; any other file_path
// marks a legacy local file, which the active provider removes from
// the upload dir. Either way the key is the path's last segment.
func (s *ImageService) Delete(ctx context.Context, id uuid.UUID) error {
	img, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	filename := img.FilePath
	if idx := strings.LastIndexByte(filename, '/'); idx >= 0 {
		filename = filename[idx+1:]
	}
	if err := s.objects.Delete(ctx, filename); err != nil {
		s.log.Warn().Err(err).
			Str("filename", filename).
			Bool("remote", img.StoredRemotely()).
			Msg("Storage delete failed; object may be orphaned")
	}
	return nil
}
