package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/echomed/echobank-backend/internal/database"
	"github.com/echomed/echobank-backend/internal/model"
)

const imageColumns = `id, file_path, original_name, url, size_bytes, mime_type,
	is_cine, width, height, duration_seconds, description, tags, license,
	exam_category, exam_type, uploader_id, review_status, review_notes,
	reviewed_by, reviewed_at, created_at`

// ImageRepository handles media asset data access.
type ImageRepository struct {
	db *database.DB
}

// NewImageRepository creates a new ImageRepository.
func NewImageRepository(db *database.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func scanImage(rows pgx.Rows, img *model.Image) error {
	return rows.Scan(
		&img.ID, &img.FilePath, &img.OriginalName, &img.URL, &img.SizeBytes, &img.MimeType,
		&img.IsCine, &img.Width, &img.Height, &img.Duration, &img.Description, &img.Tags, &img.License,
		&img.ExamCategory, &img.ExamType, &img.UploaderID, &img.ReviewStatus, &img.ReviewNotes,
		&img.ReviewedBy, &img.ReviewedAt, &img.CreatedAt,
	)
}

// Create inserts a new image row.
func (r *ImageRepository) Create(ctx context.Context, img *model.Image) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO images (file_path, original_name, url, size_bytes, mime_type,
			is_cine, width, height, duration_seconds, description, tags, license,
			exam_category, exam_type, uploader_id, review_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id, created_at`,
		[]any{
			img.FilePath, img.OriginalName, img.URL, img.SizeBytes, img.MimeType,
			img.IsCine, img.Width, img.Height, img.Duration, img.Description, img.Tags, img.License,
			img.ExamCategory, img.ExamType, img.UploaderID, img.ReviewStatus,
		},
		&img.ID, &img.CreatedAt,
	)
	return translate(err)
}

// GetByID retrieves a single image.
func (r *ImageRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Image, error) {
	var img model.Image
	found := false
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		if !rows.Next() {
			return nil
		}
		found = true
		return scanImage(rows, &img)
	}, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &img, nil
}

// ImageFilter narrows List results.
type ImageFilter struct {
	Status       model.ImageStatus
	ExamCategory string
	ExamType     string
	UploaderID   *int
	IsCine       *bool
}

// List retrieves images matching the filter, newest first, with the total
// match count.
func (r *ImageRepository) List(ctx context.Context, f ImageFilter, limit, offset int) ([]model.Image, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	add := func(cond string, v any) {
		n++
		where += ` AND ` + cond + `$` + strconv.Itoa(n)
		args = append(args, v)
	}
	if f.Status != "" {
		add(`review_status = `, f.Status)
	}
	if f.ExamCategory != "" {
		add(`exam_category = `, f.ExamCategory)
	}
	if f.ExamType != "" {
		add(`exam_type = `, f.ExamType)
	}
	if f.UploaderID != nil {
		add(`uploader_id = `, *f.UploaderID)
	}
	if f.IsCine != nil {
		add(`is_cine = `, *f.IsCine)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM images`+where, args, &total); err != nil {
		return nil, 0, translate(err)
	}

	limitArgs := append(append([]any{}, args...), limit, offset)
	var images []model.Image
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var img model.Image
			if err := scanImage(rows, &img); err != nil {
				return err
			}
			images = append(images, img)
		}
		return nil
	}, `SELECT `+imageColumns+` FROM images`+where+` ORDER BY created_at DESC`+
		` LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
		limitArgs...)
	if err != nil {
		return nil, 0, translate(err)
	}
	return images, total, nil
}

// UpdateMeta rewrites the editable metadata fields.
func (r *ImageRepository) UpdateMeta(ctx context.Context, img *model.Image) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE images SET description = $1, tags = $2, license = $3,
			exam_category = $4, exam_type = $5, is_cine = $6
		 WHERE id = $7`,
		img.Description, img.Tags, img.License,
		img.ExamCategory, img.ExamType, img.IsCine, img.ID,
	)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus applies a validated image review decision.
func (r *ImageRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ImageStatus, notes *string, reviewedBy *int, reviewedAt time.Time) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE images SET review_status = $1, review_notes = $2,
			reviewed_by = $3, reviewed_at = $4
		 WHERE id = $5`,
		status, notes, reviewedBy, reviewedAt, id,
	)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an image row; question associations cascade.
func (r *ImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
