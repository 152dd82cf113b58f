package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/echomed/echobank-backend/internal/database"
	"github.com/echomed/echobank-backend/internal/model"
)

const batchColumns = `id, name, uploader_id, source_file, description,
	isbn, page_range, chapter, question_count, created_at`

// BatchRepository handles upload batch data access.
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func scanBatch(rows pgx.Rows, b *model.UploadBatch) error {
	return rows.Scan(&b.ID, &b.Name, &b.UploaderID, &b.SourceFile, &b.Description,
		&b.ISBN, &b.PageRange, &b.Chapter, &b.QuestionCount, &b.CreatedAt)
}

// Create inserts a new batch row.
func (r *BatchRepository) Create(ctx context.Context, b *model.UploadBatch) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO upload_batches (name, uploader_id, source_file, description, isbn, page_range, chapter)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		[]any{b.Name, b.UploaderID, b.SourceFile, b.Description, b.ISBN, b.PageRange, b.Chapter},
		&b.ID, &b.CreatedAt,
	)
	return translate(err)
}

// GetByID retrieves a single batch.
func (r *BatchRepository) GetByID(ctx context.Context, id int) (*model.UploadBatch, error) {
	var b model.UploadBatch
	found := false
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		if !rows.Next() {
			return nil
		}
		found = true
		return scanBatch(rows, &b)
	}, `SELECT `+batchColumns+` FROM upload_batches WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &b, nil
}

// List retrieves batches newest first with the total count.
func (r *BatchRepository) List(ctx context.Context, limit, offset int) ([]model.UploadBatch, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM upload_batches`, nil, &total); err != nil {
		return nil, 0, translate(err)
	}

	var batches []model.UploadBatch
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var b model.UploadBatch
			if err := scanBatch(rows, &b); err != nil {
				return err
			}
			batches = append(batches, b)
		}
		return nil
	}, `SELECT `+batchColumns+` FROM upload_batches ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, translate(err)
	}
	return batches, total, nil
}

// Delete removes a batch; its questions cascade away with it.
func (r *BatchRepository) Delete(ctx context.Context, id int) error {
	affected, err := r.db.Exec(ctx, `DELETE FROM upload_batches WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQuestionCount overwrites the denormalized counter after an import.
func (r *BatchRepository) SetQuestionCount(ctx context.Context, id, count int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE upload_batches SET question_count = $1 WHERE id = $2`, count, id)
	return translate(err)
}

// ReconcileCounts recomputes every batch's question_count from the actual
// question rows in one statement. Returns the number of corrected batches.
func (r *BatchRepository) ReconcileCounts(ctx context.Context) (int64, error) {
	affected, err := r.db.Exec(ctx,
		`UPDATE upload_batches b
		 SET question_count = sub.actual
		 FROM (
			SELECT b2.id, COUNT(q.id) AS actual
			FROM upload_batches b2
			LEFT JOIN questions q ON q.batch_id = b2.id
			GROUP BY b2.id
		 ) sub
		 WHERE sub.id = b.id AND b.question_count <> sub.actual`)
	return affected, translate(err)
}
