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

// questionColumns is the canonical select list shared by every question
// read; scanQuestion must stay in sync with it.
const questionColumns = `id, question_number, question_text,
	choice_a, choice_b, choice_c, choice_d, choice_e, choice_f, choice_g,
	correct_answer, explanation, exam_category, exam_type, source,
	uploader_id, batch_id, review_status, review_notes, reviewed_by,
	reviewed_at, difficulty_rating, created_at, updated_at`

// readyCondition matches questions whose every image description is
// fulfilled by an association of the same usage role. A question with one
// satisfied and one unsatisfied requirement does not match.
const readyCondition = `NOT EXISTS (
	SELECT 1 FROM image_descriptions d
	WHERE d.question_id = q.id
	  AND NOT EXISTS (
		SELECT 1 FROM question_images qi
		WHERE qi.question_id = q.id AND qi.usage_type = d.usage_type
	  )
)`

// queueOrder sorts review queues by the numeric display-number key
// (0 when absent or non-numeric) descending, then newest first.
const queueOrder = `ORDER BY
	(CASE WHEN q.question_number ~ '^[0-9]+$' THEN q.question_number::bigint ELSE 0 END) DESC,
	q.created_at DESC`

// QuestionRepository handles question, image-description and association
// data access.
type QuestionRepository struct {
	db *database.DB
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(db *database.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func scanQuestion(rows pgx.Rows, q *model.Question) error {
	return rows.Scan(
		&q.ID, &q.QuestionNumber, &q.QuestionText,
		&q.ChoiceA, &q.ChoiceB, &q.ChoiceC, &q.ChoiceD, &q.ChoiceE, &q.ChoiceF, &q.ChoiceG,
		&q.CorrectAnswer, &q.Explanation, &q.ExamCategory, &q.ExamType, &q.Source,
		&q.UploaderID, &q.BatchID, &q.ReviewStatus, &q.ReviewNotes, &q.ReviewedBy,
		&q.ReviewedAt, &q.DifficultyRating, &q.CreatedAt, &q.UpdatedAt,
	)
}

// Create inserts a question and derives its immutable display number from
// the insert sequence. The number is set once and never rewritten.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	var seq int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO questions (question_text,
			choice_a, choice_b, choice_c, choice_d, choice_e, choice_f, choice_g,
			correct_answer, explanation, exam_category, exam_type, source,
			uploader_id, batch_id, review_status, review_notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id, seq, created_at, updated_at`,
		[]any{
			q.QuestionText,
			q.ChoiceA, q.ChoiceB, q.ChoiceC, q.ChoiceD, q.ChoiceE, q.ChoiceF, q.ChoiceG,
			q.CorrectAnswer, q.Explanation, q.ExamCategory, q.ExamType, q.Source,
			q.UploaderID, q.BatchID, q.ReviewStatus, q.ReviewNotes,
		},
		&q.ID, &seq, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}

	q.QuestionNumber = strconv.FormatInt(seq, 10)
	_, err = r.db.Exec(ctx,
		`UPDATE questions SET question_number = $1 WHERE id = $2 AND question_number IS NULL`,
		q.QuestionNumber, q.ID,
	)
	return translate(err)
}

// GetByID retrieves a question without its relations.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	var q model.Question
	found := false
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		if !rows.Next() {
			return nil
		}
		found = true
		return scanQuestion(rows, &q)
	}, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &q, nil
}

// QuestionFilter narrows List results.
type QuestionFilter struct {
	Status       model.QuestionStatus
	ExamCategory string
	ExamType     string
	BatchID      *int
	UploaderID   *int
}

// List retrieves questions matching the filter, queue ordered, with the
// total match count for pagination.
func (r *QuestionRepository) List(ctx context.Context, f QuestionFilter, limit, offset int) ([]model.Question, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	add := func(cond string, v any) {
		n++
		where += ` AND ` + cond + `$` + strconv.Itoa(n)
		args = append(args, v)
	}
	if f.Status != "" {
		add(`q.review_status = `, f.Status)
	}
	if f.ExamCategory != "" {
		add(`q.exam_category = `, f.ExamCategory)
	}
	if f.ExamType != "" {
		add(`q.exam_type = `, f.ExamType)
	}
	if f.BatchID != nil {
		add(`q.batch_id = `, *f.BatchID)
	}
	if f.UploaderID != nil {
		add(`q.uploader_id = `, *f.UploaderID)
	}

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions q`+where, args, &total,
	); err != nil {
		return nil, 0, translate(err)
	}

	limitArgs := append(append([]any{}, args...), limit, offset)
	var questions []model.Question
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var q model.Question
			if err := scanQuestion(rows, &q); err != nil {
				return err
			}
			questions = append(questions, q)
		}
		return nil
	}, `SELECT `+questionColumns+` FROM questions q`+where+` `+queueOrder+
		` LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
		limitArgs...)
	if err != nil {
		return nil, 0, translate(err)
	}
	return questions, total, nil
}

// PendingReady retrieves the pending-review queue: status pending AND all
// image requirements fulfilled, recomputed on every read.
func (r *QuestionRepository) PendingReady(ctx context.Context, limit, offset int) ([]model.Question, int, error) {
	where := ` WHERE q.review_status = 'pending' AND ` + readyCondition

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions q`+where, nil, &total,
	); err != nil {
		return nil, 0, translate(err)
	}

	var questions []model.Question
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var q model.Question
			if err := scanQuestion(rows, &q); err != nil {
				return err
			}
			q.Ready = true
			questions = append(questions, q)
		}
		return nil
	}, `SELECT `+questionColumns+` FROM questions q`+where+` `+queueOrder+` LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, translate(err)
	}
	return questions, total, nil
}

// UpdateContent rewrites the uploader-editable fields. Status fields and
// the display number are untouched.
func (r *QuestionRepository) UpdateContent(ctx context.Context, q *model.Question) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE questions SET question_text = $1,
			choice_a = $2, choice_b = $3, choice_c = $4, choice_d = $5,
			choice_e = $6, choice_f = $7, choice_g = $8,
			correct_answer = $9, explanation = $10, exam_category = $11,
			exam_type = $12, source = $13, updated_at = now()
		 WHERE id = $14`,
		q.QuestionText,
		q.ChoiceA, q.ChoiceB, q.ChoiceC, q.ChoiceD, q.ChoiceE, q.ChoiceF, q.ChoiceG,
		q.CorrectAnswer, q.Explanation, q.ExamCategory, q.ExamType, q.Source, q.ID,
	)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus applies a validated review decision in a single statement.
func (r *QuestionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuestionStatus, notes *string, reviewedBy *int, difficulty *int, reviewedAt time.Time) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE questions SET review_status = $1, review_notes = $2,
			reviewed_by = $3, reviewed_at = $4,
			difficulty_rating = COALESCE($5, difficulty_rating),
			updated_at = now()
		 WHERE id = $6`,
		status, notes, reviewedBy, reviewedAt, difficulty, id,
	)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a question; descriptions and associations cascade.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	affected, err := r.db.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateDescription attaches an image requirement to a question.
func (r *QuestionRepository) CreateDescription(ctx context.Context, d *model.ImageDescription) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO image_descriptions (question_id, description, usage_type, modality, echo_view, image_type)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		[]any{d.QuestionID, d.Description, d.UsageType, d.Modality, d.EchoView, d.ImageType},
		&d.ID, &d.CreatedAt,
	)
	return translate(err)
}

// ListDescriptions retrieves all image requirements of a question.
func (r *QuestionRepository) ListDescriptions(ctx context.Context, questionID uuid.UUID) ([]model.ImageDescription, error) {
	var descs []model.ImageDescription
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var d model.ImageDescription
			if err := rows.Scan(&d.ID, &d.QuestionID, &d.Description, &d.UsageType,
				&d.Modality, &d.EchoView, &d.ImageType, &d.CreatedAt); err != nil {
				return err
			}
			descs = append(descs, d)
		}
		return nil
	}, `SELECT id, question_id, description, usage_type, modality, echo_view, image_type, created_at
		FROM image_descriptions WHERE question_id = $1 ORDER BY id`, questionID)
	if err != nil {
		return nil, translate(err)
	}
	return descs, nil
}

// DeleteDescription removes one image requirement.
func (r *QuestionRepository) DeleteDescription(ctx context.Context, questionID uuid.UUID, descriptionID int) error {
	affected, err := r.db.Exec(ctx,
		`DELETE FROM image_descriptions WHERE id = $1 AND question_id = $2`,
		descriptionID, questionID,
	)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssociateImage links an image to a question. Re-associating the same
// pair updates order and usage instead of duplicating.
func (r *QuestionRepository) AssociateImage(ctx context.Context, link *model.QuestionImage) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO question_images (question_id, image_id, display_order, usage_type)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (question_id, image_id)
		 DO UPDATE SET display_order = EXCLUDED.display_order, usage_type = EXCLUDED.usage_type`,
		link.QuestionID, link.ImageID, link.DisplayOrder, link.UsageType,
	)
	return translate(err)
}

// RemoveImage unlinks an image from a question.
func (r *QuestionRepository) RemoveImage(ctx context.Context, questionID, imageID uuid.UUID) error {
	affected, err := r.db.Exec(ctx,
		`DELETE FROM question_images WHERE question_id = $1 AND image_id = $2`,
		questionID, imageID,
	)
	if err != nil {
		return translate(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLinks retrieves the question's image associations with the joined
// asset rows, in display order.
func (r *QuestionRepository) ListLinks(ctx context.Context, questionID uuid.UUID) ([]model.QuestionImage, error) {
	var links []model.QuestionImage
	err := r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var l model.QuestionImage
			var img model.Image
			if err := rows.Scan(
				&l.QuestionID, &l.ImageID, &l.DisplayOrder, &l.UsageType,
				&img.ID, &img.FilePath, &img.OriginalName, &img.URL, &img.SizeBytes,
				&img.MimeType, &img.IsCine, &img.Description, &img.License,
				&img.ReviewStatus,
			); err != nil {
				return err
			}
			l.Image = &img
			links = append(links, l)
		}
		return nil
	}, `SELECT qi.question_id, qi.image_id, qi.display_order, qi.usage_type,
			i.id, i.file_path, i.original_name, i.url, i.size_bytes,
			i.mime_type, i.is_cine, i.description, i.license, i.review_status
		FROM question_images qi
		JOIN images i ON i.id = qi.image_id
		WHERE qi.question_id = $1
		ORDER BY qi.display_order, qi.image_id`, questionID)
	if err != nil {
		return nil, translate(err)
	}
	return links, nil
}
