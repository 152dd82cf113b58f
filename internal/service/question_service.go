package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/review"
)

// Service-level validation errors.
var (
	ErrNotOwner     = errors.New("question belongs to another uploader")
	ErrInvalidUsage = errors.New("invalid usage type")
)

// QuestionStore is the slice of the question repository this service uses.
type QuestionStore interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	List(ctx context.Context, f repository.QuestionFilter, limit, offset int) ([]model.Question, int, error)
	PendingReady(ctx context.Context, limit, offset int) ([]model.Question, int, error)
	UpdateContent(ctx context.Context, q *model.Question) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuestionStatus, notes *string, reviewedBy *int, difficulty *int, reviewedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateDescription(ctx context.Context, d *model.ImageDescription) error
	ListDescriptions(ctx context.Context, questionID uuid.UUID) ([]model.ImageDescription, error)
	DeleteDescription(ctx context.Context, questionID uuid.UUID, descriptionID int) error
	AssociateImage(ctx context.Context, link *model.QuestionImage) error
	RemoveImage(ctx context.Context, questionID, imageID uuid.UUID) error
	ListLinks(ctx context.Context, questionID uuid.UUID) ([]model.QuestionImage, error)
}

// QuotaCharger reserves contribution slots for quota-capped uploaders.
// Implemented by ImageService; image uploads and image descriptions
// draw from the same combined counter.
type QuotaCharger interface {
	ChargeQuota(ctx context.Context, uploader *model.User, n int) error
}

// QuestionService owns the question lifecycle: creation with image
// requirements, review decisions, the pending queue, and associations.
type QuestionService struct {
	store QuestionStore
	quota QuotaCharger
	log   zerolog.Logger
}

// NewQuestionService creates a new QuestionService. quota may be nil
// when no contribution cap applies.
func NewQuestionService(store QuestionStore, quota QuotaCharger, log zerolog.Logger) *QuestionService {
	return &QuestionService{store: store, quota: quota, log: log}
}

// Create inserts a question and its image requirements. The initial review
// status follows the lifecycle rules: pending without requirements,
// returned with a system note when requirements exist. The question insert
// and the per-description inserts are separate round trips.
func (s *QuestionService) Create(ctx context.Context, q *model.Question, descriptions []model.ImageDescription) error {
	if err := review.ValidateCorrectAnswer(q); err != nil {
		return err
	}

	status, note := review.InitialStatus(len(descriptions))
	q.ReviewStatus = status
	if note != "" {
		q.ReviewNotes = &note
	}

	if err := s.store.Create(ctx, q); err != nil {
		return err
	}

	for i := range descriptions {
		descriptions[i].QuestionID = q.ID
		if err := s.store.CreateDescription(ctx, &descriptions[i]); err != nil {
			// No surrounding transaction; the question stays with the
			// requirements inserted so far.
			s.log.Error().Err(err).
				Str("question_id", q.ID.String()).
				Msg("Image description insert failed mid-create")
			return err
		}
	}
	q.ImageDescriptions = descriptions
	return nil
}

// Get retrieves a question with relations and the derived ready flag.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if q.ImageDescriptions, err = s.store.ListDescriptions(ctx, id); err != nil {
		return nil, err
	}
	if q.Images, err = s.store.ListLinks(ctx, id); err != nil {
		return nil, err
	}
	// Readiness is a read-time projection; it is never stored and never
	// advances the stored status on its own.
	q.Ready = review.Fulfilled(q.ImageDescriptions, q.Images)
	return q, nil
}

// List retrieves questions matching the filter with pagination.
func (s *QuestionService) List(ctx context.Context, f repository.QuestionFilter, page, perPage int) ([]model.Question, *response.Pagination, error) {
	limit, offset, pagination := paginate(page, perPage)

	questions, total, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	pagination.Fill(total)
	return questions, pagination, nil
}

// PendingQueue retrieves the pending-and-ready review queue. Eligibility
// is recomputed on every read.
func (s *QuestionService) PendingQueue(ctx context.Context, page, perPage int) ([]model.Question, *response.Pagination, error) {
	limit, offset, pagination := paginate(page, perPage)

	questions, total, err := s.store.PendingReady(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	pagination.Fill(total)
	return questions, pagination, nil
}

// UpdateContent rewrites question content. Only the owning uploader or an
// actor with review capability may edit.
func (s *QuestionService) UpdateContent(ctx context.Context, q *model.Question, actorID int, canReview bool) error {
	existing, err := s.store.GetByID(ctx, q.ID)
	if err != nil {
		return err
	}
	if !canReview && (existing.UploaderID == nil || *existing.UploaderID != actorID) {
		return ErrNotOwner
	}
	if err := review.ValidateCorrectAnswer(q); err != nil {
		return err
	}
	return s.store.UpdateContent(ctx, q)
}

// ApplyReview validates and applies a reviewer decision. Validation
// failures reject the decision before any write; the update itself is a
// single statement.
func (s *QuestionService) ApplyReview(ctx context.Context, id uuid.UUID, d review.Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}

	var notes *string
	if d.Notes != "" {
		notes = &d.Notes
	}
	reviewer := d.ReviewerID
	return s.store.UpdateStatus(ctx, id, d.Status, notes, &reviewer, d.Difficulty, time.Now())
}

// Delete removes a question entirely.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// AddDescription attaches a new image requirement. Descriptions count
// against the uploader's combined contribution quota alongside image
// uploads; the charge happens before the insert.
func (s *QuestionService) AddDescription(ctx context.Context, d *model.ImageDescription, uploader *model.User) error {
	if !d.UsageType.Valid() {
		return ErrInvalidUsage
	}
	if s.quota != nil {
		if err := s.quota.ChargeQuota(ctx, uploader, 1); err != nil {
			return err
		}
	}
	return s.store.CreateDescription(ctx, d)
}

// DeleteDescription removes an image requirement.
func (s *QuestionService) DeleteDescription(ctx context.Context, questionID uuid.UUID, descriptionID int) error {
	return s.store.DeleteDescription(ctx, questionID, descriptionID)
}

// AssociateImage links an image to a question, fulfilling any requirement
// with the same usage role. The stored status of a returned question does
// not change here; it reappears in the queue only through an explicit
// status edit, while Get exposes the derived ready flag immediately.
func (s *QuestionService) AssociateImage(ctx context.Context, link *model.QuestionImage) error {
	if !link.UsageType.Valid() {
		return ErrInvalidUsage
	}
	if _, err := s.store.GetByID(ctx, link.QuestionID); err != nil {
		return err
	}
	return s.store.AssociateImage(ctx, link)
}

// RemoveImage unlinks an image from a question.
func (s *QuestionService) RemoveImage(ctx context.Context, questionID, imageID uuid.UUID) error {
	return s.store.RemoveImage(ctx, questionID, imageID)
}

// paginate clamps paging inputs and prepares the response pagination.
func paginate(page, perPage int) (limit, offset int, p *response.Pagination) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return perPage, (page - 1) * perPage, &response.Pagination{Page: page, PerPage: perPage}
}
