package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/review"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// fakeQuestionStore is an in-memory QuestionStore.
type fakeQuestionStore struct {
	questions     map[uuid.UUID]*model.Question
	descriptions  map[uuid.UUID][]model.ImageDescription
	links         map[uuid.UUID][]model.QuestionImage
	nextDescID    int
	statusUpdates int
	descErr       error
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{
		questions:    make(map[uuid.UUID]*model.Question),
		descriptions: make(map[uuid.UUID][]model.ImageDescription),
		links:        make(map[uuid.UUID][]model.QuestionImage),
	}
}

func (f *fakeQuestionStore) Create(ctx context.Context, q *model.Question) error {
	q.ID = uuid.New()
	q.QuestionNumber = "1"
	q.CreatedAt = time.Now()
	cp := *q
	f.questions[q.ID] = &cp
	return nil
}

func (f *fakeQuestionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuestionStore) List(ctx context.Context, filter repository.QuestionFilter, limit, offset int) ([]model.Question, int, error) {
	var out []model.Question
	for _, q := range f.questions {
		if filter.Status != "" && q.ReviewStatus != filter.Status {
			continue
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (f *fakeQuestionStore) PendingReady(ctx context.Context, limit, offset int) ([]model.Question, int, error) {
	var out []model.Question
	for _, q := range f.questions {
		if review.Ready(q.ReviewStatus, f.descriptions[q.ID], f.links[q.ID]) {
			cp := *q
			cp.Ready = true
			out = append(out, cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeQuestionStore) UpdateContent(ctx context.Context, q *model.Question) error {
	existing, ok := f.questions[q.ID]
	if !ok {
		return repository.ErrNotFound
	}
	q.UploaderID = existing.UploaderID
	cp := *q
	f.questions[q.ID] = &cp
	return nil
}

func (f *fakeQuestionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.QuestionStatus, notes *string, reviewedBy *int, difficulty *int, reviewedAt time.Time) error {
	q, ok := f.questions[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.statusUpdates++
	q.ReviewStatus = status
	q.ReviewNotes = notes
	q.ReviewedBy = reviewedBy
	if difficulty != nil {
		q.DifficultyRating = difficulty
	}
	q.ReviewedAt = &reviewedAt
	return nil
}

func (f *fakeQuestionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.questions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.questions, id)
	return nil
}

func (f *fakeQuestionStore) CreateDescription(ctx context.Context, d *model.ImageDescription) error {
	if f.descErr != nil {
		return f.descErr
	}
	f.nextDescID++
	d.ID = f.nextDescID
	f.descriptions[d.QuestionID] = append(f.descriptions[d.QuestionID], *d)
	return nil
}

func (f *fakeQuestionStore) ListDescriptions(ctx context.Context, questionID uuid.UUID) ([]model.ImageDescription, error) {
	return f.descriptions[questionID], nil
}

func (f *fakeQuestionStore) DeleteDescription(ctx context.Context, questionID uuid.UUID, descriptionID int) error {
	descs := f.descriptions[questionID]
	for i, d := range descs {
		if d.ID == descriptionID {
			f.descriptions[questionID] = append(descs[:i], descs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeQuestionStore) AssociateImage(ctx context.Context, link *model.QuestionImage) error {
	f.links[link.QuestionID] = append(f.links[link.QuestionID], *link)
	return nil
}

func (f *fakeQuestionStore) RemoveImage(ctx context.Context, questionID, imageID uuid.UUID) error {
	links := f.links[questionID]
	for i, l := range links {
		if l.ImageID == imageID {
			f.links[questionID] = append(links[:i], links[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeQuestionStore) ListLinks(ctx context.Context, questionID uuid.UUID) ([]model.QuestionImage, error) {
	return f.links[questionID], nil
}

func newQuestion() *model.Question {
	return &model.Question{
		QuestionText:  "Which structure is seen in the midesophageal bicaval view?",
		ChoiceA:       strPtr("Left atrial appendage"),
		ChoiceB:       strPtr("Superior vena cava"),
		CorrectAnswer: "B",
		ExamCategory:  "TEE",
		ExamType:      "Basic",
		UploaderID:    intPtr(7),
	}
}

func TestQuestionCreate_NoRequirements(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	assert.Equal(t, model.QuestionPending, q.ReviewStatus)
	assert.Nil(t, q.ReviewNotes)
	assert.NotEqual(t, uuid.Nil, q.ID)
}

func TestQuestionCreate_WithRequirements(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	descs := []model.ImageDescription{
		{Description: "Bicaval view still frame", UsageType: model.UsageQuestion},
		{Description: "Annotated explanation image", UsageType: model.UsageExplanation},
	}
	require.NoError(t, svc.Create(context.Background(), q, descs))

	assert.Equal(t, model.QuestionReturned, q.ReviewStatus)
	require.NotNil(t, q.ReviewNotes)
	assert.Equal(t, review.SystemReturnNote, *q.ReviewNotes)
	assert.Len(t, store.descriptions[q.ID], 2)
}

func TestQuestionCreate_InvalidCorrectAnswer(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	q.CorrectAnswer = "E"
	err := svc.Create(context.Background(), q, nil)
	assert.ErrorIs(t, err, review.ErrCorrectAnswerChoice)
	assert.Empty(t, store.questions, "nothing written on validation failure")
}

func TestQuestionGet_DerivedReadyFlag(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	descs := []model.ImageDescription{{Description: "Cine loop", UsageType: model.UsageQuestion}}
	require.NoError(t, svc.Create(context.Background(), q, descs))

	// Unfulfilled: not ready.
	got, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.False(t, got.Ready)

	// Associating an image with the required role fulfills it, and the
	// derived flag flips on the next read without a status change.
	link := &model.QuestionImage{QuestionID: q.ID, ImageID: uuid.New(), UsageType: model.UsageQuestion}
	require.NoError(t, svc.AssociateImage(context.Background(), link))

	got, err = svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.True(t, got.Ready)
	assert.Equal(t, model.QuestionReturned, got.ReviewStatus, "fulfillment never advances the stored status")
	assert.Equal(t, 0, store.statusUpdates)
}

func TestQuestionPendingQueue_ExcludesUnready(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	plain := newQuestion()
	require.NoError(t, svc.Create(context.Background(), plain, nil))

	withImages := newQuestion()
	require.NoError(t, svc.Create(context.Background(), withImages, []model.ImageDescription{
		{Description: "ME 4-chamber view", UsageType: model.UsageQuestion},
	}))

	questions, _, err := svc.PendingQueue(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, plain.ID, questions[0].ID)
	assert.True(t, questions[0].Ready)
}

func TestQuestionApplyReview_NoteRequired(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	err := svc.ApplyReview(context.Background(), q.ID, review.Decision{
		Status:     model.QuestionRejected,
		ReviewerID: 3,
	})
	assert.ErrorIs(t, err, review.ErrNoteRequired)
	assert.Equal(t, 0, store.statusUpdates, "rejected decision must not mutate")
	assert.Equal(t, model.QuestionPending, store.questions[q.ID].ReviewStatus)
}

func TestQuestionApplyReview_ApproveWithDifficulty(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	err := svc.ApplyReview(context.Background(), q.ID, review.Decision{
		Status:     model.QuestionApproved,
		ReviewerID: 3,
		Difficulty: intPtr(4),
	})
	require.NoError(t, err)

	stored := store.questions[q.ID]
	assert.Equal(t, model.QuestionApproved, stored.ReviewStatus)
	assert.Equal(t, 4, *stored.DifficultyRating)
	assert.Equal(t, 3, *stored.ReviewedBy)
	assert.NotNil(t, stored.ReviewedAt)
}

func TestQuestionApplyReview_DifficultyOutOfRange(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	err := svc.ApplyReview(context.Background(), q.ID, review.Decision{
		Status:     model.QuestionApproved,
		Difficulty: intPtr(6),
	})
	assert.ErrorIs(t, err, review.ErrDifficultyOutOfRange)
	assert.Equal(t, 0, store.statusUpdates)
}

func TestQuestionUpdateContent_Ownership(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	edit := *q
	edit.QuestionText = "Edited"

	// A different uploader without review capability is rejected.
	err := svc.UpdateContent(context.Background(), &edit, 99, false)
	assert.ErrorIs(t, err, ErrNotOwner)

	// The owner may edit.
	require.NoError(t, svc.UpdateContent(context.Background(), &edit, 7, false))

	// So may a reviewer who is not the owner.
	edit.QuestionText = "Edited again"
	require.NoError(t, svc.UpdateContent(context.Background(), &edit, 99, true))
}

func TestQuestionAssociateImage_InvalidUsage(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	err := svc.AssociateImage(context.Background(), &model.QuestionImage{
		QuestionID: q.ID,
		ImageID:    uuid.New(),
		UsageType:  model.UsageType("thumbnail"),
	})
	assert.ErrorIs(t, err, ErrInvalidUsage)
}

type fakeQuotaCharger struct {
	charged int
	err     error
}

func (f *fakeQuotaCharger) ChargeQuota(ctx context.Context, uploader *model.User, n int) error {
	if f.err != nil {
		return f.err
	}
	f.charged += n
	return nil
}

func TestQuestionAddDescription_ChargesQuota(t *testing.T) {
	store := newFakeQuestionStore()
	quota := &fakeQuotaCharger{}
	svc := NewQuestionService(store, quota, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	d := &model.ImageDescription{
		QuestionID:  q.ID,
		Description: "TG mid-papillary short axis still",
		UsageType:   model.UsageQuestion,
	}
	uploader := &model.User{ID: 7, IsContributor: true}
	require.NoError(t, svc.AddDescription(context.Background(), d, uploader))

	assert.Equal(t, 1, quota.charged, "a description spends one contribution slot")
	assert.Len(t, store.descriptions[q.ID], 1)
}

func TestQuestionAddDescription_QuotaExceeded(t *testing.T) {
	store := newFakeQuestionStore()
	quota := &fakeQuotaCharger{err: ErrQuotaExceeded}
	svc := NewQuestionService(store, quota, zerolog.Nop())

	q := newQuestion()
	require.NoError(t, svc.Create(context.Background(), q, nil))

	d := &model.ImageDescription{
		QuestionID:  q.ID,
		Description: "One over the cap",
		UsageType:   model.UsageExplanation,
	}
	err := svc.AddDescription(context.Background(), d, &model.User{ID: 7, IsContributor: true})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, store.descriptions[q.ID], "nothing inserted past the cap")
}

func TestQuestionAddDescription_InvalidUsageBeforeCharge(t *testing.T) {
	store := newFakeQuestionStore()
	quota := &fakeQuotaCharger{}
	svc := NewQuestionService(store, quota, zerolog.Nop())

	d := &model.ImageDescription{Description: "x", UsageType: model.UsageType("banner")}
	err := svc.AddDescription(context.Background(), d, &model.User{ID: 7, IsContributor: true})
	assert.ErrorIs(t, err, ErrInvalidUsage)
	assert.Equal(t, 0, quota.charged)
}

func TestQuestionAssociateImage_UnknownQuestion(t *testing.T) {
	store := newFakeQuestionStore()
	svc := NewQuestionService(store, nil, zerolog.Nop())

	err := svc.AssociateImage(context.Background(), &model.QuestionImage{
		QuestionID: uuid.New(),
		ImageID:    uuid.New(),
		UsageType:  model.UsageQuestion,
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
