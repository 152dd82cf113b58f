package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echomed/echobank-backend/internal/model"
)

type fakeBatchStore struct {
	batches map[int]*model.UploadBatch
	counts  map[int]int
	nextID  int
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{batches: make(map[int]*model.UploadBatch), counts: make(map[int]int)}
}

func (f *fakeBatchStore) Create(ctx context.Context, b *model.UploadBatch) error {
	f.nextID++
	b.ID = f.nextID
	cp := *b
	f.batches[b.ID] = &cp
	return nil
}

func (f *fakeBatchStore) SetQuestionCount(ctx context.Context, id, count int) error {
	f.counts[id] = count
	return nil
}

func newImportService(batches *fakeBatchStore, questions *fakeQuestionStore) *ImportService {
	qsvc := NewQuestionService(questions, nil, zerolog.Nop())
	return NewImportService(batches, qsvc, zerolog.Nop())
}

const sampleCSV = `question_text,choice_a,choice_b,choice_c,correct_answer,explanation,exam_category,image_description_question
"Which view best shows the interatrial septum?","ME 4-chamber","ME bicaval","TG mid SAX",B,"The bicaval view lies along the septum.",TEE,"Bicaval still frame"
"Normal LVEF lower bound?","45%","55%","65%",B,,,
`

func TestImport_HappyPath(t *testing.T) {
	batches := newFakeBatchStore()
	questions := newFakeQuestionStore()
	svc := newImportService(batches, questions)

	batch := &model.UploadBatch{Name: "Board review set 1", SourceFile: "set1.csv"}
	result, err := svc.Import(context.Background(), strings.NewReader(sampleCSV), batch, 7, "TEE", "Basic")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 2, batch.QuestionCount)
	assert.Equal(t, 2, batches.counts[batch.ID])
	assert.Len(t, questions.questions, 2)

	var withImage, without *model.Question
	for _, q := range questions.questions {
		if strings.Contains(q.QuestionText, "interatrial") {
			withImage = q
		} else {
			without = q
		}
	}
	require.NotNil(t, withImage)
	require.NotNil(t, without)

	// Row with an image requirement starts returned; the plain row starts
	// pending. Blank exam fields pick up the batch defaults.
	assert.Equal(t, model.QuestionReturned, withImage.ReviewStatus)
	assert.Len(t, questions.descriptions[withImage.ID], 1)
	assert.Equal(t, model.QuestionPending, without.ReviewStatus)
	assert.Equal(t, "TEE", without.ExamCategory)
	assert.Equal(t, "Basic", without.ExamType)
	assert.Equal(t, 7, *without.UploaderID)
	assert.Equal(t, batch.ID, *without.BatchID)
}

func TestImport_MissingRequiredHeader(t *testing.T) {
	batches := newFakeBatchStore()
	svc := newImportService(batches, newFakeQuestionStore())

	csv := "question_text,choice_a,choice_b\nsomething,a,b\n"
	_, err := svc.Import(context.Background(), strings.NewReader(csv), &model.UploadBatch{Name: "x"}, 1, "TEE", "Basic")
	assert.ErrorIs(t, err, ErrMissingHeader)
	assert.Empty(t, batches.batches, "no batch created on a bad header")
}

func TestImport_EmptyBody(t *testing.T) {
	svc := newImportService(newFakeBatchStore(), newFakeQuestionStore())

	csv := "question_text,correct_answer\n"
	_, err := svc.Import(context.Background(), strings.NewReader(csv), &model.UploadBatch{Name: "x"}, 1, "TEE", "Basic")
	assert.ErrorIs(t, err, ErrEmptyCSV)
}

func TestImport_CollectsRowFailures(t *testing.T) {
	batches := newFakeBatchStore()
	questions := newFakeQuestionStore()
	svc := newImportService(batches, questions)

	// The second row names a correct answer with no matching choice and
	// must fail without stopping the rows around it.
	csv := `question_text,choice_a,choice_b,correct_answer
"Good row one","yes","no",A
"Bad row","yes","no",D
"Good row two","yes","no",B
`
	batch := &model.UploadBatch{Name: "mixed"}
	result, err := svc.Import(context.Background(), strings.NewReader(csv), batch, 1, "TEE", "Basic")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 3, result.Failed[0].Row)
	assert.Equal(t, 2, batches.counts[batch.ID])
}

func TestImport_LowercaseAnswerNormalized(t *testing.T) {
	questions := newFakeQuestionStore()
	svc := newImportService(newFakeBatchStore(), questions)

	csv := "question_text,choice_a,choice_b,correct_answer\nQ,yes,no,b\n"
	result, err := svc.Import(context.Background(), strings.NewReader(csv), &model.UploadBatch{Name: "x"}, 1, "TEE", "Basic")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	for _, q := range questions.questions {
		assert.Equal(t, "B", q.CorrectAnswer)
	}
}
