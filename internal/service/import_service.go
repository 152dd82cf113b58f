package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/echomed/echobank-backend/internal/model"
)

// Import errors.
var (
	ErrEmptyCSV      = errors.New("csv contains no data rows")
	ErrMissingHeader = errors.New("csv header is missing required columns")
)

// importColumns are the recognized CSV headers. question_text and
// correct_answer are mandatory; the rest are optional.
var importColumns = []string{
	"question_text",
	"choice_a", "choice_b", "choice_c", "choice_d", "choice_e", "choice_f", "choice_g",
	"correct_answer", "explanation", "exam_category", "exam_type", "source",
	"image_description_question", "image_description_explanation",
}

// BatchStore is the slice of the batch repository the importer uses.
type BatchStore interface {
	Create(ctx context.Context, b *model.UploadBatch) error
	SetQuestionCount(ctx context.Context, id, count int) error
}

// RowError reports one CSV row that failed validation or insertion.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a batch import.
type ImportResult struct {
	Batch    *model.UploadBatch `json:"batch"`
	Imported int                `json:"imported"`
	Failed   []RowError         `json:"failed"`
}

// ImportService turns a CSV upload into an upload batch of questions.
type ImportService struct {
	batches   BatchStore
	questions *QuestionService
	log       zerolog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(batches BatchStore, questions *QuestionService, log zerolog.Logger) *ImportService {
	return &ImportService{batches: batches, questions: questions, log: log}
}

// Import creates the batch row, then inserts each CSV row as a question
// with its image requirements. The inserts are independent round trips
// with no wrapping transaction: a mid-batch failure leaves the rows
// imported so far, and the failures are reported per row. The batch
// question_count is set from the successful rows at the end.
func (s *ImportService) Import(ctx context.Context, r io.Reader, batch *model.UploadBatch, uploaderID int, defaultCategory, defaultType string) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	batch.UploaderID = &uploaderID
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	result := &ImportResult{Batch: batch}
	rowNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Failed = append(result.Failed, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}

		q, descs := buildRow(record, cols, uploaderID, batch.ID, defaultCategory, defaultType)
		if err := s.questions.Create(ctx, q, descs); err != nil {
			s.log.Warn().Err(err).Int("row", rowNum).Msg("Import row failed")
			result.Failed = append(result.Failed, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		result.Imported++
	}

	if result.Imported == 0 && len(result.Failed) == 0 {
		return nil, ErrEmptyCSV
	}

	if err := s.batches.SetQuestionCount(ctx, batch.ID, result.Imported); err != nil {
		// The reconciler worker corrects the counter later.
		s.log.Warn().Err(err).Int("batch_id", batch.ID).Msg("Question count update failed")
	}
	batch.QuestionCount = result.Imported
	return result, nil
}

// mapColumns resolves header names to indices. Unknown columns are
// ignored; question_text and correct_answer must be present.
func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(importColumns))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for _, known := range importColumns {
			if name == known {
				cols[known] = i
				break
			}
		}
	}
	if _, ok := cols["question_text"]; !ok {
		return nil, ErrMissingHeader
	}
	if _, ok := cols["correct_answer"]; !ok {
		return nil, ErrMissingHeader
	}
	return cols, nil
}

func buildRow(record []string, cols map[string]int, uploaderID, batchID int, defaultCategory, defaultType string) (*model.Question, []model.ImageDescription) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	optional := func(name string) *string {
		v := get(name)
		if v == "" {
			return nil
		}
		return &v
	}

	q := &model.Question{
		QuestionText:  get("question_text"),
		ChoiceA:       optional("choice_a"),
		ChoiceB:       optional("choice_b"),
		ChoiceC:       optional("choice_c"),
		ChoiceD:       optional("choice_d"),
		ChoiceE:       optional("choice_e"),
		ChoiceF:       optional("choice_f"),
		ChoiceG:       optional("choice_g"),
		CorrectAnswer: strings.ToUpper(get("correct_answer")),
		Explanation:   optional("explanation"),
		ExamCategory:  get("exam_category"),
		ExamType:      get("exam_type"),
		Source:        optional("source"),
		UploaderID:    &uploaderID,
		BatchID:       &batchID,
	}
	if q.ExamCategory == "" {
		q.ExamCategory = defaultCategory
	}
	if q.ExamType == "" {
		q.ExamType = defaultType
	}

	var descs []model.ImageDescription
	if d := get("image_description_question"); d != "" {
		descs = append(descs, model.ImageDescription{Description: d, UsageType: model.UsageQuestion})
	}
	if d := get("image_description_explanation"); d != "" {
		descs = append(descs, model.ImageDescription{Description: d, UsageType: model.UsageExplanation})
	}
	return q, descs
}
