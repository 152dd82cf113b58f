package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionStatus is the stored review state of a question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionApproved QuestionStatus = "approved"
	QuestionRejected QuestionStatus = "rejected"
	QuestionReturned QuestionStatus = "returned"
	// QuestionPendingSubmission marks an uploader draft still waiting on
	// required images before it can enter review.
	QuestionPendingSubmission QuestionStatus = "pending_submission"
)

// Valid reports whether s is a known question status.
func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionPending, QuestionApproved, QuestionRejected, QuestionReturned, QuestionPendingSubmission:
		return true
	}
	return false
}

// ChoiceLabels are the allowed answer-choice letters, in display order.
var ChoiceLabels = []string{"A", "B", "C", "D", "E", "F", "G"}

// Question represents one TEE/echocardiography exam question.
type Question struct {
	ID             uuid.UUID `json:"id"`
	QuestionNumber string    `json:"question_number"`
	QuestionText   string    `json:"question_text"`
	ChoiceA        *string   `json:"choice_a,omitempty"`
	ChoiceB        *string   `json:"choice_b,omitempty"`
	ChoiceC        *string   `json:"choice_c,omitempty"`
	ChoiceD        *string   `json:"choice_d,omitempty"`
	ChoiceE        *string   `json:"choice_e,omitempty"`
	ChoiceF        *string   `json:"choice_f,omitempty"`
	ChoiceG        *string   `json:"choice_g,omitempty"`
	CorrectAnswer  string    `json:"correct_answer"`
	Explanation    *string   `json:"explanation,omitempty"`

	ExamCategory string  `json:"exam_category"`
	ExamType     string  `json:"exam_type"`
	Source       *string `json:"source,omitempty"`
	UploaderID   *int    `json:"uploader_id,omitempty"`
	BatchID      *int    `json:"batch_id,omitempty"`

	ReviewStatus     QuestionStatus `json:"review_status"`
	ReviewNotes      *string        `json:"review_notes,omitempty"`
	ReviewedBy       *int           `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time     `json:"reviewed_at,omitempty"`
	DifficultyRating *int           `json:"difficulty_rating,omitempty"`

	// Ready is a derived, read-time flag: true when every image
	// description the question owns is fulfilled. Never stored.
	Ready bool `json:"ready"`

	ImageDescriptions []ImageDescription `json:"image_descriptions,omitempty"`
	Images            []QuestionImage    `json:"images,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Choices returns the populated choices keyed by label.
func (q *Question) Choices() map[string]string {
	out := make(map[string]string, len(ChoiceLabels))
	for label, v := range map[string]*string{
		"A": q.ChoiceA, "B": q.ChoiceB, "C": q.ChoiceC, "D": q.ChoiceD,
		"E": q.ChoiceE, "F": q.ChoiceF, "G": q.ChoiceG,
	} {
		if v != nil && *v != "" {
			out[label] = *v
		}
	}
	return out
}

// HasChoice reports whether the given label is populated.
func (q *Question) HasChoice(label string) bool {
	_, ok := q.Choices()[label]
	return ok
}

// CreateQuestionRequest is the payload for creating a single question.
type CreateQuestionRequest struct {
	QuestionText  string  `json:"question_text" binding:"required,min=1,max=5000"`
	ChoiceA       *string `json:"choice_a" binding:"omitempty,max=1000"`
	ChoiceB       *string `json:"choice_b" binding:"omitempty,max=1000"`
	ChoiceC       *string `json:"choice_c" binding:"omitempty,max=1000"`
	ChoiceD       *string `json:"choice_d" binding:"omitempty,max=1000"`
	ChoiceE       *string `json:"choice_e" binding:"omitempty,max=1000"`
	ChoiceF       *string `json:"choice_f" binding:"omitempty,max=1000"`
	ChoiceG       *string `json:"choice_g" binding:"omitempty,max=1000"`
	CorrectAnswer string  `json:"correct_answer" binding:"required,oneof=A B C D E F G"`
	Explanation   *string `json:"explanation" binding:"omitempty,max=10000"`
	ExamCategory  string  `json:"exam_category" binding:"required,max=100"`
	ExamType      string  `json:"exam_type" binding:"required,max=100"`
	Source        *string `json:"source" binding:"omitempty,max=500"`

	ImageDescriptions []CreateImageDescriptionRequest `json:"image_descriptions" binding:"omitempty,dive"`
}

// UpdateQuestionRequest is the payload for editing question content.
// Status fields are deliberately absent; those go through the review
// decision endpoint.
type UpdateQuestionRequest struct {
	QuestionText  string  `json:"question_text" binding:"required,min=1,max=5000"`
	ChoiceA       *string `json:"choice_a" binding:"omitempty,max=1000"`
	ChoiceB       *string `json:"choice_b" binding:"omitempty,max=1000"`
	ChoiceC       *string `json:"choice_c" binding:"omitempty,max=1000"`
	ChoiceD       *string `json:"choice_d" binding:"omitempty,max=1000"`
	ChoiceE       *string `json:"choice_e" binding:"omitempty,max=1000"`
	ChoiceF       *string `json:"choice_f" binding:"omitempty,max=1000"`
	ChoiceG       *string `json:"choice_g" binding:"omitempty,max=1000"`
	CorrectAnswer string  `json:"correct_answer" binding:"required,oneof=A B C D E F G"`
	Explanation   *string `json:"explanation" binding:"omitempty,max=10000"`
	ExamCategory  string  `json:"exam_category" binding:"required,max=100"`
	ExamType      string  `json:"exam_type" binding:"required,max=100"`
	Source        *string `json:"source" binding:"omitempty,max=500"`
}

// ReviewDecisionRequest is the payload for a reviewer decision on a
// question or an image.
type ReviewDecisionRequest struct {
	Status           string `json:"status" binding:"required,max=50"`
	Notes            string `json:"notes" binding:"omitempty,max=5000"`
	DifficultyRating *int   `json:"difficulty_rating" binding:"omitempty"`
}

// AssociateImageRequest links an existing image to a question.
type AssociateImageRequest struct {
	ImageID      uuid.UUID `json:"image_id" binding:"required"`
	DisplayOrder int       `json:"display_order" binding:"min=0"`
	UsageType    string    `json:"usage_type" binding:"required,oneof=question explanation"`
}
