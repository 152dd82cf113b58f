// Package review holds the pure rules of the question and image review
// lifecycle: initial status assignment, decision validation, and the
// readiness predicate for the pending queue. Everything here is computed
// from values passed in; nothing touches the database.
package review

import (
	"errors"
	"strings"

	"github.com/echomed/echobank-backend/internal/model"
)

// Difficulty rating bounds, inclusive.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// SystemReturnNote is attached when a question is created with unfulfilled
// image requirements and parked in "returned".
const SystemReturnNote = "Question requires one or more images. Upload the described images to make it eligible for review."

// Validation errors surfaced before any state mutation.
var (
	ErrInvalidStatus        = errors.New("invalid review status")
	ErrNoteRequired         = errors.New("review notes are required for rejected or returned questions")
	ErrImageNoteRequired    = errors.New("review notes are required for rejected or needs-revision images")
	ErrDifficultyOutOfRange = errors.New("difficulty rating must be between 1 and 5")
	ErrCorrectAnswerChoice  = errors.New("correct answer must reference a populated choice")
)

// Decision is a reviewer's verdict on a pending question.
type Decision struct {
	Status     model.QuestionStatus
	Notes      string
	ReviewerID int
	Difficulty *int
}

// Validate checks the decision against the state machine rules:
// rejected/returned require a non-empty note, an optional difficulty rating
// must be in range, and the target status must be a known one. Setting
// "pending" is allowed so an authorized actor can reopen a closed question.
func (d Decision) Validate() error {
	if !d.Status.Valid() {
		return ErrInvalidStatus
	}
	switch d.Status {
	case model.QuestionRejected, model.QuestionReturned:
		if strings.TrimSpace(d.Notes) == "" {
			return ErrNoteRequired
		}
	}
	if d.Difficulty != nil && (*d.Difficulty < MinDifficulty || *d.Difficulty > MaxDifficulty) {
		return ErrDifficultyOutOfRange
	}
	return nil
}

// ImageDecision is a reviewer's verdict on an uploaded image.
type ImageDecision struct {
	Status     model.ImageStatus
	Notes      string
	ReviewerID int
}

// Validate mirrors Decision.Validate for the image lifecycle.
func (d ImageDecision) Validate() error {
	if !d.Status.Valid() {
		return ErrInvalidStatus
	}
	switch d.Status {
	case model.ImageRejected, model.ImageNeedsRevision:
		if strings.TrimSpace(d.Notes) == "" {
			return ErrImageNoteRequired
		}
	}
	return nil
}

// InitialStatus returns the creation status for a question and the system
// note to store with it: pending when no image requirement exists,
// returned with a system-generated note otherwise.
func InitialStatus(descriptionCount int) (model.QuestionStatus, string) {
	if descriptionCount == 0 {
		return model.QuestionPending, ""
	}
	return model.QuestionReturned, SystemReturnNote
}

// Fulfilled reports whether every image description is matched by at least
// one association sharing its usage role. A question with one satisfied and
// one unsatisfied requirement is NOT fulfilled.
func Fulfilled(descriptions []model.ImageDescription, links []model.QuestionImage) bool {
	for _, d := range descriptions {
		matched := false
		for _, l := range links {
			if l.UsageType == d.UsageType {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Ready reports whether a question qualifies for the pending-review queue:
// status pending AND every image description fulfilled.
func Ready(status model.QuestionStatus, descriptions []model.ImageDescription, links []model.QuestionImage) bool {
	if status != model.QuestionPending {
		return false
	}
	return Fulfilled(descriptions, links)
}

// SortKey derives the numeric queue ordering key from a display number,
// falling back to 0 when absent or non-numeric. Queues order by this key
// descending, then by creation time descending.
func SortKey(questionNumber string) int64 {
	s := strings.TrimSpace(questionNumber)
	if s == "" {
		return 0
	}
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int64(r-'0')
	}
	return n
}

// ValidateCorrectAnswer enforces the invariant that the correct-answer
// label names a populated choice.
func ValidateCorrectAnswer(q *model.Question) error {
	if !q.HasChoice(q.CorrectAnswer) {
		return ErrCorrectAnswerChoice
	}
	return nil
}
