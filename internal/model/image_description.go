package model

import (
	"time"

	"github.com/google/uuid"
)

// UsageType says where an image (or an image requirement) is used: within
// the question stem or within the explanation.
type UsageType string

const (
	UsageQuestion    UsageType = "question"
	UsageExplanation UsageType = "explanation"
)

// Valid reports whether u is a known usage type.
func (u UsageType) Valid() bool {
	return u == UsageQuestion || u == UsageExplanation
}

// ImageDescription is a requirement placeholder: "this question needs an
// image satisfying this description". A QuestionImage with the same usage
// type fulfills it.
type ImageDescription struct {
	ID          int       `json:"id"`
	QuestionID  uuid.UUID `json:"question_id"`
	Description string    `json:"description"`
	UsageType   UsageType `json:"usage_type"`
	Modality    string    `json:"modality,omitempty"`
	EchoView    string    `json:"echo_view,omitempty"`
	// ImageType is the expected asset kind: "still" or "cine".
	ImageType string    `json:"image_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionImage links a question to an image with display order and usage
// role. Unique per (question, image); re-associating updates order and
// usage instead of duplicating.
type QuestionImage struct {
	QuestionID   uuid.UUID `json:"question_id"`
	ImageID      uuid.UUID `json:"image_id"`
	DisplayOrder int       `json:"display_order"`
	UsageType    UsageType `json:"usage_type"`

	// Image is populated on reads that join the asset row.
	Image *Image `json:"image,omitempty"`
}

// CreateImageDescriptionRequest declares an image requirement on a question.
type CreateImageDescriptionRequest struct {
	Description string `json:"description" binding:"required,min=1,max=5000"`
	UsageType   string `json:"usage_type" binding:"required,oneof=question explanation"`
	Modality    string `json:"modality" binding:"omitempty,max=100"`
	EchoView    string `json:"echo_view" binding:"omitempty,max=100"`
	ImageType   string `json:"image_type" binding:"omitempty,oneof=still cine"`
}
