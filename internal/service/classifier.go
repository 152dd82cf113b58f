package service

import "context"

// Metadata is a classifier's suggestion for a question's exam placement
// and imaging context. Empty fields mean no suggestion.
type Metadata struct {
	ExamCategory string `json:"exam_category,omitempty"`
	ExamType     string `json:"exam_type,omitempty"`
	Modality     string `json:"modality,omitempty"`
	EchoView     string `json:"echo_view,omitempty"`
	ImageType    string `json:"image_type,omitempty"`
}

// Classifier suggests metadata for free-text question content. The
// suggestion is advisory; nothing downstream depends on it being right.
type Classifier interface {
	Classify(ctx context.Context, questionText string) (Metadata, error)
}
