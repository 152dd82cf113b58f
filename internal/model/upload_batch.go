package model

import "time"

// UploadBatch groups questions created from one CSV import.
type UploadBatch struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	UploaderID  *int    `json:"uploader_id,omitempty"`
	SourceFile  string  `json:"source_file"`
	Description string  `json:"description"`
	ISBN        *string `json:"isbn,omitempty"`
	PageRange   *string `json:"page_range,omitempty"`
	Chapter     *string `json:"chapter,omitempty"`
	// QuestionCount is denormalized; the import keeps it in sync and a
	// background reconciler corrects drift from partial imports.
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateBatchRequest carries the metadata fields of a CSV import (the CSV
// itself arrives as a form file).
type CreateBatchRequest struct {
	Name        string  `form:"name" binding:"required,min=1,max=255"`
	Description string  `form:"description" binding:"omitempty,max=5000"`
	ISBN        *string `form:"isbn" binding:"omitempty,max=20"`
	PageRange   *string `form:"page_range" binding:"omitempty,max=50"`
	Chapter     *string `form:"chapter" binding:"omitempty,max=100"`
}
