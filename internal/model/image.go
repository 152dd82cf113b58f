package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageStatus is the stored review state of an image, independent of any
// question's review state.
type ImageStatus string

const (
	ImagePending       ImageStatus = "pending"
	ImageApproved      ImageStatus = "approved"
	ImageRejected      ImageStatus = "rejected"
	ImageNeedsRevision ImageStatus = "needs_revision"
)

// Valid reports whether s is a known image status.
func (s ImageStatus) Valid() bool {
	switch s {
	case ImagePending, ImageApproved, ImageRejected, ImageNeedsRevision:
		return true
	}
	return false
}

// License identifies the usage license attached to an image.
type License string

const (
	LicenseCC0               License = "cc0"
	LicensePublicDomain      License = "public-domain"
	LicenseCCBY              License = "cc-by"
	LicenseCCBYSA            License = "cc-by-sa"
	LicenseCCBYNC            License = "cc-by-nc"
	LicenseAllRightsReserved License = "all-rights-reserved"
)

// licenseAttribution maps each known license to whether attribution is
// required when the image is displayed.
var licenseAttribution = map[License]bool{
	LicenseCC0:               false,
	LicensePublicDomain:      false,
	LicenseCCBY:              true,
	LicenseCCBYSA:            true,
	LicenseCCBYNC:            true,
	LicenseAllRightsReserved: true,
}

// Valid reports whether l is a known license.
func (l License) Valid() bool {
	_, ok := licenseAttribution[l]
	return ok
}

// RequiresAttribution reports whether the license demands attribution.
// Unknown licenses conservatively require it.
func (l License) RequiresAttribution() bool {
	req, ok := licenseAttribution[l]
	return !ok || req
}

// Image represents one media asset (still frame or cine clip) stored in
// external object storage, or a legacy local file.
type Image struct {
	ID           uuid.UUID `json:"id"`
	FilePath     string    `json:"file_path"`
	OriginalName string    `json:"original_name"`
	URL          string    `json:"url"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	IsCine       bool      `json:"is_cine"`
	Width        *int      `json:"width,omitempty"`
	Height       *int      `json:"height,omitempty"`
	Duration     *float64  `json:"duration_seconds,omitempty"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	License      License   `json:"license"`
	ExamCategory string    `json:"exam_category"`
	ExamType     string    `json:"exam_type"`
	UploaderID   *int      `json:"uploader_id,omitempty"`

	ReviewStatus ImageStatus `json:"review_status"`
	ReviewNotes  *string     `json:"review_notes,omitempty"`
	ReviewedBy   *int        `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time  `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// StoredRemotely reports whether the image lives in object storage.
// Any non-URL file_path marks a legacy local file; deletion must branch
// on this.
func (img *Image) StoredRemotely() bool {
	return strings.HasPrefix(img.FilePath, "http://") || strings.HasPrefix(img.FilePath, "https://")
}

// UploadImageMetaRequest carries the metadata fields of a multipart image
// upload (the file itself arrives as a form file).
type UploadImageMetaRequest struct {
	Description  string   `form:"description" binding:"omitempty,max=5000"`
	Tags         []string `form:"tags" binding:"omitempty,max=20,dive,max=100"`
	License      string   `form:"license" binding:"required,max=50"`
	ExamCategory string   `form:"exam_category" binding:"required,max=100"`
	ExamType     string   `form:"exam_type" binding:"required,max=100"`
	IsCine       bool     `form:"is_cine"`
}

// UploadImageURLRequest imports an image from a remote URL instead of a
// file upload.
type UploadImageURLRequest struct {
	URL          string   `json:"url" binding:"required,url,max=2000"`
	Description  string   `json:"description" binding:"omitempty,max=5000"`
	Tags         []string `json:"tags" binding:"omitempty,max=20,dive,max=100"`
	License      string   `json:"license" binding:"required,max=50"`
	ExamCategory string   `json:"exam_category" binding:"required,max=100"`
	ExamType     string   `json:"exam_type" binding:"required,max=100"`
	IsCine       bool     `json:"is_cine"`
}

// UpdateImageRequest edits image metadata.
type UpdateImageRequest struct {
	Description  string   `json:"description" binding:"omitempty,max=5000"`
	Tags         []string `json:"tags" binding:"omitempty,max=20,dive,max=100"`
	License      string   `json:"license" binding:"required,max=50"`
	ExamCategory string   `json:"exam_category" binding:"required,max=100"`
	ExamType     string   `json:"exam_type" binding:"required,max=100"`
	IsCine       bool     `json:"is_cine"`
}
