package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echomed/echobank-backend/internal/middleware"
	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/review"
	"github.com/echomed/echobank-backend/internal/service"
	"github.com/echomed/echobank-backend/internal/storage"
	"github.com/echomed/echobank-backend/internal/validator"
)

// ImageHandler handles image asset uploads, metadata and review.
type ImageHandler struct {
	imageService *service.ImageService
	userService  *service.UserService
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(imageService *service.ImageService, userService *service.UserService) *ImageHandler {
	return &ImageHandler{imageService: imageService, userService: userService}
}

// Upload godoc
// POST /api/v1/images
/// Multipart upload: "file" plus metadata form fields.
func (h *ImageHandler) Upload(c *gin.Context) {
	claims := middleware.GetClaims(c)
	uploader, err := h.userService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	var meta model.UploadImageMetaRequest
	if fields := validator.BindForm(c, &meta); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	defer file.Close()

	img, err := h.imageService.Upload(
		c.Request.Context(),
		file,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		&meta,
		uploader,
	)
	if err != nil {
		h.failUpload(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"image": img})
}

// UploadFromURL godoc
// POST /api/v1/images/url
// Imports an image by fetching a remote URL server-side.
func (h *ImageHandler) UploadFromURL(c *gin.Context) {
	claims := middleware.GetClaims(c)
	uploader, err := h.userService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	var req model.UploadImageURLRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	img, err := h.imageService.UploadFromURL(c.Request.Context(), &req, uploader)
	if err != nil {
		if errors.Is(err, service.ErrRemoteFetch) {
			response.Fail(c, http.StatusBadGateway, response.ErrRemoteFetch)
			return
		}
		h.failUpload(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"image": img})
}

func (h *ImageHandler) failUpload(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrUnsupportedFileType):
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
	case errors.Is(err, storage.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	case errors.Is(err, service.ErrInvalidLicense):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidLicense)
	case errors.Is(err, service.ErrQuotaExceeded):
		response.Fail(c, http.StatusForbidden, response.ErrQuotaExceeded)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Get godoc
// GET /api/v1/images/:id
func (h *ImageHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	img, err := h.imageService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"image": img})
}

// List godoc
// GET /api/v1/images?status=&exam_category=&exam_type=&is_cine=&page=&per_page=
func (h *ImageHandler) List(c *gin.Context) {
	var f repository.ImageFilter
	if v := c.Query("status"); v != "" {
		status := model.ImageStatus(v)
		if !status.Valid() {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidStatus)
			return
		}
		f.Status = status
	}
	if v := c.Query("exam_category"); v != "" {
		f.ExamCategory = v
	}
	if v := c.Query("exam_type"); v != "" {
		f.ExamType = v
	}
	if v := c.Query("is_cine"); v != "" {
		isCine := v == "true" || v == "1"
		f.IsCine = &isCine
	}

	images, pagination, err := h.imageService.List(c.Request.Context(), f, queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"images": images}, pagination)
}

// Update godoc
// PUT /api/v1/images/:id
func (h *ImageHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateImageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	img, err := h.imageService.UpdateMeta(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrInvalidLicense):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidLicense)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"image": img})
}

// Review godoc
// POST /api/v1/images/:id/review
func (h *ImageHandler) Review(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReviewDecisionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	d := review.ImageDecision{
		Status:     model.ImageStatus(req.Status),
		Notes:      req.Notes,
		ReviewerID: claims.UserID,
	}
	if err := h.imageService.ApplyReview(c.Request.Context(), id, d); err != nil {
		switch {
		case errors.Is(err, review.ErrInvalidStatus):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidStatus)
		case errors.Is(err, review.ErrImageNoteRequired):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoteRequired)
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// Delete godoc
// DELETE /api/v1/images/:id
// Removes the database row and, for remotely stored assets, the object.
func (h *ImageHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.imageService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
