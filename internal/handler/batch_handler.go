package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/echomed/echobank-backend/internal/middleware"
	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/service"
	"github.com/echomed/echobank-backend/internal/validator"
)

// BatchHandler handles CSV batch imports and batch management.
type BatchHandler struct {
	importService *service.ImportService
	batchRepo     *repository.BatchRepository
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(importService *service.ImportService, batchRepo *repository.BatchRepository) *BatchHandler {
	return &BatchHandler{importService: importService, batchRepo: batchRepo}
}

// Import godoc
// POST /api/v1/batches
// Multipart: "file" is the CSV, plus batch metadata form fields.
func (h *BatchHandler) Import(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateBatchRequest
	if fields := validator.BindForm(c, &req); fields != nil {
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

	batch := &model.UploadBatch{
		Name:        req.Name,
		Description: req.Description,
		SourceFile:  fileHeader.Filename,
		ISBN:        req.ISBN,
		PageRange:   req.PageRange,
		Chapter:     req.Chapter,
	}

	result, err := h.importService.Import(
		c.Request.Context(),
		file,
		batch,
		claims.UserID,
		c.PostForm("exam_category"),
		c.PostForm("exam_type"),
	)
	if err != nil {
		if errors.Is(err, service.ErrMissingHeader) || errors.Is(err, service.ErrEmptyCSV) {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrCSVInvalid)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// List godoc
// GET /api/v1/batches
func (h *BatchHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	batches, total, err := h.batchRepo.List(c.Request.Context(), perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	pagination := &response.Pagination{Page: page, PerPage: perPage}
	pagination.Fill(total)
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"batches": batches}, pagination)
}

// Get godoc
// GET /api/v1/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	batch, err := h.batchRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}

// Delete godoc
// DELETE /api/v1/batches/:id
// Questions in the batch are deleted by the foreign key cascade.
func (h *BatchHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.batchRepo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
