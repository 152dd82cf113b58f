package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/echomed/echobank-backend/internal/middleware"
	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/review"
	"github.com/echomed/echobank-backend/internal/service"
	"github.com/echomed/echobank-backend/internal/validator"
)

// QuestionHandler handles question CRUD, review decisions, the pending
// queue, image requirements and image associations.
type QuestionHandler struct {
	questionService *service.QuestionService
	userService     *service.UserService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, userService *service.UserService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, userService: userService}
}

// Create godoc
// POST /api/v1/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q := &model.Question{
		QuestionText:  req.QuestionText,
		ChoiceA:       req.ChoiceA,
		ChoiceB:       req.ChoiceB,
		ChoiceC:       req.ChoiceC,
		ChoiceD:       req.ChoiceD,
		ChoiceE:       req.ChoiceE,
		ChoiceF:       req.ChoiceF,
		ChoiceG:       req.ChoiceG,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		ExamCategory:  req.ExamCategory,
		ExamType:      req.ExamType,
		Source:        req.Source,
		UploaderID:    &claims.UserID,
	}
	descs := make([]model.ImageDescription, 0, len(req.ImageDescriptions))
	for _, d := range req.ImageDescriptions {
		descs = append(descs, model.ImageDescription{
			Description: d.Description,
			UsageType:   model.UsageType(d.UsageType),
			Modality:    d.Modality,
			EchoView:    d.EchoView,
			ImageType:   d.ImageType,
		})
	}

	if err := h.questionService.Create(c.Request.Context(), q, descs); err != nil {
		if errors.Is(err, review.ErrCorrectAnswerChoice) {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidAnswer)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// Get godoc
// GET /api/v1/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	q, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// List godoc
// GET /api/v1/questions?status=&exam_category=&exam_type=&batch_id=&page=&per_page=
func (h *QuestionHandler) List(c *gin.Context) {
	var f repository.QuestionFilter
	if v := c.Query("status"); v != "" {
		status := model.QuestionStatus(v)
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
	if v := c.Query("batch_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		f.BatchID = &id
	}
	if v := c.Query("uploader_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		f.UploaderID = &id
	}

	questions, pagination, err := h.questionService.List(c.Request.Context(), f, queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// PendingQueue godoc
// GET /api/v1/questions/pending
// Lists pending questions whose image requirements are all fulfilled,
// ordered by descending question number.
func (h *QuestionHandler) PendingQueue(c *gin.Context) {
	questions, pagination, err := h.questionService.PendingQueue(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// Update godoc
// PUT /api/v1/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q := &model.Question{
		ID:            id,
		QuestionText:  req.QuestionText,
		ChoiceA:       req.ChoiceA,
		ChoiceB:       req.ChoiceB,
		ChoiceC:       req.ChoiceC,
		ChoiceD:       req.ChoiceD,
		ChoiceE:       req.ChoiceE,
		ChoiceF:       req.ChoiceF,
		ChoiceG:       req.ChoiceG,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		ExamCategory:  req.ExamCategory,
		ExamType:      req.ExamType,
		Source:        req.Source,
	}

	canReview := claims.HasCapability(model.CapQuestionsReview)
	if err := h.questionService.UpdateContent(c.Request.Context(), q, claims.UserID, canReview); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotOwner):
			response.Fail(c, http.StatusForbidden, response.ErrNotOwner)
		case errors.Is(err, review.ErrCorrectAnswerChoice):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidAnswer)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// Review godoc
// POST /api/v1/questions/:id/review
// Applies a reviewer decision: approve, reject, return, or reopen.
func (h *QuestionHandler) Review(c *gin.Context) {
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

	d := review.Decision{
		Status:     model.QuestionStatus(req.Status),
		Notes:      req.Notes,
		ReviewerID: claims.UserID,
		Difficulty: req.DifficultyRating,
	}
	if err := h.questionService.ApplyReview(c.Request.Context(), id, d); err != nil {
		switch {
		case errors.Is(err, review.ErrInvalidStatus):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidStatus)
		case errors.Is(err, review.ErrNoteRequired):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoteRequired)
		case errors.Is(err, review.ErrDifficultyOutOfRange):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidDifficult)
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
// DELETE /api/v1/questions/:id
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AddDescription godoc
// POST /api/v1/questions/:id/descriptions
// Counts against the contributor quota like an image upload does.
func (h *QuestionHandler) AddDescription(c *gin.Context) {
	claims := middleware.GetClaims(c)
	uploader, err := h.userService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CreateImageDescriptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	d := &model.ImageDescription{
		QuestionID:  id,
		Description: req.Description,
		UsageType:   model.UsageType(req.UsageType),
		Modality:    req.Modality,
		EchoView:    req.EchoView,
		ImageType:   req.ImageType,
	}
	if err := h.questionService.AddDescription(c.Request.Context(), d, uploader); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsage):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidUsage)
		case errors.Is(err, service.ErrQuotaExceeded):
			response.Fail(c, http.StatusForbidden, response.ErrQuotaExceeded)
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"description": d})
}

// DeleteDescription godoc
// DELETE /api/v1/questions/:id/descriptions/:descriptionID
func (h *QuestionHandler) DeleteDescription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	descID, err := strconv.Atoi(c.Param("descriptionID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.DeleteDescription(c.Request.Context(), id, descID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AssociateImage godoc
// POST /api/v1/questions/:id/images
// Links an approved image asset; the question's derived ready flag
// reflects the fulfillment on the next read.
func (h *QuestionHandler) AssociateImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AssociateImageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	link := &model.QuestionImage{
		QuestionID:   id,
		ImageID:      req.ImageID,
		DisplayOrder: req.DisplayOrder,
		UsageType:    model.UsageType(req.UsageType),
	}
	if err := h.questionService.AssociateImage(c.Request.Context(), link); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsage):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidUsage)
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"link": link})
}

// RemoveImage godoc
// DELETE /api/v1/questions/:id/images/:imageID
func (h *QuestionHandler) RemoveImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	imageID, err := uuid.Parse(c.Param("imageID"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questionService.RemoveImage(c.Request.Context(), id, imageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
