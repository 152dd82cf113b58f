package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/service"
	"github.com/echomed/echobank-backend/internal/validator"
)

// ClassifyRequest carries the free text to classify.
type ClassifyRequest struct {
	QuestionText string `json:"question_text" binding:"required,min=1,max=10000"`
}

// ClassifyHandler exposes metadata suggestions for question text.
type ClassifyHandler struct {
	classifier service.Classifier
}

// NewClassifyHandler creates a new ClassifyHandler.
func NewClassifyHandler(classifier service.Classifier) *ClassifyHandler {
	return &ClassifyHandler{classifier: classifier}
}

// Classify godoc
// POST /api/v1/classify
// Returns suggested exam category, type, modality, echo view and image
// type. Suggestions are advisory; empty fields mean no opinion.
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	meta, err := h.classifier.Classify(c.Request.Context(), req.QuestionText)
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrUnavailable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"suggestion": meta})
}
