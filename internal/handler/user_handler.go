package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/echomed/echobank-backend/internal/config"
	"github.com/echomed/echobank-backend/internal/middleware"
	"github.com/echomed/echobank-backend/internal/model"
	"github.com/echomed/echobank-backend/internal/repository"
	"github.com/echomed/echobank-backend/internal/response"
	"github.com/echomed/echobank-backend/internal/service"
	"github.com/echomed/echobank-backend/internal/validator"
)

// UserHandler handles admin account management and registration tokens.
type UserHandler struct {
	userService *service.UserService
	cfg         *config.Config
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, cfg *config.Config) *UserHandler {
	return &UserHandler{userService: userService, cfg: cfg}
}

// Create godoc
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Fail(c, http.StatusConflict, response.ErrUsernameTaken)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// List godoc
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	users, pagination, err := h.userService.List(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"users": users}, pagination)
}

// Get godoc
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// Update godoc
// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// Deactivate godoc
// DELETE /api/v1/users/:id
// Soft-disables the account; history stays intact. hard=true removes the
// row entirely and is limited to admins.
func (h *UserHandler) Deactivate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	remove := h.userService.Deactivate
	if c.Query("hard") == "true" {
		claims := middleware.GetClaims(c)
		if claims == nil || !claims.HasCapability(model.CapAdmin) {
			response.Fail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
		remove = h.userService.HardDelete
	}

	if err := remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// CreateToken godoc
// POST /api/v1/users/tokens
// Mints a single-use registration token with a preset role.
func (h *UserHandler) CreateToken(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateTokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.userService.CreateToken(c.Request.Context(), model.TokenRole(req.Role), h.cfg.RegistrationTokenTTL, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"token": token})
}

// ListTokens godoc
// GET /api/v1/users/tokens
func (h *UserHandler) ListTokens(c *gin.Context) {
	tokens, err := h.userService.ListTokens(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "per_page", 20))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if tokens == nil {
		tokens = []model.RegistrationToken{}
	}

	response.Success(c, http.StatusOK, gin.H{"tokens": tokens})
}
