package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-ems-backend/internal/application"
	repo "github.com/oksasatya/go-ems-backend/internal/domain/repository"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
	"github.com/oksasatya/go-ems-backend/pkg/response"
	"github.com/oksasatya/go-ems-backend/pkg/validation"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type userRequest struct {
	Name   string  `json:"name" binding:"required,notblank"`
	Email  string  `json:"email" binding:"required,email"`
	Avatar *string `json:"avatar" binding:"omitempty,avatarref"`
	Bio    *string `json:"bio" binding:"omitempty,biotext"`
}

func (r userRequest) toDTO() userapp.UserDTO {
	return userapp.UserDTO{Name: r.Name, Email: r.Email, Avatar: r.Avatar, Bio: r.Bio}
}

type searchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

// List GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.FindAll(c.Request.Context())
	if err != nil {
		h.internal(c, "list users failed", err)
		return
	}
	c.JSON(http.StatusOK, toUserViews(users))
}

// Get GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get user failed", err)
		return
	}
	c.JSON(http.StatusOK, toUserView(u))
}

// Create POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Create(c.Request.Context(), req.toDTO())
	if err != nil {
		h.fail(c, "create user failed", err)
		return
	}
	c.JSON(http.StatusCreated, toUserView(u))
}

// Update PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), c.Param("id"), req.toDTO())
	if err != nil {
		h.fail(c, "update user failed", err)
		return
	}
	c.JSON(http.StatusOK, toUserView(u))
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.internal(c, "delete user failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.internal(c, "search users failed", err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}

// UploadAvatar POST /api/users/:id/avatar (multipart field "file")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "file is required", nil)
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusBadRequest, "file too large", gin.H{"max_bytes": maxAvatarBytes})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error[any](c, http.StatusBadRequest, "file must be an image", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Svc.UploadAvatar(c.Request.Context(), c.Param("id"), f, fh.Filename, contentType)
	if err != nil {
		if errors.Is(err, userapp.ErrStorageUnavailable) {
			response.Error[any](c, http.StatusServiceUnavailable, "avatar storage unavailable", nil)
			return
		}
		h.fail(c, "upload avatar failed", err)
		return
	}
	c.JSON(http.StatusOK, toUserView(u))
}

// fail maps service errors onto status codes.
func (h *UserHandler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, userapp.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, repo.ErrDuplicateEmail):
		response.Error[any](c, http.StatusConflict, "email already exists", nil)
	default:
		h.internal(c, msg, err)
	}
}

func (h *UserHandler) internal(c *gin.Context, msg string, err error) {
	helpers.LogError(h.Logger, msg, err, logrus.Fields{"request_id": c.GetString("request_id")})
	response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
}
