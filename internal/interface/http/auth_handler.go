package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-ems-backend/internal/application"
	repo "github.com/oksasatya/go-ems-backend/internal/domain/repository"
	"github.com/oksasatya/go-ems-backend/pkg/helpers"
	"github.com/oksasatya/go-ems-backend/pkg/response"
	"github.com/oksasatya/go-ems-backend/pkg/validation"
)

type AuthHandler struct {
	Svc     *userapp.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *userapp.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,notblank"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,notblank,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(requestContext(c), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
			return
		}
		helpers.LogError(h.Logger, "register failed", err, logrus.Fields{"request_id": c.GetString("request_id")})
		response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	c.JSON(http.StatusOK, toAuthResponse(u))
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, pair, err := h.Svc.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userapp.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		helpers.LogError(h.Logger, "login failed", err, logrus.Fields{"request_id": c.GetString("request_id")})
		response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		return
	}
	if pair.AccessToken != "" {
		h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	}
	c.JSON(http.StatusOK, toAuthResponse(u))
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refresh, err := c.Cookie(helpers.RefreshCookie)
	if err != nil || refresh == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, _, err := h.Svc.Refresh(c.Request.Context(), refresh)
	if err != nil {
		if !errors.Is(err, userapp.ErrInvalidCredentials) {
			helpers.LogError(h.Logger, "refresh failed", err, nil)
		}
		response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success[any](c, http.StatusOK, gin.H{"refreshed": true}, "token refreshed", gin.H{"access_expires_at": pair.AccessTokenExpiry, "refresh_expires_at": pair.RefreshTokenExpiry})
}

// Logout POST /api/auth/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString("userID")
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		helpers.LogWarn(h.Logger, "drop session failed", err, logrus.Fields{"user_id": uid})
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// Me GET /api/auth/me (auth required)
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Svc.FindByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		if errors.Is(err, userapp.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		helpers.LogError(h.Logger, "load profile failed", err, nil)
		response.Error[any](c, http.StatusInternalServerError, "failed to load profile", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserView(u), "profile", nil)
}
