package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/referral-api/internal/middleware"
	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/internal/transport"
	appErrors "github.com/noah-isme/referral-api/pkg/errors"
	"github.com/noah-isme/referral-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.PublicUser, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, refreshToken string, userID int64, ip, userAgent string)
	Me(ctx context.Context, userID int64) (*models.PublicUser, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service   authService
	transport transport.Transport
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, tr transport.Transport) *AuthHandler {
	return &AuthHandler{service: svc, transport: tr}
}

// Register godoc
// @Summary Register user
// @Description Create an account, optionally redeeming a referral code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} models.PublicUser
// @Failure 400 {object} response.ErrorBody
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password; issues an access/refresh token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 204
// @Failure 400 {object} response.ErrorBody
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.transport.LoginResponse(c, *pair)
}

// Refresh godoc
// @Summary Rotate token pair
// @Description Exchange the refresh token for a new access/refresh pair
// @Tags Authentication
// @Produce json
// @Success 204
// @Failure 401 {object} response.ErrorBody
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.transport.RefreshToken(c)

	pair, err := h.service.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.transport.LoginResponse(c, *pair)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the refresh token and clear both transport artifacts
// @Tags Authentication
// @Produce json
// @Success 204
// @Failure 401 {object} response.ErrorBody
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	refreshToken := h.transport.RefreshToken(c)
	h.service.Logout(c.Request.Context(), refreshToken, claims.UserID, c.ClientIP(), c.GetHeader("User-Agent"))

	h.transport.LogoutResponse(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's public profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.PublicUser
// @Failure 401 {object} response.ErrorBody
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.service.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user)
}
