package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/referral-api/internal/middleware"
	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/internal/service"
	appErrors "github.com/noah-isme/referral-api/pkg/errors"
	"github.com/noah-isme/referral-api/pkg/response"
)

type referralService interface {
	CreateCode(ctx context.Context, ownerID int64, req service.CreateReferralCodeRequest) (*models.ReferralCode, error)
	DeleteCode(ctx context.Context, ownerID, id int64) error
	LookupByEmail(ctx context.Context, email string) (*models.ReferralCodeLookup, error)
	Referrals(ctx context.Context, referrerID int64) ([]models.PublicUser, error)
}

// ReferralHandler wires HTTP endpoints to the referral service.
type ReferralHandler struct {
	service referralService
}

// NewReferralHandler creates a new handler.
func NewReferralHandler(svc referralService) *ReferralHandler {
	return &ReferralHandler{service: svc}
}

// Create godoc
// @Summary Mint referral code
// @Description Create a referral code for the authenticated user
// @Tags Referral codes
// @Accept json
// @Produce json
// @Param payload body service.CreateReferralCodeRequest false "Optional expiration"
// @Success 201 {object} models.ReferralCode
// @Failure 400 {object} response.ErrorBody
// @Router /referral_code [post]
func (h *ReferralHandler) Create(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateReferralCodeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid referral code payload"))
			return
		}
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	code, err := h.service.CreateCode(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, code)
}

// Delete godoc
// @Summary Delete referral code
// @Description Delete a referral code owned by the authenticated user
// @Tags Referral codes
// @Produce json
// @Param id path int true "Referral code id"
// @Success 204
// @Failure 404 {object} response.ErrorBody
// @Router /referral_code/{id} [delete]
func (h *ReferralHandler) Delete(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid referral code id"))
		return
	}

	if err := h.service.DeleteCode(c.Request.Context(), claims.UserID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// GetByEmail godoc
// @Summary Look up referral code by email
// @Description Returns the redeemable code currently held by the user with the given email; null fields when none
// @Tags Referral codes
// @Produce json
// @Param email query string true "Email address"
// @Success 200 {object} models.ReferralCodeLookup
// @Failure 400 {object} response.ErrorBody
// @Router /referral_code [get]
func (h *ReferralHandler) GetByEmail(c *gin.Context) {
	lookup, err := h.service.LookupByEmail(c.Request.Context(), c.Query("email"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, lookup)
}

// Referrals godoc
// @Summary List referrals
// @Description Lists the users who registered with the given referrer's codes
// @Tags Referral codes
// @Produce json
// @Param id path int true "Referrer user id"
// @Success 200 {array} models.PublicUser
// @Failure 404 {object} response.ErrorBody
// @Router /referral_code/referrals/{id} [get]
func (h *ReferralHandler) Referrals(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid user id"))
		return
	}

	referrals, err := h.service.Referrals(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, referrals)
}
