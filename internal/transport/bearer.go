package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/referral-api/internal/models"
)

// BearerPair transports the token pair in the response body; the access
// token returns via the Authorization header, the refresh token in the
// request body. Intended for non-browser clients.
type BearerPair struct{}

type bearerResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type bearerRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse writes both tokens as a JSON body.
func (t *BearerPair) LoginResponse(c *gin.Context, pair models.TokenPair) {
	c.JSON(http.StatusOK, bearerResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(pair.AccessTTL.Seconds()),
	})
}

// LogoutResponse responds 204; bearer clients discard tokens themselves.
func (t *BearerPair) LogoutResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// AccessToken reads the Authorization: Bearer header.
func (t *BearerPair) AccessToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RefreshToken reads the refresh token from the JSON request body. The
// body is restored so later binds still see it.
func (t *BearerPair) RefreshToken(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var req bearerRefreshRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}
