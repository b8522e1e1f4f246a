package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/internal/transport"
	appErrors "github.com/noah-isme/referral-api/pkg/errors"
	"github.com/noah-isme/referral-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token. The token is
// extracted through the configured transport, so the same middleware
// serves both the cookie and bearer variants.
func JWT(authService tokenValidator, tr transport.Transport) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tr.AccessToken(c)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentUser returns the claims stored by the JWT middleware, or nil.
func CurrentUser(c *gin.Context) *models.JWTClaims {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
