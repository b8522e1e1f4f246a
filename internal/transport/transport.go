// Package transport serializes issued token pairs onto HTTP responses and
// reads them back from requests. Implementations know nothing about token
// contents; they move opaque strings.
package transport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/pkg/config"
)

// Transport binds a token pair to the wire. The variant is chosen by
// configuration at startup.
type Transport interface {
	// LoginResponse writes the success response carrying both tokens.
	LoginResponse(c *gin.Context, pair models.TokenPair)
	// LogoutResponse clears both transport artifacts unconditionally.
	LogoutResponse(c *gin.Context)
	// AccessToken extracts the access token from the request, or "".
	AccessToken(c *gin.Context) string
	// RefreshToken extracts the refresh token from the request, or "".
	RefreshToken(c *gin.Context) string
}

// New selects the transport variant from configuration.
func New(cfg config.AuthConfig) Transport {
	if cfg.Transport == config.TransportBearer {
		return &BearerPair{}
	}
	return &CookiePair{cookie: cfg.Cookie}
}

func sameSiteMode(raw string) http.SameSite {
	switch strings.ToLower(raw) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
