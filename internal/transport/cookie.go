package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/pkg/config"
)

// Cookie names for the token pair. Clients never construct these; the
// browser carries them automatically.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookiePair transports the token pair as two independent cookies, each
// with its own max-age mirroring the TTL its token was minted with.
type CookiePair struct {
	cookie config.CookieConfig
}

// LoginResponse sets both cookies and responds 204.
func (t *CookiePair) LoginResponse(c *gin.Context, pair models.TokenPair) {
	c.SetSameSite(sameSiteMode(t.cookie.SameSite))
	c.SetCookie(AccessTokenCookie, pair.AccessToken, int(pair.AccessTTL.Seconds()), t.cookie.Path, t.cookie.Domain, t.cookie.Secure, t.cookie.HTTPOnly)
	c.SetCookie(RefreshTokenCookie, pair.RefreshToken, int(pair.RefreshTTL.Seconds()), t.cookie.Path, t.cookie.Domain, t.cookie.Secure, t.cookie.HTTPOnly)
	c.Status(http.StatusNoContent)
}

// LogoutResponse expires both cookies immediately and responds 204. This
// happens regardless of whether server-side revocation succeeded.
func (t *CookiePair) LogoutResponse(c *gin.Context) {
	c.SetSameSite(sameSiteMode(t.cookie.SameSite))
	c.SetCookie(AccessTokenCookie, "", -1, t.cookie.Path, t.cookie.Domain, t.cookie.Secure, t.cookie.HTTPOnly)
	c.SetCookie(RefreshTokenCookie, "", -1, t.cookie.Path, t.cookie.Domain, t.cookie.Secure, t.cookie.HTTPOnly)
	c.Status(http.StatusNoContent)
}

// AccessToken reads the access token cookie.
func (t *CookiePair) AccessToken(c *gin.Context) string {
	token, err := c.Cookie(AccessTokenCookie)
	if err != nil {
		return ""
	}
	return token
}

// RefreshToken reads the refresh token cookie.
func (t *CookiePair) RefreshToken(c *gin.Context) string {
	token, err := c.Cookie(RefreshTokenCookie)
	if err != nil {
		return ""
	}
	return token
}
