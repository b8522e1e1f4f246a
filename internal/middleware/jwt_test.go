package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/internal/transport"
	"github.com/noah-isme/referral-api/pkg/config"
	appErrors "github.com/noah-isme/referral-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
}

func (v *validatorStub) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func newProtectedRouter(v tokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tr := transport.New(config.AuthConfig{Transport: config.TransportCookie})
	r := gin.New()
	r.GET("/protected", JWT(v, tr), func(c *gin.Context) {
		claims := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func TestJWTMissingToken(t *testing.T) {
	r := newProtectedRouter(&validatorStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTInvalidToken(t *testing.T) {
	r := newProtectedRouter(&validatorStub{err: appErrors.ErrUnauthorized})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: transport.AccessTokenCookie, Value: "garbage"})
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTValidToken(t *testing.T) {
	r := newProtectedRouter(&validatorStub{claims: &models.JWTClaims{UserID: 7, Email: "user@example.com"}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: transport.AccessTokenCookie, Value: "valid"})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
}

func TestCurrentUserAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
}
