package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/internal/repository"
	appErrors "github.com/noah-isme/referral-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail   map[string]*models.User
	byID      map[int64]*models.User
	createErr error
	created   *models.User
	auditLogs []*models.AuditLog
	nextID    int64
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	user.ID = m.nextID
	m.created = user
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockReferralLookup struct {
	byCode   map[string]*models.ReferralCode
	redeemed map[int64]bool
}

func (m *mockReferralLookup) FindByCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	if rc, ok := m.byCode[code]; ok {
		return rc, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReferralLookup) Redeemed(ctx context.Context, codeID int64) (bool, error) {
	return m.redeemed[codeID], nil
}

type mockTokenStore struct {
	tokens   map[string]int64
	issueErr error
	nextID   int
}

func (m *mockTokenStore) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	if m.issueErr != nil {
		return "", m.issueErr
	}
	if m.tokens == nil {
		m.tokens = make(map[string]int64)
	}
	m.nextID++
	token := "token-" + string(rune('a'+m.nextID))
	m.tokens[token] = userID
	return token, nil
}

func (m *mockTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	userID, ok := m.tokens[token]
	if !ok {
		return 0, repository.ErrTokenNotFound
	}
	delete(m.tokens, token)
	return userID, nil
}

func (m *mockTokenStore) Revoke(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func newAuthService(users *mockUserRepo, referrals *mockReferralLookup, tokens *mockTokenStore, cfg AuthConfig) *AuthService {
	if cfg.Secret == "" {
		cfg.Secret = "secret"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = 5 * time.Minute
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = time.Hour
	}
	return NewAuthService(users, referrals, tokens, validator.New(), zap.NewNop(), nil, cfg)
}

func hashPassword(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegisterSuccess(t *testing.T) {
	users := &mockUserRepo{byEmail: map[string]*models.User{}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	public, err := svc.Register(context.Background(), models.RegisterRequest{Email: "new@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", public.Email)
	assert.True(t, public.Active)
	require.NotNil(t, users.created)
	assert.Nil(t, users.created.ReferrerID)
	assert.NotEqual(t, "password", users.created.PasswordHash)
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, users.auditLogs[0].Action)
}

func TestRegisterWithReferralCode(t *testing.T) {
	users := &mockUserRepo{byEmail: map[string]*models.User{}}
	referrals := &mockReferralLookup{
		byCode:   map[string]*models.ReferralCode{"goodcode12345678": {ID: 3, ReferrerID: 1, Code: "goodcode12345678"}},
		redeemed: map[int64]bool{},
	}
	svc := newAuthService(users, referrals, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "new@example.com", Password: "password", ReferralCode: "goodcode12345678"})
	require.NoError(t, err)
	require.NotNil(t, users.created.ReferrerID)
	assert.Equal(t, int64(3), *users.created.ReferrerID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := &mockUserRepo{byEmail: map[string]*models.User{
		"taken@example.com": {ID: 1, Email: "taken@example.com"},
	}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "taken@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUserAlreadyExists.Code, appErrors.FromError(err).Code)
}

func TestRegisterReferralCodeNotFound(t *testing.T) {
	users := &mockUserRepo{byEmail: map[string]*models.User{}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "new@example.com", Password: "password", ReferralCode: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferralCodeNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterReferralCodeExpired(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	users := &mockUserRepo{byEmail: map[string]*models.User{}}
	referrals := &mockReferralLookup{
		byCode: map[string]*models.ReferralCode{"stale": {ID: 3, Code: "stale", ExpiredAt: &expired}},
	}
	svc := newAuthService(users, referrals, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "new@example.com", Password: "password", ReferralCode: "stale"})
	require.Error(t, err)
	// Expired codes are indistinguishable from absent ones.
	assert.Equal(t, appErrors.ErrReferralCodeNotFound.Code, appErrors.FromError(err).Code)
}

func TestRegisterReferralCodeAlreadyUsed(t *testing.T) {
	users := &mockUserRepo{byEmail: map[string]*models.User{}}
	referrals := &mockReferralLookup{
		byCode:   map[string]*models.ReferralCode{"used": {ID: 3, Code: "used"}},
		redeemed: map[int64]bool{3: true},
	}
	svc := newAuthService(users, referrals, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "new@example.com", Password: "password", ReferralCode: "used"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferralCodeUsed.Code, appErrors.FromError(err).Code)
}

func TestLoginSuccess(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: true}
	users := &mockUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	tokens := &mockTokenStore{}
	svc := newAuthService(users, &mockReferralLookup{}, tokens, AuthConfig{})

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 5*time.Minute, pair.AccessTTL)
	assert.Equal(t, int64(1), tokens.tokens[pair.RefreshToken])
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, users.auditLogs[0].Action)
}

func TestLoginBadPassword(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: true}
	users := &mockUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	users := &mockUserRepo{byEmail: map[string]*models.User{}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	require.Error(t, err)
	// Same code as a bad password so the response does not reveal
	// whether the account exists.
	assert.Equal(t, appErrors.ErrBadCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: false}
	users := &mockUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBadCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnverifiedAccount(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com", PasswordHash: hashPassword(t, "password"), Active: true, Verified: false}
	users := &mockUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{RequireVerified: true})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUserNotVerified.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesPair(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com", Active: true}
	users := &mockUserRepo{byID: map[int64]*models.User{1: user}}
	tokens := &mockTokenStore{tokens: map[string]int64{"old-token": 1}}
	svc := newAuthService(users, &mockReferralLookup{}, tokens, AuthConfig{})

	pair, err := svc.Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, "old-token", pair.RefreshToken)

	_, consumed := tokens.tokens["old-token"]
	assert.False(t, consumed)

	// The consumed token cannot be replayed.
	_, err = svc.Refresh(context.Background(), "old-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
}

func TestRefreshEmptyToken(t *testing.T) {
	svc := newAuthService(&mockUserRepo{}, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	_, err := svc.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
}

func TestRefreshDeletedUser(t *testing.T) {
	users := &mockUserRepo{byID: map[int64]*models.User{}}
	tokens := &mockTokenStore{tokens: map[string]int64{"orphan": 99}}
	svc := newAuthService(users, &mockReferralLookup{}, tokens, AuthConfig{})

	_, err := svc.Refresh(context.Background(), "orphan")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
}

func TestRefreshInactiveUser(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com", Active: false}
	users := &mockUserRepo{byID: map[int64]*models.User{1: user}}
	tokens := &mockTokenStore{tokens: map[string]int64{"token": 1}}
	svc := newAuthService(users, &mockReferralLookup{}, tokens, AuthConfig{})

	_, err := svc.Refresh(context.Background(), "token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	users := &mockUserRepo{}
	tokens := &mockTokenStore{tokens: map[string]int64{"token": 1}}
	svc := newAuthService(users, &mockReferralLookup{}, tokens, AuthConfig{})

	svc.Logout(context.Background(), "token", 1, "127.0.0.1", "test")
	assert.Empty(t, tokens.tokens)
	require.Len(t, users.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogout, users.auditLogs[0].Action)
}

func TestMe(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com", PasswordHash: "hash", Active: true}
	users := &mockUserRepo{byID: map[int64]*models.User{1: user}}
	svc := newAuthService(users, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})

	public, err := svc.Me(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", public.Email)

	_, err = svc.Me(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUserNotFound.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	svc := newAuthService(&mockUserRepo{}, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{})
	user := &models.User{ID: 42, Email: "user@example.com"}

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := newAuthService(&mockUserRepo{}, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{Secret: "one"})
	verifier := newAuthService(&mockUserRepo{}, &mockReferralLookup{}, &mockTokenStore{}, AuthConfig{Secret: "two"})

	token, err := issuer.generateAccessToken(&models.User{ID: 1, Email: "user@example.com"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
