package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/internal/repository"
	appErrors "github.com/noah-isme/referral-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type authReferralRepository interface {
	FindByCode(ctx context.Context, code string) (*models.ReferralCode, error)
	Redeemed(ctx context.Context, codeID int64) (bool, error)
}

// refreshTokenStore is the Refresh Token Manager contract: opaque tokens
// mapped to user ids with a TTL, consumed atomically on rotation.
type refreshTokenStore interface {
	Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RequireVerified bool
}

// AuthService orchestrates registration, login, refresh and logout over
// the paired access/refresh tokens.
type AuthService struct {
	users     authUserRepository
	referrals authReferralRepository
	tokens    refreshTokenStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, referrals authReferralRepository, tokens refreshTokenStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:     users,
		referrals: referrals,
		tokens:    tokens,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		config:    config,
	}
}

// Register creates a new user, optionally linking a redeemed referral
// code. Check order for the code: existence and expiry first (an expired
// code reads as not found), then prior redemption.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.PublicUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.ErrUserAlreadyExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check email")
	}

	var referrerID *int64
	if req.ReferralCode != "" {
		code, err := s.referrals.FindByCode(ctx, req.ReferralCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrReferralCodeNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load referral code")
		}
		if code.Expired(time.Now().UTC()) {
			return nil, appErrors.ErrReferralCodeNotFound
		}

		redeemed, err := s.referrals.Redeemed(ctx, code.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check referral code usage")
		}
		if redeemed {
			return nil, appErrors.ErrReferralCodeUsed
		}
		referrerID = &code.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Active:       true,
		ReferrerID:   referrerID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.ErrUserAlreadyExists
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create user")
	}

	s.audit(ctx, user.ID, models.AuditActionRegister, req.IP, req.UserAgent, `{"status":"registered"}`)
	if s.metrics != nil {
		s.metrics.IncRegistration()
	}

	public := user.Public()
	return &public, nil
}

// Login authenticates credentials and returns a freshly issued token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrBadCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrBadCredentials
	}

	if s.config.RequireVerified && !user.Verified {
		return nil, appErrors.ErrUserNotVerified
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, models.AuditActionLogin, req.IP, req.UserAgent, `{"status":"success"}`)
	if s.metrics != nil {
		s.metrics.IncLogin()
	}

	return pair, nil
}

// Refresh rotates the pair: the presented refresh token is consumed
// atomically before new tokens are minted, so concurrent refreshes of the
// same token yield exactly one winner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, appErrors.ErrInvalidRefreshToken
	}

	userID, err := s.tokens.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, appErrors.ErrInvalidRefreshToken
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "token store unavailable")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Dangling reference: the user is gone, the token is dead.
			return nil, appErrors.ErrInvalidRefreshToken
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load user")
	}

	if !user.Active {
		return nil, appErrors.ErrInvalidRefreshToken
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, user.ID, models.AuditActionRefresh, "", "", `{"refresh":"rotated"}`)

	return pair, nil
}

// Logout revokes the refresh token. Revocation failures are logged, never
// surfaced: clearing the client-side artifacts must succeed regardless.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, userID int64, ip, userAgent string) {
	if refreshToken != "" {
		if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
			s.logger.Warn("failed to revoke refresh token", zap.Error(err))
		}
	}

	s.audit(ctx, userID, models.AuditActionLogout, ip, userAgent, `{"status":"logout"}`)
}

// Me returns the authenticated user's public profile.
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load user")
	}
	public := user.Public()
	return &public, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshToken, err := s.tokens.Issue(ctx, user.ID, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store refresh token")
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessTTL:    s.config.AccessTokenTTL,
		RefreshTTL:   s.config.RefreshTokenTTL,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) audit(ctx context.Context, userID int64, action, ip, userAgent, payload string) {
	id := strconv.FormatInt(userID, 10)
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &id,
		Action:     action,
		Resource:   "auth",
		ResourceID: &id,
		NewValues:  []byte(payload),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
