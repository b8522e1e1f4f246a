package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/referral-api/internal/models"
	"github.com/noah-isme/referral-api/internal/repository"
	appErrors "github.com/noah-isme/referral-api/pkg/errors"
)

const codeGenerationAttempts = 5

type referralRepository interface {
	HasActiveCode(ctx context.Context, userID int64, now time.Time) (bool, error)
	Create(ctx context.Context, rc *models.ReferralCode) error
	DeleteOwned(ctx context.Context, ownerID, id int64) error
	LatestActiveByEmail(ctx context.Context, email string, now time.Time) (*models.ReferralCode, error)
	Redeemed(ctx context.Context, codeID int64) (bool, error)
	ListReferrals(ctx context.Context, referrerUserID int64) ([]models.User, error)
}

type referralUserRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateReferralCodeRequest is the payload for minting a code. ExpiredAt
// defaults to the configured TTL when omitted.
type CreateReferralCodeRequest struct {
	ExpiredAt *time.Time `json:"expired_at,omitempty"`
	IP        string     `json:"-"`
	UserAgent string     `json:"-"`
}

// ReferralConfig governs referral code minting.
type ReferralConfig struct {
	CodeLength int
	DefaultTTL time.Duration
}

// ReferralService handles minting, deletion and lookup of referral codes.
type ReferralService struct {
	repo      referralRepository
	users     referralUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    ReferralConfig
}

// NewReferralService creates an instance of ReferralService.
func NewReferralService(repo referralRepository, users referralUserRepository, validate *validator.Validate, logger *zap.Logger, config ReferralConfig) *ReferralService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CodeLength <= 0 {
		config.CodeLength = 16
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 7 * 24 * time.Hour
	}
	return &ReferralService{repo: repo, users: users, validator: validate, logger: logger, config: config}
}

// CreateCode mints a new referral code for the owner. A user holds at most
// one unused, unexpired code at a time; the check-then-act window here is
// accepted, the unique index on the code value is the only hard guarantee.
func (s *ReferralService) CreateCode(ctx context.Context, ownerID int64, req CreateReferralCodeRequest) (*models.ReferralCode, error) {
	now := time.Now().UTC()

	expiredAt := now.Add(s.config.DefaultTTL)
	if req.ExpiredAt != nil {
		expiredAt = req.ExpiredAt.UTC()
	}
	if !expiredAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expiration date must not be already expired")
	}

	active, err := s.repo.HasActiveCode(ctx, ownerID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check active referral code")
	}
	if active {
		return nil, appErrors.ErrActiveReferralCode
	}

	rc := &models.ReferralCode{
		ReferrerID: ownerID,
		CreatedAt:  now,
		ExpiredAt:  &expiredAt,
	}

	for attempt := 0; ; attempt++ {
		code, err := generateCode(s.config.CodeLength)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate referral code")
		}
		rc.Code = code

		err = s.repo.Create(ctx, rc)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateCode) && attempt < codeGenerationAttempts-1 {
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create referral code")
	}

	s.audit(ctx, ownerID, models.AuditActionReferralCreate, rc.ID, req.IP, req.UserAgent)

	return rc, nil
}

// DeleteCode removes a code owned by the caller.
func (s *ReferralService) DeleteCode(ctx context.Context, ownerID, id int64) error {
	if err := s.repo.DeleteOwned(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.WithStatus(appErrors.ErrReferralCodeNotFound, http.StatusNotFound)
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to delete referral code")
	}

	s.audit(ctx, ownerID, models.AuditActionReferralDelete, id, "", "")

	return nil
}

// LookupByEmail returns the redeemable code currently held by the user
// with the given email. Both fields of the result are null when the user
// holds none, the latest code expired, or it was already redeemed.
func (s *ReferralService) LookupByEmail(ctx context.Context, email string) (*models.ReferralCodeLookup, error) {
	if err := s.validator.Var(email, "required,email"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email address")
	}

	rc, err := s.repo.LatestActiveByEmail(ctx, email, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ReferralCodeLookup{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to look up referral code")
	}

	redeemed, err := s.repo.Redeemed(ctx, rc.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check referral code usage")
	}
	if redeemed {
		return &models.ReferralCodeLookup{}, nil
	}

	return &models.ReferralCodeLookup{ID: &rc.ID, ReferralCode: &rc.Code}, nil
}

// Referrals lists the users who registered with any code minted by the
// given referrer.
func (s *ReferralService) Referrals(ctx context.Context, referrerID int64) ([]models.PublicUser, error) {
	exists, err := s.users.Exists(ctx, referrerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check user")
	}
	if !exists {
		return nil, appErrors.ErrUserNotFound
	}

	users, err := s.repo.ListReferrals(ctx, referrerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list referrals")
	}

	result := make([]models.PublicUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].Public())
	}
	return result, nil
}

// generateCode produces a url-safe random string of the requested length.
// Three quarters of the length in random bytes encodes to exactly the
// requested number of base64url characters for lengths divisible by four.
func generateCode(length int) (string, error) {
	buf := make([]byte, length*3/4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := base64.RawURLEncoding.EncodeToString(buf)
	if len(code) > length {
		code = code[:length]
	}
	return code, nil
}

func (s *ReferralService) audit(ctx context.Context, ownerID int64, action string, codeID int64, ip, userAgent string) {
	owner := strconv.FormatInt(ownerID, 10)
	resource := strconv.FormatInt(codeID, 10)
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &owner,
		Action:     action,
		Resource:   "referral_code",
		ResourceID: &resource,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
