package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/referral-api/internal/models"
)

// ErrDuplicateCode is returned when an insert collides on the unique code
// value. Callers regenerate and retry.
var ErrDuplicateCode = errors.New("referral code value already exists")

// ReferralRepository provides database access for referral codes. It
// collaborates with the user store rather than extending it; referral
// queries never touch user rows except through explicit joins.
type ReferralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository creates a new instance of ReferralRepository.
func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// FindByCode returns a referral code by its code value.
func (r *ReferralRepository) FindByCode(ctx context.Context, code string) (*models.ReferralCode, error) {
	const query = `SELECT id, referrer_id, code, created_at, expired_at FROM referral_codes WHERE code = $1 LIMIT 1`
	var rc models.ReferralCode
	if err := r.db.GetContext(ctx, &rc, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find referral code: %w", err)
	}
	return &rc, nil
}

// Redeemed reports whether any user registered with the given code.
func (r *ReferralRepository) Redeemed(ctx context.Context, codeID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE referrer_id = $1)`
	var redeemed bool
	if err := r.db.GetContext(ctx, &redeemed, query, codeID); err != nil {
		return false, fmt.Errorf("check referral code redemption: %w", err)
	}
	return redeemed, nil
}

// HasActiveCode reports whether the user currently holds an unexpired,
// unredeemed code.
func (r *ReferralRepository) HasActiveCode(ctx context.Context, userID int64, now time.Time) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM referral_codes rc
		LEFT JOIN users u ON u.referrer_id = rc.id
		WHERE rc.referrer_id = $1
		  AND (rc.expired_at IS NULL OR rc.expired_at >= $2)
		  AND u.id IS NULL
	)`
	var active bool
	if err := r.db.GetContext(ctx, &active, query, userID, now); err != nil {
		return false, fmt.Errorf("check active referral code: %w", err)
	}
	return active, nil
}

// Create inserts a referral code and fills in the generated id.
func (r *ReferralRepository) Create(ctx context.Context, rc *models.ReferralCode) error {
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO referral_codes (referrer_id, code, created_at, expired_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query, rc.ReferrerID, rc.Code, rc.CreatedAt, rc.ExpiredAt).Scan(&rc.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create referral code: %w", err)
	}
	return nil
}

// DeleteOwned removes a code by id scoped to its owner. Returns
// sql.ErrNoRows when the owner holds no such code.
func (r *ReferralRepository) DeleteOwned(ctx context.Context, ownerID, id int64) error {
	const query = `DELETE FROM referral_codes WHERE referrer_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete referral code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete referral code: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LatestActiveByEmail returns the owner's most recently minted unexpired
// code, or sql.ErrNoRows when none exists.
func (r *ReferralRepository) LatestActiveByEmail(ctx context.Context, email string, now time.Time) (*models.ReferralCode, error) {
	const query = `SELECT rc.id, rc.referrer_id, rc.code, rc.created_at, rc.expired_at
		FROM referral_codes rc
		JOIN users u ON u.id = rc.referrer_id
		WHERE u.email = $1 AND (rc.expired_at IS NULL OR rc.expired_at >= $2)
		ORDER BY rc.created_at DESC
		LIMIT 1`
	var rc models.ReferralCode
	if err := r.db.GetContext(ctx, &rc, query, email, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find referral code by email: %w", err)
	}
	return &rc, nil
}

// ListReferrals returns the users who registered with any of the given
// referrer's codes, ordered by id.
func (r *ReferralRepository) ListReferrals(ctx context.Context, referrerUserID int64) ([]models.User, error) {
	const query = `SELECT id, email, password_hash, active, verified, referrer_id, created_at, updated_at
		FROM users
		WHERE referrer_id IN (SELECT id FROM referral_codes WHERE referrer_id = $1)
		ORDER BY id`
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, query, referrerUserID); err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return users, nil
}
