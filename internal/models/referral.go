package models

import "time"

// ReferralCode represents a mintable referral code owned by a user.
// "Used" is a derived state: a code is used once any user row carries it
// as referrer_id. There is no stored flag.
type ReferralCode struct {
	ID         int64      `db:"id" json:"id"`
	ReferrerID int64      `db:"referrer_id" json:"referrer_id"`
	Code       string     `db:"code" json:"code"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ExpiredAt  *time.Time `db:"expired_at" json:"expired_at,omitempty"`
}

// Expired reports whether the code is past its expiration at the given
// instant. Codes without an expiration never expire.
func (rc *ReferralCode) Expired(now time.Time) bool {
	return rc.ExpiredAt != nil && rc.ExpiredAt.Before(now)
}

// ReferralCodeLookup is the public lookup result for GET /referral_code.
// Both fields are null when the queried user holds no redeemable code.
type ReferralCodeLookup struct {
	ID           *int64  `json:"id"`
	ReferralCode *string `json:"referral_code"`
}
