package models

import "time"

// User represents an application user stored in the users table.
// ReferrerID references the referral code redeemed at registration; it is
// set at most once and never mutated afterwards.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	Verified     bool      `db:"verified" json:"verified"`
	ReferrerID   *int64    `db:"referrer_id" json:"referrer_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PublicUser is the externally visible projection of a user. The password
// hash never crosses this boundary.
type PublicUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Active   bool   `json:"active"`
	Verified bool   `json:"verified"`
}

// Public returns the safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Active:   u.Active,
		Verified: u.Verified,
	}
}
