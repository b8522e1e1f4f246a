package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the auth and referral flows. Codes are stable and
// machine-readable; clients match on Code, not Message.
var (
	ErrBadCredentials       = New("LOGIN_BAD_CREDENTIALS", http.StatusBadRequest, "invalid email or password")
	ErrUserNotVerified      = New("LOGIN_USER_NOT_VERIFIED", http.StatusBadRequest, "account is not verified")
	ErrInvalidRefreshToken  = New("INVALID_REFRESH_TOKEN", http.StatusUnauthorized, "invalid refresh token, please login again")
	ErrUserAlreadyExists    = New("USER_ALREADY_EXISTS", http.StatusBadRequest, "a user with this email already exists")
	ErrUserNotFound         = New("USER_NOT_FOUND", http.StatusNotFound, "user with entered id not found")
	ErrReferralCodeNotFound = New("REFERRAL_CODE_NOT_FOUND", http.StatusBadRequest, "referral code does not exist")
	ErrReferralCodeUsed     = New("REFERRAL_CODE_ALREADY_USED", http.StatusBadRequest, "referral code was already used")
	ErrActiveReferralCode   = New("ACTIVE_REFERRAL_CODE_ALREADY_EXISTS", http.StatusBadRequest, "active referral code already exists")
	ErrValidation           = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUnauthorized         = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden            = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrStoreUnavailable     = New("STORE_UNAVAILABLE", http.StatusServiceUnavailable, "backing store unavailable")
	ErrInternal             = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithStatus returns a copy of the error carrying a different HTTP status.
// The same domain code can surface as 400 at registration and as 404 on
// resource routes.
func WithStatus(err *Error, status int) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Status = status
	return &clone
}
