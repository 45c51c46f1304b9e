package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an expected business failure so callers branch on kind, not text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindInvalidCredentials
	KindAccountLocked
	KindInvalidToken
	KindTokenExpired
	KindInvalidOrExpiredToken
	KindAccountNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failure"
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountLocked:
		return "account_locked"
	case KindInvalidToken:
		return "invalid_token"
	case KindTokenExpired:
		return "token_expired"
	case KindInvalidOrExpiredToken:
		return "invalid_or_expired_token"
	case KindAccountNotFound:
		return "account_not_found"
	default:
		return "unknown"
	}
}

// Error is an expected failure of an auth operation.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for KindValidation.
	Field string
	// RetryAfterMinutes is set for KindAccountLocked.
	RetryAfterMinutes int
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrAccountLocked)
// holds regardless of the remaining minutes.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

var (
	ErrConflict              = &Error{Kind: KindConflict, Message: "username or email already in use"}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrAccountLocked         = &Error{Kind: KindAccountLocked, Message: "account temporarily locked"}
	ErrInvalidToken          = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrTokenExpired          = &Error{Kind: KindTokenExpired, Message: "token expired"}
	ErrInvalidOrExpiredToken = &Error{Kind: KindInvalidOrExpiredToken, Message: "invalid or expired reset token"}
	ErrAccountNotFound       = &Error{Kind: KindAccountNotFound, Message: "account not found"}
)

func lockedError(minutes int) *Error {
	return &Error{
		Kind:              KindAccountLocked,
		Message:           fmt.Sprintf("account locked, try again in %d minutes", minutes),
		RetryAfterMinutes: minutes,
	}
}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// KindOf returns the kind of err, or KindUnknown for infrastructure faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
