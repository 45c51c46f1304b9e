package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hongminglow/ip-registry-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// Optional carries a column assignment for a partial update.
// Set=false leaves the column alone; Set=true with a nil Value writes NULL.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Value returns an assignment of v.
func Value[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an assignment of NULL.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// AccountUpdate lists the columns an Update call should write.
type AccountUpdate struct {
	Username             Optional[string]
	Email                Optional[string]
	WalletAddress        Optional[string]
	PasswordHash         Optional[string]
	IsVerified           Optional[bool]
	VerificationToken    Optional[string]
	FailedLoginAttempts  Optional[int]
	LockUntil            Optional[time.Time]
	ResetPasswordToken   Optional[string]
	ResetPasswordExpires Optional[time.Time]
}

// ClearLockout resets the failed-attempt counter and lifts any lock.
func (u AccountUpdate) ClearLockout() AccountUpdate {
	u.FailedLoginAttempts = Value(0)
	u.LockUntil = Null[time.Time]()
	return u
}

// Empty reports whether the update would write nothing.
func (u AccountUpdate) Empty() bool {
	return !u.Username.Set && !u.Email.Set && !u.WalletAddress.Set && !u.PasswordHash.Set &&
		!u.IsVerified.Set && !u.VerificationToken.Set && !u.FailedLoginAttempts.Set &&
		!u.LockUntil.Set && !u.ResetPasswordToken.Set && !u.ResetPasswordExpires.Set
}

// Apply writes the set fields onto account.
func (u AccountUpdate) Apply(account *models.Account) {
	if u.Username.Set && u.Username.Value != nil {
		account.Username = *u.Username.Value
	}
	if u.Email.Set && u.Email.Value != nil {
		account.Email = *u.Email.Value
	}
	if u.WalletAddress.Set && u.WalletAddress.Value != nil {
		account.WalletAddress = *u.WalletAddress.Value
	}
	if u.PasswordHash.Set && u.PasswordHash.Value != nil {
		account.PasswordHash = *u.PasswordHash.Value
	}
	if u.IsVerified.Set && u.IsVerified.Value != nil {
		account.IsVerified = *u.IsVerified.Value
	}
	if u.VerificationToken.Set {
		account.VerificationToken = u.VerificationToken.Value
	}
	if u.FailedLoginAttempts.Set && u.FailedLoginAttempts.Value != nil {
		account.FailedLoginAttempts = *u.FailedLoginAttempts.Value
	}
	if u.LockUntil.Set {
		account.LockUntil = u.LockUntil.Value
	}
	if u.ResetPasswordToken.Set {
		account.ResetPasswordToken = u.ResetPasswordToken.Value
	}
	if u.ResetPasswordExpires.Set {
		account.ResetPasswordExpires = u.ResetPasswordExpires.Value
	}
}

// AccountFilter selects accounts whose username OR email matches, optionally
// excluding one id. Empty Username/Email are ignored.
type AccountFilter struct {
	Username  string
	Email     string
	ExcludeID int64
}

// AccountStore captures persistence operations needed by the auth service.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) (models.Account, error)
	FindByID(ctx context.Context, id int64) (models.Account, error)
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	FindByUsername(ctx context.Context, username string) (models.Account, error)
	FindByVerificationToken(ctx context.Context, token string) (models.Account, error)
	// FindByResetToken only matches tokens whose expiry is strictly after now.
	FindByResetToken(ctx context.Context, token string, now time.Time) (models.Account, error)
	Update(ctx context.Context, id int64, update AccountUpdate) (models.Account, error)
	// UpdateUnlocked applies update only if the account is not locked at now.
	// Returns ErrNotFound if the account is missing or locked.
	UpdateUnlocked(ctx context.Context, id int64, now time.Time, update AccountUpdate) (models.Account, error)
	// ConsumeVerificationToken applies update to the account holding token and
	// clears the token in the same step. Returns ErrNotFound if no account holds it.
	ConsumeVerificationToken(ctx context.Context, token string, update AccountUpdate) (models.Account, error)
	// ConsumeResetToken applies update to the account holding token with an
	// expiry after now and clears the reset pair in the same step. Returns
	// ErrNotFound if the token is unknown, superseded, expired, or already used.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, update AccountUpdate) (models.Account, error)
	Count(ctx context.Context, filter AccountFilter) (int, error)
	// RecordFailedLogin atomically increments the failed-attempt counter of an
	// unlocked account and sets lock_until once the new count reaches threshold.
	// Returns ErrNotFound if the account is missing or was locked concurrently.
	RecordFailedLogin(ctx context.Context, id int64, threshold int, lockUntil, now time.Time) (models.Account, error)
}
