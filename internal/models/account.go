package models

import "time"

// Account captures the stored identity, credential, lockout, and reset state of a user.
type Account struct {
	ID                   int64      `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	WalletAddress        string     `json:"walletAddress"`
	PasswordHash         string     `json:"-"`
	IsVerified           bool       `json:"isVerified"`
	VerificationToken    *string    `json:"-"`
	FailedLoginAttempts  int        `json:"-"`
	LockUntil            *time.Time `json:"-"`
	ResetPasswordToken   *string    `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// PublicAccount is the view of an account that is safe to hand to callers.
type PublicAccount struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	WalletAddress string    `json:"walletAddress"`
	IsVerified    bool      `json:"isVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Public strips credentials and one-time tokens.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		WalletAddress: a.WalletAddress,
		IsVerified:    a.IsVerified,
		CreatedAt:     a.CreatedAt,
	}
}

// IsLocked reports whether the lockout window is still open at now.
// A lockUntil in the past counts as unlocked even if it has not been cleared.
func (a Account) IsLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// LockRemaining returns how long the account stays locked, or zero when unlocked.
func (a Account) LockRemaining(now time.Time) time.Duration {
	if !a.IsLocked(now) {
		return 0
	}
	return a.LockUntil.Sub(now)
}

// HasValidResetToken reports whether the stored reset pair is present and unexpired at now.
func (a Account) HasValidResetToken(now time.Time) bool {
	return a.ResetPasswordToken != nil && a.ResetPasswordExpires != nil && a.ResetPasswordExpires.After(now)
}
