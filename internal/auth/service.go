package auth

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/hongminglow/ip-registry-be/internal/metrics"
	"github.com/hongminglow/ip-registry-be/internal/models"
	"github.com/hongminglow/ip-registry-be/internal/storage"
)

// Lockout and reset policy.
const (
	MaxFailedLoginAttempts = 5
	LockDuration           = 15 * time.Minute
	ResetTokenTTL          = time.Hour
)

// ResetRequestMessage is returned whether or not the email belongs to an account.
const ResetRequestMessage = "If an account with that email exists, a password reset link has been sent"

const (
	opRegister       = "register"
	opLogin          = "login"
	opRefresh        = "refresh"
	opVerifyEmail    = "verify_email"
	opRequestReset   = "request_reset"
	opResetPassword  = "reset_password"
	opChangePassword = "change_password"
	opProfile        = "profile"
	opUpdateProfile  = "update_profile"
)

type RegisterInput struct {
	Username      string
	Email         string
	Password      string
	WalletAddress string
}

type RegisterResult struct {
	Account models.PublicAccount
	Tokens  TokenPair
	// VerificationToken is the raw token for out-of-band delivery.
	VerificationToken string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Account models.PublicAccount
	Tokens  TokenPair
}

type ResetRequestResult struct {
	Message string
	// Token is empty when the email is unknown.
	Token string
}

// ProfileUpdate changes only the non-nil fields.
type ProfileUpdate struct {
	Username      *string
	Email         *string
	WalletAddress *string
}

// Service orchestrates registration, login lockout, tokens, verification, and password flows.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	store  storage.AccountStore
	hasher PasswordHasher
	tokens *TokenManager
	logger *zap.Logger
	now    func() time.Time
	random func(int) (string, error)
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom overrides the opaque token generator.
func WithRandom(random func(int) (string, error)) Option {
	return func(s *Service) { s.random = random }
}

// NewService wires the auth core to its collaborators.
func NewService(store storage.AccountStore, hasher PasswordHasher, tokens *TokenManager, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
		random: RandomHex,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an unverified account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (res RegisterResult, err error) {
	defer func() { s.observe(opRegister, err) }()

	if err := s.ensureAbsent(ctx, opRegister, "FindByEmail", s.store.FindByEmail, in.Email); err != nil {
		return RegisterResult{}, err
	}
	if err := s.ensureAbsent(ctx, opRegister, "FindByUsername", s.store.FindByUsername, in.Username); err != nil {
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return RegisterResult{}, fault(opRegister, "Hash", err)
	}
	verification, err := s.random(OpaqueTokenBytes)
	if err != nil {
		return RegisterResult{}, fault(opRegister, "RandomHex", err)
	}

	created, err := s.store.Create(ctx, models.Account{
		Username:          in.Username,
		Email:             in.Email,
		WalletAddress:     in.WalletAddress,
		PasswordHash:      hash,
		VerificationToken: &verification,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return RegisterResult{}, ErrConflict
		}
		return RegisterResult{}, fault(opRegister, "Create", err)
	}

	tokens, err := s.tokens.IssuePair(created)
	if err != nil {
		return RegisterResult{}, fault(opRegister, "IssuePair", err)
	}

	s.logger.Info("account registered", zap.Int64("account_id", created.ID), zap.String("username", created.Username))
	return RegisterResult{Account: created.Public(), Tokens: tokens, VerificationToken: verification}, nil
}

func (s *Service) ensureAbsent(ctx context.Context, op, step string, find func(context.Context, string) (models.Account, error), key string) error {
	_, err := find(ctx, key)
	switch {
	case err == nil:
		return ErrConflict
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return fault(op, step, err)
	}
}

// Login checks credentials and drives the lockout state machine.
func (s *Service) Login(ctx context.Context, in LoginInput) (res AuthResult, err error) {
	defer func() { s.observe(opLogin, err) }()

	account, err := s.store.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fault(opLogin, "FindByEmail", err)
	}

	now := s.now()
	if account.IsLocked(now) {
		return AuthResult{}, lockedError(ceilMinutes(account.LockRemaining(now)))
	}

	ok, err := s.hasher.Compare(ctx, in.Password, account.PasswordHash)
	if err != nil {
		return AuthResult{}, fault(opLogin, "Compare", err)
	}
	if !ok {
		if err := s.recordFailure(ctx, account.ID, now); err != nil {
			return AuthResult{}, err
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if account.FailedLoginAttempts != 0 || account.LockUntil != nil {
		account, err = s.clearLockout(ctx, account.ID, now)
		if err != nil {
			return AuthResult{}, err
		}
	}

	tokens, err := s.tokens.IssuePair(account)
	if err != nil {
		return AuthResult{}, fault(opLogin, "IssuePair", err)
	}
	return AuthResult{Account: account.Public(), Tokens: tokens}, nil
}

// clearLockout resets the counter unless a concurrent failure locked the
// account after it was read, in which case the lock wins.
func (s *Service) clearLockout(ctx context.Context, id int64, now time.Time) (models.Account, error) {
	account, err := s.store.UpdateUnlocked(ctx, id, now, storage.AccountUpdate{}.ClearLockout())
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Account{}, fault(opLogin, "UpdateUnlocked", err)
	}

	current, err := s.store.FindByID(ctx, id)
	switch {
	case err == nil && current.IsLocked(now):
		return models.Account{}, lockedError(ceilMinutes(current.LockRemaining(now)))
	case err == nil, errors.Is(err, storage.ErrNotFound):
		return models.Account{}, ErrInvalidCredentials
	default:
		return models.Account{}, fault(opLogin, "FindByID", err)
	}
}

func (s *Service) recordFailure(ctx context.Context, id int64, now time.Time) error {
	updated, err := s.store.RecordFailedLogin(ctx, id, MaxFailedLoginAttempts, now.Add(LockDuration), now)
	if err != nil {
		// Deleted or locked by a concurrent request: the caller still sees invalid credentials.
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fault(opLogin, "RecordFailedLogin", err)
	}
	if updated.IsLocked(now) {
		metrics.RecordLockout()
		s.logger.Warn("account locked after repeated failed logins",
			zap.Int64("account_id", id),
			zap.Int("failed_attempts", updated.FailedLoginAttempts),
			zap.Timep("lock_until", updated.LockUntil),
		)
	}
	return nil
}

// Refresh exchanges a refresh token for a brand-new pair. Earlier refresh
// tokens remain valid until they expire; there is no revocation list.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (pair TokenPair, err error) {
	defer func() { s.observe(opRefresh, err) }()

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	account, err := s.findAccount(ctx, opRefresh, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	pair, err = s.tokens.IssuePair(account)
	if err != nil {
		return TokenPair{}, fault(opRefresh, "IssuePair", err)
	}
	return pair, nil
}

// Authenticate verifies an access token.
func (s *Service) Authenticate(accessToken string) (*AccessClaims, error) {
	return s.tokens.ParseAccess(accessToken)
}

// VerifyEmail consumes a verification token. Verifying an already verified
// account is a no-op success.
func (s *Service) VerifyEmail(ctx context.Context, token string) (account models.PublicAccount, err error) {
	defer func() { s.observe(opVerifyEmail, err) }()

	if token == "" {
		return models.PublicAccount{}, ErrInvalidToken
	}
	found, err := s.store.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicAccount{}, ErrInvalidToken
		}
		return models.PublicAccount{}, fault(opVerifyEmail, "FindByVerificationToken", err)
	}
	if found.IsVerified {
		return found.Public(), nil
	}

	updated, err := s.store.ConsumeVerificationToken(ctx, token, storage.AccountUpdate{
		IsVerified: storage.Value(true),
	})
	if err != nil {
		// Another request consumed the token first.
		if errors.Is(err, storage.ErrNotFound) {
			return models.PublicAccount{}, ErrInvalidToken
		}
		return models.PublicAccount{}, fault(opVerifyEmail, "ConsumeVerificationToken", err)
	}
	s.logger.Info("email verified", zap.Int64("account_id", updated.ID))
	return updated.Public(), nil
}

// RequestPasswordReset issues a one-hour reset token, replacing any earlier one.
// The result message never reveals whether the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (res ResetRequestResult, err error) {
	defer func() { s.observe(opRequestReset, err) }()

	res = ResetRequestResult{Message: ResetRequestMessage}
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return res, nil
		}
		return ResetRequestResult{}, fault(opRequestReset, "FindByEmail", err)
	}

	token, err := s.random(OpaqueTokenBytes)
	if err != nil {
		return ResetRequestResult{}, fault(opRequestReset, "RandomHex", err)
	}
	_, err = s.store.Update(ctx, account.ID, storage.AccountUpdate{
		ResetPasswordToken:   storage.Value(token),
		ResetPasswordExpires: storage.Value(s.now().Add(ResetTokenTTL)),
	})
	if err != nil {
		return ResetRequestResult{}, fault(opRequestReset, "Update", err)
	}

	s.logger.Info("password reset requested", zap.Int64("account_id", account.ID))
	res.Token = token
	return res, nil
}

// ResetPassword consumes a reset token, sets the new password, and lifts any lockout.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.observe(opResetPassword, err) }()

	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	// Cheap rejection of unknown tokens before paying for a hash.
	if _, err := s.store.FindByResetToken(ctx, token, s.now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fault(opResetPassword, "FindByResetToken", err)
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fault(opResetPassword, "Hash", err)
	}
	// The token is matched again when consumed: a concurrent reset or a newer
	// request may have replaced it while hashing.
	update := storage.AccountUpdate{PasswordHash: storage.Value(hash)}.ClearLockout()
	account, err := s.store.ConsumeResetToken(ctx, token, s.now(), update)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fault(opResetPassword, "ConsumeResetToken", err)
	}

	s.logger.Info("password reset completed", zap.Int64("account_id", account.ID))
	return nil
}

// ChangePassword replaces the password of an authenticated account.
func (s *Service) ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) (err error) {
	defer func() { s.observe(opChangePassword, err) }()

	account, err := s.findAccount(ctx, opChangePassword, id)
	if err != nil {
		return err
	}
	ok, err := s.hasher.Compare(ctx, currentPassword, account.PasswordHash)
	if err != nil {
		return fault(opChangePassword, "Compare", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fault(opChangePassword, "Hash", err)
	}
	update := storage.AccountUpdate{PasswordHash: storage.Value(hash)}.ClearLockout()
	if _, err := s.store.Update(ctx, id, update); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fault(opChangePassword, "Update", err)
	}
	return nil
}

// Profile returns the public fields of an account.
func (s *Service) Profile(ctx context.Context, id int64) (profile models.PublicAccount, err error) {
	defer func() { s.observe(opProfile, err) }()

	account, err := s.findAccount(ctx, opProfile, id)
	if err != nil {
		return models.PublicAccount{}, err
	}
	return account.Public(), nil
}

// UpdateProfile applies username, email, and wallet changes after checking that
// a new username or email is not held by a different account.
func (s *Service) UpdateProfile(ctx context.Context, id int64, in ProfileUpdate) (profile models.PublicAccount, err error) {
	defer func() { s.observe(opUpdateProfile, err) }()

	account, err := s.findAccount(ctx, opUpdateProfile, id)
	if err != nil {
		return models.PublicAccount{}, err
	}

	var update storage.AccountUpdate
	filter := storage.AccountFilter{ExcludeID: id}
	if in.Username != nil && *in.Username != account.Username {
		filter.Username = *in.Username
		update.Username = storage.Value(*in.Username)
	}
	if in.Email != nil && *in.Email != account.Email {
		filter.Email = *in.Email
		update.Email = storage.Value(*in.Email)
	}
	if in.WalletAddress != nil {
		update.WalletAddress = storage.Value(*in.WalletAddress)
	}
	if update.Empty() {
		return account.Public(), nil
	}

	if filter.Username != "" || filter.Email != "" {
		taken, err := s.store.Count(ctx, filter)
		if err != nil {
			return models.PublicAccount{}, fault(opUpdateProfile, "Count", err)
		}
		if taken > 0 {
			return models.PublicAccount{}, ErrConflict
		}
	}

	updated, err := s.store.Update(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			return models.PublicAccount{}, ErrConflict
		case errors.Is(err, storage.ErrNotFound):
			return models.PublicAccount{}, ErrAccountNotFound
		default:
			return models.PublicAccount{}, fault(opUpdateProfile, "Update", err)
		}
	}
	return updated.Public(), nil
}

func (s *Service) findAccount(ctx context.Context, op string, id int64) (models.Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, fault(op, "FindByID", err)
	}
	return account, nil
}

func (s *Service) observe(op string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		if kind := KindOf(err); kind != KindUnknown {
			outcome = kind.String()
		}
	}
	metrics.RecordAuthOperation(op, outcome)
}

// fault wraps an infrastructure error with the failing operation and step.
func fault(op, step string, err error) error {
	return oops.Code("AUTH_"+strings.ToUpper(op)+"_FAILED").With("operation", step).Wrap(err)
}

// ceilMinutes rounds a remaining lock duration up to whole minutes.
func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(float64(d.Milliseconds()) / 60000))
}
