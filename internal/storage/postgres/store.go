package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/hongminglow/ip-registry-be/internal/models"
	"github.com/hongminglow/ip-registry-be/internal/storage"
)

// Ensure Store satisfies the storage.AccountStore interface at compile time.
var _ storage.AccountStore = (*Store)(nil)

const uniqueViolation = "23505"

const accountColumns = `id, username, email, wallet_address, password_hash, is_verified, verification_token,
	failed_login_attempts, lock_until, reset_password_token, reset_password_expires, created_at`

// DB is the subset of *pgxpool.Pool the store uses. pgxmock.PgxPoolIface satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store provides Postgres-backed persistence for accounts.
type Store struct {
	db   DB
	pool *pgxpool.Pool
}

// NewStore wraps an existing connection handle.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// NewAccountStore connects to databaseURL, retrying the initial ping with backoff.
func NewAccountStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: pool, pool: pool}, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Create inserts a new account row.
func (s *Store) Create(ctx context.Context, account models.Account) (models.Account, error) {
	query := `
		INSERT INTO accounts (username, email, wallet_address, password_hash, is_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accountColumns
	row := s.db.QueryRow(ctx, query,
		account.Username, account.Email, account.WalletAddress,
		account.PasswordHash, account.IsVerified, account.VerificationToken)
	created, err := scanAccount(row)
	if err != nil {
		return models.Account{}, wrapErr(err, "create account")
	}
	return created, nil
}

// FindByID fetches an account by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.Account, error) {
	return s.findOne(ctx, "find account by id", `WHERE id = $1`, id)
}

// FindByEmail fetches an account by exact email.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.findOne(ctx, "find account by email", `WHERE email = $1`, email)
}

// FindByUsername fetches an account by exact username.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.Account, error) {
	return s.findOne(ctx, "find account by username", `WHERE username = $1`, username)
}

// FindByVerificationToken fetches the account holding an unconsumed verification token.
func (s *Store) FindByVerificationToken(ctx context.Context, token string) (models.Account, error) {
	return s.findOne(ctx, "find account by verification token", `WHERE verification_token = $1`, token)
}

// FindByResetToken fetches the account holding token with an expiry after now.
func (s *Store) FindByResetToken(ctx context.Context, token string, now time.Time) (models.Account, error) {
	return s.findOne(ctx, "find account by reset token",
		`WHERE reset_password_token = $1 AND reset_password_expires > $2`, token, now)
}

func (s *Store) findOne(ctx context.Context, op, where string, args ...any) (models.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts `+where, args...)
	account, err := scanAccount(row)
	if err != nil {
		return models.Account{}, wrapErr(err, op)
	}
	return account, nil
}

// Update writes the set fields of update in a single statement and returns the new row.
func (s *Store) Update(ctx context.Context, id int64, update storage.AccountUpdate) (models.Account, error) {
	if update.Empty() {
		return s.FindByID(ctx, id)
	}
	return s.updateWhere(ctx, "update account", `WHERE id = $1`, []any{id}, update)
}

// UpdateUnlocked writes update unless lock_until is still in the future.
func (s *Store) UpdateUnlocked(ctx context.Context, id int64, now time.Time, update storage.AccountUpdate) (models.Account, error) {
	return s.updateWhere(ctx, "update unlocked account",
		`WHERE id = $1 AND (lock_until IS NULL OR lock_until <= $2)`, []any{id, now}, update)
}

// ConsumeVerificationToken matches and clears the token in the same UPDATE, so
// concurrent callers cannot both consume it.
func (s *Store) ConsumeVerificationToken(ctx context.Context, token string, update storage.AccountUpdate) (models.Account, error) {
	update.VerificationToken = storage.Null[string]()
	return s.updateWhere(ctx, "consume verification token",
		`WHERE verification_token = $1`, []any{token}, update)
}

// ConsumeResetToken matches an unexpired reset token and clears the pair in the same UPDATE.
func (s *Store) ConsumeResetToken(ctx context.Context, token string, now time.Time, update storage.AccountUpdate) (models.Account, error) {
	update.ResetPasswordToken = storage.Null[string]()
	update.ResetPasswordExpires = storage.Null[time.Time]()
	return s.updateWhere(ctx, "consume reset token",
		`WHERE reset_password_token = $1 AND reset_password_expires > $2`, []any{token, now}, update)
}

// updateWhere numbers the SET placeholders after the WHERE arguments.
func (s *Store) updateWhere(ctx context.Context, op, where string, whereArgs []any, update storage.AccountUpdate) (models.Account, error) {
	args := append([]any(nil), whereArgs...)
	var sets []string
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Username.Set {
		add("username", update.Username.Value)
	}
	if update.Email.Set {
		add("email", update.Email.Value)
	}
	if update.WalletAddress.Set {
		add("wallet_address", update.WalletAddress.Value)
	}
	if update.PasswordHash.Set {
		add("password_hash", update.PasswordHash.Value)
	}
	if update.IsVerified.Set {
		add("is_verified", update.IsVerified.Value)
	}
	if update.VerificationToken.Set {
		add("verification_token", update.VerificationToken.Value)
	}
	if update.FailedLoginAttempts.Set {
		add("failed_login_attempts", update.FailedLoginAttempts.Value)
	}
	if update.LockUntil.Set {
		add("lock_until", update.LockUntil.Value)
	}
	if update.ResetPasswordToken.Set {
		add("reset_password_token", update.ResetPasswordToken.Value)
	}
	if update.ResetPasswordExpires.Set {
		add("reset_password_expires", update.ResetPasswordExpires.Value)
	}
	if len(sets) == 0 {
		return models.Account{}, oops.With("operation", op).Errorf("no columns to update")
	}

	query := `UPDATE accounts SET ` + strings.Join(sets, ", ") + ` ` + where + ` RETURNING ` + accountColumns
	updated, err := scanAccount(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return models.Account{}, wrapErr(err, op)
	}
	return updated, nil
}

// Count returns the number of accounts matching filter.
func (s *Store) Count(ctx context.Context, filter storage.AccountFilter) (int, error) {
	var (
		args  []any
		match []string
	)
	if filter.Username != "" {
		args = append(args, filter.Username)
		match = append(match, fmt.Sprintf("username = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		match = append(match, fmt.Sprintf("email = $%d", len(args)))
	}
	if len(match) == 0 {
		return 0, nil
	}

	query := `SELECT COUNT(*) FROM accounts WHERE (` + strings.Join(match, " OR ") + `)`
	if filter.ExcludeID != 0 {
		args = append(args, filter.ExcludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}

	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, oops.With("operation", "count accounts").Wrap(err)
	}
	return count, nil
}

// RecordFailedLogin increments the failed-attempt counter in one statement so
// concurrent failures for the same account are never lost.
func (s *Store) RecordFailedLogin(ctx context.Context, id int64, threshold int, lockUntil, now time.Time) (models.Account, error) {
	query := `
		UPDATE accounts SET
			failed_login_attempts = failed_login_attempts + 1,
			lock_until = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE lock_until END
		WHERE id = $1 AND (lock_until IS NULL OR lock_until <= $4)
		RETURNING ` + accountColumns
	updated, err := scanAccount(s.db.QueryRow(ctx, query, id, threshold, lockUntil, now))
	if err != nil {
		return models.Account{}, wrapErr(err, "record failed login")
	}
	return updated, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.WalletAddress, &a.PasswordHash, &a.IsVerified,
		&a.VerificationToken, &a.FailedLoginAttempts, &a.LockUntil,
		&a.ResetPasswordToken, &a.ResetPasswordExpires, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, err
	}
	return a, nil
}

// wrapErr keeps the storage sentinels matchable while attaching operation context.
func wrapErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return oops.With("operation", op).With("constraint", pgErr.ConstraintName).Wrap(storage.ErrAlreadyExists)
	}
	return oops.With("operation", op).Wrap(err)
}
