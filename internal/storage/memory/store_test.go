package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/ip-registry-be/internal/models"
	"github.com/hongminglow/ip-registry-be/internal/storage"
)

func seed(t *testing.T, s *Store, username, email string) models.Account {
	t.Helper()
	token := "verify-" + username
	created, err := s.Create(context.Background(), models.Account{
		Username:          username,
		Email:             email,
		WalletAddress:     "0x0000000000000000000000000000000000000001",
		PasswordHash:      "hash",
		VerificationToken: &token,
	})
	require.NoError(t, err)
	return created
}

func TestCreateAndFind(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := seed(t, s, "alice", "a@x.com")
	assert.Equal(t, int64(1), a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	_, err := s.Create(ctx, models.Account{Username: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	_, err = s.Create(ctx, models.Account{Username: "other", Email: "a@x.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	byEmail, err := s.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)

	byToken, err := s.FindByVerificationToken(ctx, "verify-alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byToken.ID)

	_, err = s.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindByID(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	s := NewStore()
	a := seed(t, s, "alice", "a@x.com")

	*a.VerificationToken = "tampered"

	stored, err := s.FindByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "verify-alice", *stored.VerificationToken)
}

func TestUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")
	seed(t, s, "bob", "b@x.com")

	updated, err := s.Update(ctx, a.ID, storage.AccountUpdate{
		IsVerified:        storage.Value(true),
		VerificationToken: storage.Null[string](),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsVerified)
	assert.Nil(t, updated.VerificationToken)

	_, err = s.Update(ctx, a.ID, storage.AccountUpdate{Email: storage.Value("b@x.com")})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	unchanged, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", unchanged.Email, "rejected updates leave the row alone")

	_, err = s.Update(ctx, 99, storage.AccountUpdate{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindByResetToken_Expiry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Update(ctx, a.ID, storage.AccountUpdate{
		ResetPasswordToken:   storage.Value("reset"),
		ResetPasswordExpires: storage.Value(now.Add(time.Hour)),
	})
	require.NoError(t, err)

	_, err = s.FindByResetToken(ctx, "reset", now)
	assert.NoError(t, err)
	_, err = s.FindByResetToken(ctx, "reset", now.Add(time.Hour))
	assert.ErrorIs(t, err, storage.ErrNotFound, "expiry equal to now is expired")
	_, err = s.FindByResetToken(ctx, "other", now)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCount(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")
	seed(t, s, "bob", "b@x.com")

	n, err := s.Count(ctx, storage.AccountFilter{Username: "bob", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Count(ctx, storage.AccountFilter{Email: "a@x.com", ExcludeID: a.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Count(ctx, storage.AccountFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordFailedLogin(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lockUntil := now.Add(15 * time.Minute)

	for i := 1; i < 3; i++ {
		updated, err := s.RecordFailedLogin(ctx, a.ID, 3, lockUntil, now)
		require.NoError(t, err)
		assert.Equal(t, i, updated.FailedLoginAttempts)
		assert.Nil(t, updated.LockUntil)
	}

	locked, err := s.RecordFailedLogin(ctx, a.ID, 3, lockUntil, now)
	require.NoError(t, err)
	assert.Equal(t, 3, locked.FailedLoginAttempts)
	require.NotNil(t, locked.LockUntil)
	assert.Equal(t, lockUntil, *locked.LockUntil)

	_, err = s.RecordFailedLogin(ctx, a.ID, 3, lockUntil, now)
	assert.ErrorIs(t, err, storage.ErrNotFound, "locked accounts are not counted")

	_, err = s.RecordFailedLogin(ctx, 99, 3, lockUntil, now)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordFailedLogin_Concurrent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.RecordFailedLogin(ctx, a.ID, 5, now.Add(time.Minute), now)
		}()
	}
	wg.Wait()

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.FailedLoginAttempts, "counting stops once the account locks")
	assert.NotNil(t, got.LockUntil)
}

func TestUpdateUnlocked(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	unlock := storage.AccountUpdate{}.ClearLockout()

	for i := 0; i < 2; i++ {
		_, err := s.RecordFailedLogin(ctx, a.ID, 2, now.Add(time.Minute), now)
		require.NoError(t, err)
	}

	_, err := s.UpdateUnlocked(ctx, a.ID, now, unlock)
	assert.ErrorIs(t, err, storage.ErrNotFound, "a live lock is not cleared")
	locked, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, locked.FailedLoginAttempts)

	cleared, err := s.UpdateUnlocked(ctx, a.ID, now.Add(time.Minute), unlock)
	require.NoError(t, err)
	assert.Zero(t, cleared.FailedLoginAttempts)
	assert.Nil(t, cleared.LockUntil)

	_, err = s.UpdateUnlocked(ctx, 99, now, unlock)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConsumeVerificationToken(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")

	verified, err := s.ConsumeVerificationToken(ctx, "verify-alice", storage.AccountUpdate{IsVerified: storage.Value(true)})
	require.NoError(t, err)
	assert.Equal(t, a.ID, verified.ID)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.VerificationToken)

	_, err = s.ConsumeVerificationToken(ctx, "verify-alice", storage.AccountUpdate{IsVerified: storage.Value(true)})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConsumeResetToken(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := seed(t, s, "alice", "a@x.com")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	setToken := func(token string) {
		_, err := s.Update(ctx, a.ID, storage.AccountUpdate{
			ResetPasswordToken:   storage.Value(token),
			ResetPasswordExpires: storage.Value(now.Add(time.Hour)),
		})
		require.NoError(t, err)
	}
	update := storage.AccountUpdate{PasswordHash: storage.Value("new-hash")}

	setToken("first")
	setToken("second")
	_, err := s.ConsumeResetToken(ctx, "first", now, update)
	assert.ErrorIs(t, err, storage.ErrNotFound, "superseded tokens do not match")

	_, err = s.ConsumeResetToken(ctx, "second", now.Add(time.Hour), update)
	assert.ErrorIs(t, err, storage.ErrNotFound, "expired tokens do not match")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeResetToken(ctx, "second", now, update); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)

	got, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Nil(t, got.ResetPasswordToken)
	assert.Nil(t, got.ResetPasswordExpires)
}
