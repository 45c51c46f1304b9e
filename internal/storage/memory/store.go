// Package memory is an in-process AccountStore used by the service and HTTP
// tests. Every operation runs under one mutex, so read-modify-write sequences
// such as RecordFailedLogin and the token consumers are atomic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hongminglow/ip-registry-be/internal/models"
	"github.com/hongminglow/ip-registry-be/internal/storage"
)

var _ storage.AccountStore = (*Store)(nil)

// Store keeps accounts in a map keyed by id.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]models.Account
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{accounts: make(map[int64]models.Account), now: time.Now}
}

func (s *Store) Create(_ context.Context, account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return models.Account{}, storage.ErrAlreadyExists
		}
	}
	s.nextID++
	account.ID = s.nextID
	account.CreatedAt = s.now().UTC()
	s.accounts[account.ID] = account
	return clone(account), nil
}

func (s *Store) FindByID(_ context.Context, id int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return clone(account), nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (models.Account, error) {
	return s.find(func(a models.Account) bool { return a.Email == email })
}

func (s *Store) FindByUsername(_ context.Context, username string) (models.Account, error) {
	return s.find(func(a models.Account) bool { return a.Username == username })
}

func (s *Store) FindByVerificationToken(_ context.Context, token string) (models.Account, error) {
	return s.find(func(a models.Account) bool {
		return a.VerificationToken != nil && *a.VerificationToken == token
	})
}

func (s *Store) FindByResetToken(_ context.Context, token string, now time.Time) (models.Account, error) {
	return s.find(func(a models.Account) bool {
		return a.HasValidResetToken(now) && *a.ResetPasswordToken == token
	})
}

func (s *Store) find(match func(models.Account) bool) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if match(account) {
			return clone(account), nil
		}
	}
	return models.Account{}, storage.ErrNotFound
}

func (s *Store) Update(_ context.Context, id int64, update storage.AccountUpdate) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrNotFound
	}
	return s.applyLocked(account, update)
}

func (s *Store) UpdateUnlocked(_ context.Context, id int64, now time.Time, update storage.AccountUpdate) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.IsLocked(now) {
		return models.Account{}, storage.ErrNotFound
	}
	return s.applyLocked(account, update)
}

func (s *Store) ConsumeVerificationToken(_ context.Context, token string, update storage.AccountUpdate) (models.Account, error) {
	update.VerificationToken = storage.Null[string]()
	return s.updateFirst(func(a models.Account) bool {
		return a.VerificationToken != nil && *a.VerificationToken == token
	}, update)
}

func (s *Store) ConsumeResetToken(_ context.Context, token string, now time.Time, update storage.AccountUpdate) (models.Account, error) {
	update.ResetPasswordToken = storage.Null[string]()
	update.ResetPasswordExpires = storage.Null[time.Time]()
	return s.updateFirst(func(a models.Account) bool {
		return a.HasValidResetToken(now) && *a.ResetPasswordToken == token
	}, update)
}

// updateFirst matches and writes under one lock hold.
func (s *Store) updateFirst(match func(models.Account) bool, update storage.AccountUpdate) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if match(account) {
			return s.applyLocked(account, update)
		}
	}
	return models.Account{}, storage.ErrNotFound
}

// applyLocked requires s.mu to be held.
func (s *Store) applyLocked(account models.Account, update storage.AccountUpdate) (models.Account, error) {
	update.Apply(&account)
	for otherID, other := range s.accounts {
		if otherID != account.ID && (other.Username == account.Username || other.Email == account.Email) {
			return models.Account{}, storage.ErrAlreadyExists
		}
	}
	s.accounts[account.ID] = clone(account)
	return clone(account), nil
}

func (s *Store) Count(_ context.Context, filter storage.AccountFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.Username == "" && filter.Email == "" {
		return 0, nil
	}
	count := 0
	for id, account := range s.accounts {
		if filter.ExcludeID != 0 && id == filter.ExcludeID {
			continue
		}
		if (filter.Username != "" && account.Username == filter.Username) ||
			(filter.Email != "" && account.Email == filter.Email) {
			count++
		}
	}
	return count, nil
}

func (s *Store) RecordFailedLogin(_ context.Context, id int64, threshold int, lockUntil, now time.Time) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok || account.IsLocked(now) {
		return models.Account{}, storage.ErrNotFound
	}
	account.FailedLoginAttempts++
	if account.FailedLoginAttempts >= threshold {
		until := lockUntil
		account.LockUntil = &until
	}
	s.accounts[id] = account
	return clone(account), nil
}

// clone copies pointer fields so callers cannot mutate stored state.
func clone(a models.Account) models.Account {
	a.VerificationToken = copyPtr(a.VerificationToken)
	a.LockUntil = copyPtr(a.LockUntil)
	a.ResetPasswordToken = copyPtr(a.ResetPasswordToken)
	a.ResetPasswordExpires = copyPtr(a.ResetPasswordExpires)
	return a
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
