package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/ip-registry-be/internal/models"
)

func accountWithID(id int64) models.Account {
	return models.Account{
		ID:            id,
		Username:      "alice",
		Email:         "a@x.com",
		WalletAddress: "0x" + strings.Repeat("1", 40),
	}
}

func TestTokenManager_IssuePair(t *testing.T) {
	tm := NewTokenManager("secret", "issuer", 0, 0)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	pair, err := tm.IssuePair(accountWithID(42))
	require.NoError(t, err)

	access, err := tm.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), access.ID)
	assert.Equal(t, "alice", access.Username)
	assert.Equal(t, "a@x.com", access.Email)
	assert.Equal(t, "0x"+strings.Repeat("1", 40), access.WalletAddress)
	assert.Equal(t, issued.Add(24*time.Hour), access.ExpiresAt.Time.UTC())

	refresh, err := tm.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), refresh.ID)
	assert.Equal(t, issued.Add(7*24*time.Hour), refresh.ExpiresAt.Time.UTC())
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("secret", "issuer", 0, 0)
	issued := time.Now()
	tm.now = func() time.Time { return issued }
	pair, err := tm.IssuePair(accountWithID(1))
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }
	_, err = tm.ParseRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, KindTokenExpired, KindOf(err))

	_, err = tm.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManager_Invalid(t *testing.T) {
	tm := NewTokenManager("secret", "issuer", 0, 0)
	pair, err := tm.IssuePair(accountWithID(1))
	require.NoError(t, err)

	other := NewTokenManager("other-secret", "issuer", 0, 0)
	foreign, err := other.IssuePair(accountWithID(1))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": 1, "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":           "",
		"garbage":         "not-a-jwt",
		"wrong secret":    foreign.AccessToken,
		"alg none":        unsigned,
		"truncated":       pair.AccessToken[:len(pair.AccessToken)-5],
		"tampered claims": strings.Replace(pair.AccessToken, ".", ".e", 1),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tm.ParseAccess(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Equal(t, KindInvalidToken, KindOf(err))
		})
	}
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	pair, err := NewTokenManager("secret", "someone-else", 0, 0).IssuePair(accountWithID(1))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "issuer", 0, 0).ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
