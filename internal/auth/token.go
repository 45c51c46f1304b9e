package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/hongminglow/ip-registry-be/internal/models"
)

// Token lifetimes.
const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AccessClaims identify the account behind a bearer token.
type AccessClaims struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the account id.
type RefreshClaims struct {
	ID int64 `json:"id"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login, registration, or refresh hands back.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenManager issues and verifies signed JWTs for accounts.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a manager; non-positive TTLs fall back to the defaults.
func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access and refresh token for account.
func (t *TokenManager) IssuePair(account models.Account) (TokenPair, error) {
	now := t.now()
	access := AccessClaims{
		ID:               account.ID,
		Username:         account.Username,
		Email:            account.Email,
		WalletAddress:    account.WalletAddress,
		RegisteredClaims: t.registered(account.ID, now, t.accessTTL),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(t.secret)
	if err != nil {
		return TokenPair{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").With("token", "access").Wrap(err)
	}

	refresh := RefreshClaims{
		ID:               account.ID,
		RegisteredClaims: t.registered(account.ID, now, t.refreshTTL),
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(t.secret)
	if err != nil {
		return TokenPair{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").With("token", "refresh").Wrap(err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (t *TokenManager) registered(id int64, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   strconv.FormatInt(id, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// ParseAccess verifies an access token.
func (t *TokenManager) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token.
func (t *TokenManager) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *TokenManager) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return &Error{Kind: KindInvalidToken, Message: fmt.Sprintf("invalid token: %v", err)}
	}
}
