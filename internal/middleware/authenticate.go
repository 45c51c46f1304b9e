package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/ip-registry-be/internal/auth"
	"github.com/hongminglow/ip-registry-be/internal/http/respond"
)

type claimsKey struct{}

// TokenVerifier validates bearer access tokens.
type TokenVerifier interface {
	Authenticate(accessToken string) (*auth.AccessClaims, error)
}

// Authenticate rejects requests without a valid "Authorization: Bearer" access
// token and stores the verified claims on the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				respond.Error(w, http.StatusUnauthorized, "access token required")
				return
			}

			claims, err := verifier.Authenticate(strings.TrimSpace(token))
			if err != nil {
				message := "invalid access token"
				if auth.KindOf(err) == auth.KindTokenExpired {
					message = "access token expired"
				}
				respond.Error(w, http.StatusUnauthorized, message)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, claims *auth.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.AccessClaims)
	return claims, ok && claims != nil
}
