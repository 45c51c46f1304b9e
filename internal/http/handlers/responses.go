package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hongminglow/ip-registry-be/internal/auth"
	"github.com/hongminglow/ip-registry-be/internal/http/respond"
	"github.com/hongminglow/ip-registry-be/internal/models/dto"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// statusFor maps an auth failure kind to an HTTP status.
func statusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindInvalidCredentials, auth.KindInvalidToken, auth.KindTokenExpired:
		return http.StatusUnauthorized
	case auth.KindAccountLocked:
		return http.StatusLocked
	case auth.KindInvalidOrExpiredToken:
		return http.StatusBadRequest
	case auth.KindAccountNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError renders err; infrastructure faults are logged and hidden.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		logger.Error("auth operation failed", zap.String("operation", op), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := statusFor(authErr.Kind)
	if authErr.Kind == auth.KindAccountLocked {
		w.Header().Set("Retry-After", strconv.Itoa(authErr.RetryAfterMinutes*60))
		respond.ErrorWithData(w, status, authErr.Error(), dto.LockedResponse{RetryAfterMinutes: authErr.RetryAfterMinutes})
		return
	}
	respond.Error(w, status, authErr.Error())
}
