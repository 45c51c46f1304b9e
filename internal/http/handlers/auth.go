package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hongminglow/ip-registry-be/internal/auth"
	"github.com/hongminglow/ip-registry-be/internal/http/respond"
	"github.com/hongminglow/ip-registry-be/internal/middleware"
	"github.com/hongminglow/ip-registry-be/internal/models/dto"
)

// AuthHandler owns the account endpoints backed by the auth service.
type AuthHandler struct {
	svc    *auth.Service
	logger *zap.Logger
	// exposeTokens returns raw verification/reset tokens in responses; for local use only.
	exposeTokens bool
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *auth.Service, logger *zap.Logger, exposeTokens bool) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{svc: svc, logger: logger, exposeTokens: exposeTokens}
}

// Register attaches auth routes under /api/auth.
func (h *AuthHandler) Register(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh-token", h.handleRefresh)
		r.Post("/verify-email", h.handleVerifyEmail)
		r.Get("/verify-email/{token}", h.handleVerifyEmail)
		r.Post("/forgot-password", h.handleForgotPassword)
		r.Post("/reset-password", h.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(h.svc))
			r.Get("/profile", h.handleProfile)
			r.Put("/profile", h.handleUpdateProfile)
			r.Put("/change-password", h.handleChangePassword)
		})
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := auth.RegisterInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		WalletAddress: req.WalletAddress,
	}
	if err := auth.ValidateRegistration(in); err != nil {
		respondServiceError(w, h.logger, "register", err)
		return
	}

	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		respondServiceError(w, h.logger, "register", err)
		return
	}

	body := dto.RegisterResponse{User: res.Account, Tokens: tokensBody(res.Tokens)}
	if h.exposeTokens {
		body.VerificationToken = res.VerificationToken
	}
	respond.JSON(w, http.StatusCreated, "account registered", body)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.RequireNonEmpty(auth.Field{Name: "email", Value: req.Email}, auth.Field{Name: "password", Value: req.Password}); err != nil {
		respondServiceError(w, h.logger, "login", err)
		return
	}

	res, err := h.svc.Login(r.Context(), auth.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		respondServiceError(w, h.logger, "login", err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.AuthResponse{User: res.Account, Tokens: tokensBody(res.Tokens)})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.RequireNonEmpty(auth.Field{Name: "refreshToken", Value: req.RefreshToken}); err != nil {
		respondServiceError(w, h.logger, "refresh", err)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, h.logger, "refresh", err)
		return
	}
	respond.JSON(w, http.StatusOK, "token refreshed", tokensBody(pair))
}

func (h *AuthHandler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		var req dto.VerifyEmailRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		token = req.Token
	}

	profile, err := h.svc.VerifyEmail(r.Context(), token)
	if err != nil {
		respondServiceError(w, h.logger, "verify_email", err)
		return
	}
	respond.JSON(w, http.StatusOK, "email verified", profile)
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		respondServiceError(w, h.logger, "request_reset", err)
		return
	}

	res, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, h.logger, "request_reset", err)
		return
	}
	var body any
	if h.exposeTokens && res.Token != "" {
		body = dto.ForgotPasswordResponse{ResetToken: res.Token}
	}
	respond.JSON(w, http.StatusOK, res.Message, body)
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.RequireNonEmpty(auth.Field{Name: "token", Value: req.Token}); err != nil {
		respondServiceError(w, h.logger, "reset_password", err)
		return
	}
	if err := auth.ValidatePassword("newPassword", req.NewPassword); err != nil {
		respondServiceError(w, h.logger, "reset_password", err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		respondServiceError(w, h.logger, "reset_password", err)
		return
	}
	respond.JSON(w, http.StatusOK, "password has been reset", nil)
}

func (h *AuthHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "access token required")
		return
	}

	profile, err := h.svc.Profile(r.Context(), claims.ID)
	if err != nil {
		respondServiceError(w, h.logger, "profile", err)
		return
	}
	respond.JSON(w, http.StatusOK, "profile", profile)
}

func (h *AuthHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "access token required")
		return
	}
	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := auth.ProfileUpdate{Username: req.Username, Email: req.Email, WalletAddress: req.WalletAddress}
	if err := auth.ValidateProfileUpdate(in); err != nil {
		respondServiceError(w, h.logger, "update_profile", err)
		return
	}

	profile, err := h.svc.UpdateProfile(r.Context(), claims.ID, in)
	if err != nil {
		respondServiceError(w, h.logger, "update_profile", err)
		return
	}
	respond.JSON(w, http.StatusOK, "profile updated", profile)
}

func (h *AuthHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "access token required")
		return
	}
	var req dto.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.RequireNonEmpty(auth.Field{Name: "currentPassword", Value: req.CurrentPassword}); err != nil {
		respondServiceError(w, h.logger, "change_password", err)
		return
	}
	if err := auth.ValidatePassword("newPassword", req.NewPassword); err != nil {
		respondServiceError(w, h.logger, "change_password", err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), claims.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, h.logger, "change_password", err)
		return
	}
	respond.JSON(w, http.StatusOK, "password changed", nil)
}

func tokensBody(pair auth.TokenPair) dto.TokensResponse {
	return dto.TokensResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
}
