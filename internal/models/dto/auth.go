package dto

import "github.com/hongminglow/ip-registry-be/internal/models"

type RegisterRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	WalletAddress string `json:"walletAddress"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateProfileRequest uses pointers so omitted fields are left untouched.
type UpdateProfileRequest struct {
	Username      *string `json:"username,omitempty"`
	Email         *string `json:"email,omitempty"`
	WalletAddress *string `json:"walletAddress,omitempty"`
}

type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User   models.PublicAccount `json:"user"`
	Tokens TokensResponse       `json:"tokens"`
}

type RegisterResponse struct {
	User              models.PublicAccount `json:"user"`
	Tokens            TokensResponse       `json:"tokens"`
	VerificationToken string               `json:"verificationToken,omitempty"`
}

type ForgotPasswordResponse struct {
	ResetToken string `json:"resetToken,omitempty"`
}

type LockedResponse struct {
	RetryAfterMinutes int `json:"retryAfterMinutes"`
}
