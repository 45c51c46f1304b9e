package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegistration(t *testing.T) {
	valid := RegisterInput{
		Username:      "alice_01",
		Email:         "a@x.com",
		Password:      "Abcd1234",
		WalletAddress: "0x" + strings.Repeat("aB", 20),
	}
	assert.NoError(t, ValidateRegistration(valid))

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"short username", func(in *RegisterInput) { in.Username = "ab" }, "username"},
		{"long username", func(in *RegisterInput) { in.Username = strings.Repeat("a", 31) }, "username"},
		{"username punctuation", func(in *RegisterInput) { in.Username = "al-ice" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"display-name email", func(in *RegisterInput) { in.Email = "Alice <a@x.com>" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "Ab1" }, "password"},
		{"password without digit", func(in *RegisterInput) { in.Password = "Abcdefgh" }, "password"},
		{"wallet without prefix", func(in *RegisterInput) { in.WalletAddress = strings.Repeat("1", 42) }, "walletAddress"},
		{"short wallet", func(in *RegisterInput) { in.WalletAddress = "0x1234" }, "walletAddress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := ValidateRegistration(in)
			var authErr *Error
			if assert.ErrorAs(t, err, &authErr) {
				assert.Equal(t, KindValidation, authErr.Kind)
				assert.Equal(t, tt.field, authErr.Field)
			}
		})
	}
}

func TestValidateProfileUpdate(t *testing.T) {
	bad := "x"
	assert.NoError(t, ValidateProfileUpdate(ProfileUpdate{}))
	assert.Equal(t, KindValidation, KindOf(ValidateProfileUpdate(ProfileUpdate{Username: &bad})))
	assert.Equal(t, KindValidation, KindOf(ValidateProfileUpdate(ProfileUpdate{Email: &bad})))
	assert.Equal(t, KindValidation, KindOf(ValidateProfileUpdate(ProfileUpdate{WalletAddress: &bad})))
}

func TestRequireNonEmpty(t *testing.T) {
	err := RequireNonEmpty(Field{"email", "a@x.com"}, Field{"password", "  "}, Field{"token", ""})
	var authErr *Error
	if assert.ErrorAs(t, err, &authErr) {
		assert.Equal(t, "password", authErr.Field)
	}
	assert.NoError(t, RequireNonEmpty(Field{"email", "a@x.com"}))
}
