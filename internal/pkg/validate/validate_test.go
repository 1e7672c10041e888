package validate

import (
	"testing"

	"github.com/go-otp-auth/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(&domain.SignupRequest{Email: "a@x.com", Password: "pw12345678"}))
}

func TestStruct_UsesJSONNames(t *testing.T) {
	err := Struct(&domain.RecoveryCommitRequest{NewPassword: "short"})
	assert.EqualError(t, err, "new_password must be at least 8 characters")
}

func TestStruct_Messages(t *testing.T) {
	err := Struct(&domain.SignupRequest{Email: "not-an-email"})
	assert.ErrorContains(t, err, "email must be a valid email address")
	assert.ErrorContains(t, err, "password is required")

	err = Struct(&domain.VerifyRequest{Code: "12345"})
	assert.ErrorContains(t, err, "code must be exactly 6 characters")

	err = Struct(&domain.VerifyRequest{Code: "12a456"})
	assert.ErrorContains(t, err, "field 'code' failed 'numeric'")
}
