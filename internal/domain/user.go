package domain

import "time"

// Auth providers recorded on a user.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id" bson:"user_id"`
	Email        string    `json:"email" dynamodbav:"email" bson:"email"`
	Username     string    `json:"username,omitempty" dynamodbav:"username" bson:"username,omitempty"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash" bson:"password_hash,omitempty"`
	AuthProvider string    `json:"auth_provider" dynamodbav:"auth_provider" bson:"auth_provider"` // "local" | "google"
	GoogleSub    string    `json:"-" dynamodbav:"google_sub" bson:"google_sub,omitempty"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at" bson:"updated_at"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type RecoveryRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type VerifyRequest struct {
	Code  string `json:"code" validate:"required,numeric,len=6"`
	Token string `json:"token"`
}

type SignupCommitRequest struct {
	Token string `json:"token"`
}

type RecoveryCommitRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
	Token       string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// GoogleIdentity holds the verified claims of a Google ID token.
type GoogleIdentity struct {
	Sub           string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
}
