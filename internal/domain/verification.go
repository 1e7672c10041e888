package domain

import "time"

// Purpose scopes an OTP record and a flow token to one verification flow.
type Purpose string

const (
	PurposeSignup   Purpose = "signup"
	PurposeRecovery Purpose = "recovery"
)

// Valid reports whether p names a known flow.
func (p Purpose) Valid() bool {
	return p == PurposeSignup || p == PurposeRecovery
}

// OTPRecord stores the live code for one (email, purpose) pair.
// PK: email, SK: purpose.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL; validity is always
// judged from CreatedAt by the ledger.
type OTPRecord struct {
	Email     string    `json:"email" dynamodbav:"email"`
	Purpose   Purpose   `json:"purpose" dynamodbav:"purpose"`
	Code      string    `json:"-" dynamodbav:"code"`
	Nonce     string    `json:"-" dynamodbav:"nonce"` // jti of the flow token issued with the code
	Verified  bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// FlowState is the transient verification state carried by the client
// between the request and commit steps.
type FlowState struct {
	Purpose      Purpose
	Email        string
	PasswordHash string // signup only
	Nonce        string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}
