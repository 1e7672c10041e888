package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrNotFound           = errors.New("not found")
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrExpired            = errors.New("verification expired, please restart")
	ErrNotVerified        = errors.New("verification code not confirmed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDependency         = errors.New("dependency failure")
)

// Ledger failure reasons. They stay distinguishable for logging; the flow
// controller folds them into ErrInvalidOTP or ErrExpired for callers.
var (
	ErrOTPNotIssued = errors.New("no code issued")
	ErrOTPMismatch  = errors.New("code mismatch")
	ErrOTPExpired   = errors.New("code expired")
)
