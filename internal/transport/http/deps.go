package http

import (
	"github.com/go-otp-auth/internal/application/session"
	"github.com/go-otp-auth/internal/application/verification"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Flows    verification.Service
	Sessions session.Service
	// GoogleSignIn mounts /v1/sessions/google when a verifier is configured.
	GoogleSignIn bool
}
