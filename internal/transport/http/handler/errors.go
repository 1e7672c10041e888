package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-otp-auth/internal/domain"
)

type failure struct {
	err    error
	status int
	code   string
}

// Order matters only for errors that wrap more than one sentinel.
var failures = []failure{
	{domain.ErrInvalidInput, http.StatusUnprocessableEntity, "INVALID_INPUT"},
	{domain.ErrAlreadyRegistered, http.StatusConflict, "ALREADY_REGISTERED"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidOTP, http.StatusUnauthorized, "INVALID_OTP"},
	{domain.ErrExpired, http.StatusGone, "EXPIRED"},
	{domain.ErrNotVerified, http.StatusForbidden, "NOT_VERIFIED"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
}

// httpError maps a service error to a status and a stable code. Anything
// unrecognised is reported as a dependency failure without detail.
func httpError(w http.ResponseWriter, err error) {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			msg := f.err.Error()
			if f.err == domain.ErrInvalidInput {
				msg = err.Error()
			}
			writeJSON(w, f.status, MessageEnvelope{Error: msg, Code: f.code})
			return
		}
	}
	slog.Error("request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, MessageEnvelope{Error: "internal server error", Code: "DEPENDENCY_FAILURE"})
}
