package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-auth/internal/application/verification"
	"github.com/go-otp-auth/internal/domain"
)

type SignupFlow interface {
	RequestSignup(ctx context.Context, req domain.SignupRequest) (*verification.Ticket, error)
	VerifySignup(ctx context.Context, req domain.VerifyRequest) error
	CommitSignup(ctx context.Context, req domain.SignupCommitRequest) (*domain.User, error)
}

// SignupHandler handles the request, verify and commit steps of signup.
type SignupHandler struct {
	svc    SignupFlow
	cookie flowCookie
}

func NewSignupHandler(svc SignupFlow, secureCookie bool) *SignupHandler {
	return &SignupHandler{svc: svc, cookie: flowCookie{name: SignupCookie, path: "/v1/signup", secure: secureCookie}}
}

func (h *SignupHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req domain.SignupRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := h.svc.RequestSignup(r.Context(), req)
		if err != nil {
			httpError(w, err)
			return
		}
		h.cookie.set(w, t)
		writeJSON(w, http.StatusOK, FlowEnvelope{Message: "verification code sent", Token: t.Token, ExpiresAt: t.ExpiresAt})
	case "verify":
		var req domain.VerifyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Token = flowToken(r, req.Token)
		if err := h.svc.VerifySignup(r.Context(), req); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code verified"})
	case "commit":
		var req domain.SignupCommitRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Token = flowToken(r, req.Token)
		u, err := h.svc.CommitSignup(r.Context(), req)
		if err != nil {
			if errors.Is(err, domain.ErrExpired) {
				h.cookie.clear(w)
			}
			httpError(w, err)
			return
		}
		h.cookie.clear(w)
		writeJSON(w, http.StatusCreated, UserEnvelope{Message: "account created", User: u})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
