package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-auth/internal/application/verification"
	"github.com/go-otp-auth/internal/domain"
)

type RecoveryFlow interface {
	RequestRecovery(ctx context.Context, req domain.RecoveryRequest) (*verification.Ticket, error)
	VerifyRecovery(ctx context.Context, req domain.VerifyRequest) error
	CommitRecovery(ctx context.Context, req domain.RecoveryCommitRequest) error
}

// PasswordRecoveryHandler handles password recovery flow endpoints.
type PasswordRecoveryHandler struct {
	svc    RecoveryFlow
	cookie flowCookie
}

func NewPasswordRecoveryHandler(svc RecoveryFlow, secureCookie bool) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc, cookie: flowCookie{name: RecoveryCookie, path: "/v1/recovery", secure: secureCookie}}
}

func (h *PasswordRecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req domain.RecoveryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		t, err := h.svc.RequestRecovery(r.Context(), req)
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
		if err := h.svc.VerifyRecovery(r.Context(), req); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code verified"})
	case "commit":
		var req domain.RecoveryCommitRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Token = flowToken(r, req.Token)
		if err := h.svc.CommitRecovery(r.Context(), req); err != nil {
			if errors.Is(err, domain.ErrExpired) {
				h.cookie.clear(w)
			}
			httpError(w, err)
			return
		}
		h.cookie.clear(w)
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
