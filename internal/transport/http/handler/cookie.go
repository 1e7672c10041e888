package handler

import (
	"net/http"
	"time"

	"github.com/go-otp-auth/internal/application/verification"
	"github.com/go-otp-auth/internal/transport/http/middleware"
)

const (
	SignupCookie   = "signup_flow"
	RecoveryCookie = "recovery_flow"
)

// flowCookie carries the flow token, scoped to one endpoint family and
// hidden from scripts.
type flowCookie struct {
	name   string
	path   string
	secure bool
}

func (c flowCookie) set(w http.ResponseWriter, t *verification.Ticket) {
	maxAge := int(time.Until(t.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    t.Token,
		Path:     c.path,
		Expires:  t.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (c flowCookie) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     c.path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// flowToken prefers the token resolved by middleware.FlowToken over one sent
// in the body.
func flowToken(r *http.Request, fromBody string) string {
	if t, ok := middleware.FlowTokenFromContext(r.Context()); ok {
		return t
	}
	return fromBody
}
