package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const FlowTokenKey contextKey = "flow_token"

// FlowToken returns middleware that picks up the transient flow token from
// the named cookie, falling back to an Authorization Bearer header, and
// injects it into the request context. A request without either passes
// through untouched; the handler decides what a missing token means.
func FlowToken(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if c, err := r.Cookie(cookieName); err == nil {
				token = c.Value
			}
			if token == "" {
				if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
					token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
				}
			}
			if token != "" {
				r = r.WithContext(context.WithValue(r.Context(), FlowTokenKey, token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FlowTokenFromContext returns the token stored by FlowToken, if any.
func FlowTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(FlowTokenKey).(string)
	return t, ok && t != ""
}
