package http

import (
	"net/http"
	"strings"

	"github.com/batimarket/batimarket/auth"
)

// withUser verifies the bearer token, if any, and puts the principal in
// the request context. Browsers cannot set headers on a websocket so the
// token is also read from the "token" query param.
func (h *Handler) withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.Tokens.Verify(token)
		if err != nil {
			h.respondErr(w, r, err)
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); a != "" {
		scheme, token, ok := strings.Cut(a, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	return r.URL.Query().Get("token")
}
