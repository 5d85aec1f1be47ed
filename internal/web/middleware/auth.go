package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/logging"
)

// ErrorWriter renders an error response. The web package supplies one so
// middleware rejections look like handler errors.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error, status int)

// SessionAuth resolves the session token from an "Authorization: Bearer"
// header or the named cookie and stores the session in the request context.
// Requests without a valid session are rejected with 401.
func SessionAuth(sessions auth.Sessions, cookieName string, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, cookieName)
			if token == "" {
				fail(w, r, auth.ErrSessionNotFound, http.StatusUnauthorized)
				return
			}

			sess, err := sessions.Lookup(r.Context(), token)
			if err != nil {
				status := http.StatusUnauthorized
				if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
					status = http.StatusServiceUnavailable
				}
				slog.Warn("auth: session rejected",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				fail(w, r, err, status)
				return
			}

			ctx := auth.WithSession(r.Context(), sess)
			ctx = logging.ContextWith(ctx, "owner_id", sess.Actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken extracts the bearer token, falling back to the cookie.
func SessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
