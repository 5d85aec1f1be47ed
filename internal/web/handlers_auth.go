package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/logging"
)

// loginResponse is returned by POST /api/login.
type loginResponse struct {
	Token     string     `json:"token"`
	Actor     auth.Actor `json:"actor"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.service.ActiveSessions(),
		"active_uploads":  s.service.Limiter().ActiveCount(),
	})
}

// handleLogin exchanges an X-API-Key header for a session token, returned in
// the body and as a cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-API-Key")
	actor, ok := s.keys.Authenticate(key)
	if key == "" || !ok {
		s.respondError(w, r, auth.ErrInvalidAPIKey, http.StatusUnauthorized)
		return
	}

	sess, err := s.sessions.Create(r.Context(), actor)
	if err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	logging.FromContext(r.Context()).Info("session created", "owner_id", actor.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, Actor: actor, ExpiresAt: sess.ExpiresAt})
}

// handleLogout revokes the session and drops its in-memory dataset state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	if err := s.sessions.Revoke(r.Context(), sess.Token); err != nil {
		logging.FromContext(r.Context()).Warn("session revoke failed", "error", err)
	}
	s.service.EndSession(sess.Token)

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
