package api

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const authCookie = "auth_token"

// requestToken finds the caller's token in the Authorization header, the
// auth cookie or the token query parameter (for WebSocket clients)
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(authCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

func (s *Server) validToken(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	want := s.AuthToken
	if want == "" {
		stored, ok := s.Prefs.AuthToken(r.Context())
		if !ok {
			return false
		}
		want = stored
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
}

// requireAuth rejects API calls with 401 and sends everything else to
// the login page, remembering where the caller was going
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.validToken(r, requestToken(r)) {
			next.ServeHTTP(w, r)
			return
		}
		if isAPIPath(r.URL.Path) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "sign in required",
		"callback": "/auth/callback?next=" + url.QueryEscape(next),
		"next":     next,
	})
}

// authCallback completes sign-in. With a configured token the callback
// must present it; otherwise a session token is issued.
func (s *Server) authCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	switch {
	case s.AuthToken != "" && !s.validToken(r, token):
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	case s.AuthToken == "" && token == "":
		token = uuid.New().String()
	}

	s.Prefs.SetAuthToken(r.Context(), token)
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.Prefs.ClearAuth(r.Context())
	http.SetCookie(w, &http.Cookie{Name: authCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// safeNext keeps redirects on this host
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
