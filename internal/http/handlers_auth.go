package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/security"
	"fintrack/internal/session"
)

// sessionHandler is a handler that runs with a resolved session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, st *session.State)

// tokenFromRequest prefers an explicit bearer token over the cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// withSession resolves the caller's state for the JSON API and answers 401
// when there is none.
func (s *Server) withSession(next sessionHandler) http.Handler {
	return security.NoStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := s.sessions.Resolve(r.Context(), tokenFromRequest(r))
		if err != nil {
			writeError(w, r, log.OpRead, err)
			return
		}
		ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, st.UserID()))
		next(w, r.WithContext(ctx), st)
	}))
}

// withPageSession is withSession for HTML pages: signed-out visitors are
// sent to the login page.
func (s *Server) withPageSession(next sessionHandler) http.Handler {
	return security.NoStore(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, err := s.sessions.Resolve(r.Context(), tokenFromRequest(r))
		if err != nil {
			if status, _, _ := errorStatus(err); status != http.StatusUnauthorized {
				s.renderError(w, r, err)
				return
			}
			http.SetCookie(w, s.clearCookie())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, st.UserID()))
		next(w, r.WithContext(ctx), st)
	}))
}

func (s *Server) newSessionCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) clearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// authResponse is returned by sign-up and sign-in.
type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      core.Profile `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpSignUp, err)
		return
	}
	token, st, err := s.sessions.SignUp(r.Context(), p.Get("email"), p.GetRaw("password"), p.Get("name"))
	if err != nil {
		writeError(w, r, log.OpSignUp, err)
		return
	}
	s.writeGrant(w, http.StatusCreated, token, st)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpSignIn, err)
		return
	}
	token, st, err := s.sessions.SignIn(r.Context(), p.Get("email"), p.GetRaw("password"))
	if err != nil {
		writeError(w, r, log.OpSignIn, err)
		return
	}
	s.writeGrant(w, http.StatusOK, token, st)
}

func (s *Server) writeGrant(w http.ResponseWriter, status int, token string, st *session.State) {
	NewJSONResponse().
		Status(status).
		Cookie(s.newSessionCookie(token, st.Session.ExpiresAt)).
		Header("Cache-Control", "no-store").
		Body(authResponse{Token: token, ExpiresAt: st.Session.ExpiresAt, User: st.Profile()}).
		Write(w)
}

// handleSignOut always clears the cookie. An unknown or expired token is
// already signed out.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token != "" {
		if err := s.sessions.SignOut(r.Context(), token); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, r, log.OpSignOut, err)
			return
		}
	}
	NewJSONResponse().Status(http.StatusNoContent).Cookie(s.clearCookie()).Write(w)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, st *session.State) {
	NewJSONResponse().Body(st.Profile()).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, st *session.State) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	profile, err := s.sessions.UpdateProfile(r.Context(), st, parseProfilePatch(p))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(profile).Write(w)
}
