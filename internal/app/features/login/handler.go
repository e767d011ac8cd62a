package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/greencrew/internal/app/system/auth"
	"github.com/dalemusser/greencrew/internal/app/system/ratelimit"
	"github.com/dalemusser/greencrew/internal/app/system/timeouts"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Handler exposes the account endpoints as a JSON API. Mobile and web
// clients authenticate here; the resulting cookie session rides every
// subsequent request.
type Handler struct {
	Auth       *auth.Service
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Log        *zap.Logger
}

func NewHandler(svc *auth.Service, sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       svc,
		SessionMgr: sessionMgr,
		Limiter:    ratelimit.NewLoginLimiter(),
		Log:        logger,
	}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type userResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// HandleSignIn handles POST /login.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.Limiter.Check(r, creds.Email) {
		writeError(w, http.StatusTooManyRequests, "too many sign-in attempts, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Auth.SignInWithEmailPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.Log.Error("sign-in failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	h.Limiter.ResetEmail(creds.Email)

	if err := h.SessionMgr.SignIn(w, r, u.UID, u.DisplayName, u.Email); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("uid", u.UID))
		writeError(w, http.StatusInternalServerError, "unable to create session")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		UID: u.UID, Email: u.Email, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL,
	})
}

// HandleRegister handles POST /login/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(creds.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Auth.CreateUser(ctx, creds.Email, creds.Password, creds.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailInUse):
			writeError(w, http.StatusConflict, err.Error())
		case strings.Contains(err.Error(), "password"):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.Log.Error("registration failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.UID, u.DisplayName, u.Email); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("uid", u.UID))
		writeError(w, http.StatusInternalServerError, "unable to create session")
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		UID: u.UID, Email: u.Email, DisplayName: u.DisplayName,
	})
}

// HandleResetPassword handles POST /login/reset. Always responds 204 for
// a well-formed request so the endpoint cannot be used to probe which
// emails have accounts.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, creds.Email); err != nil && !errors.Is(err, auth.ErrNoAccount) {
		h.Log.Error("password reset failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "password reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSignOut handles POST /logout.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("clear session failed", zap.Error(err))
	}
	h.Auth.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

/* ───────────────────────── google oauth ───────────────────────── */

// ServeGoogleLogin handles GET /login/google: redirects to the Google
// consent screen with the state kept in the cookie session.
func (h *Handler) ServeGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.GoogleEnabled() {
		writeError(w, http.StatusNotImplemented, "google sign-in is not configured")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.Log.Error("failed to generate oauth state", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	sess := h.session(r)
	sess.Values["oauth_state"] = state
	if err := sess.Save(r, w); err != nil {
		h.Log.Error("save session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "unable to create session")
		return
	}

	http.Redirect(w, r, h.Auth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// ServeGoogleCallback handles GET /login/google/callback.
func (h *Handler) ServeGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("google oauth error", zap.String("error", errParam))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	sess := h.session(r)
	wantState, _ := sess.Values["oauth_state"].(string)
	delete(sess.Values, "oauth_state")
	_ = sess.Save(r, w)

	state := r.URL.Query().Get("state")
	if state == "" || state != wantState {
		h.Log.Warn("invalid oauth state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	u, err := h.Auth.SignInWithGoogle(ctx, code)
	if err != nil {
		h.Log.Error("google sign-in failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=google_signin", http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.UID, u.DisplayName, u.Email); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("uid", u.UID))
		http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

/* ───────────────────────── helpers ───────────────────────── */

// session fetches the cookie session, falling back to a fresh one when
// the cookie fails to decode (stale key, tampering).
func (h *Handler) session(r *http.Request) *sessions.Session {
	sess, err := h.SessionMgr.GetSession(r)
	if err != nil {
		if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
			h.Log.Warn("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			h.Log.Error("session store error, using fresh session", zap.Error(err))
		}
	}
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
