package main

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/perimeter/pkg/auth"
	"github.com/platinummonkey/perimeter/pkg/config"
	"github.com/platinummonkey/perimeter/pkg/httputil"
	"github.com/platinummonkey/perimeter/pkg/middleware"
	"github.com/platinummonkey/perimeter/pkg/session"
	"github.com/platinummonkey/perimeter/pkg/sso"
)

// application wires the bridge components into the demo host handlers
type application struct {
	coordinator *auth.Coordinator
	manager     *sso.SessionManager
	resolver    *auth.UserResolver
	store       session.Store
	cfg         *config.Config
	log         logrus.FieldLogger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type whoAmIResponse struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Authorities []string `json:"authorities"`
	SSO         bool     `json:"sso"`
}

type principalResponse struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email,omitempty"`
	Enabled     bool     `json:"enabled"`
	Authorities []string `json:"authorities"`
}

// handleLogin performs a password login, establishes SSO and the local
// session. The failure response is deliberately generic: the precise
// cause goes to the logs only, never to the caller.
func (a *application) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSON(w, r, &req) {
		return
	}

	token, err := a.coordinator.Authenticate(r.Context(), auth.NewPasswordToken(req.Username, req.Password, nil))
	if err != nil {
		a.manager.LoginFail(w, r)
		if errors.Is(err, auth.ErrDirectoryUnavailable) || errors.Is(err, auth.ErrAuthorizationUnavailable) {
			httputil.WriteError(w, http.StatusServiceUnavailable, "authentication service unavailable")
			return
		}
		httputil.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// SSO is additive: the local login stands even when this fails
	token = a.manager.LoginSuccess(w, r, token)

	sess, err := a.store.Create(r.Context(), session.Session{
		Username:    token.Username(),
		SSOToken:    token.SSOToken(),
		DisplayName: token.DisplayName(),
		Authorities: token.Authorities(),
	})
	if err != nil {
		a.log.WithError(err).Error("session creation failed")
		httputil.WriteError(w, http.StatusInternalServerError, "session creation failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.Session.CookieName,
		Value:    sess.ID,
		Path:     a.cfg.Server.BasePath,
		HttpOnly: true,
	})

	if sc := middleware.GetSecurityContext(r); sc != nil {
		sc.SetAuthentication(token)
	}

	httputil.WriteJSON(w, http.StatusOK, whoAmIResponse{
		Username:    token.Username(),
		DisplayName: token.DisplayName(),
		Authorities: token.Authorities(),
		SSO:         token.HasSSOToken(),
	})
}

// handleLogout closes the SSO session and drops the local one
func (a *application) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.manager.Logout(w, r)

	if cookie, err := r.Cookie(a.cfg.Session.CookieName); err == nil && cookie.Value != "" {
		if err := a.store.Invalidate(r.Context(), cookie.Value); err != nil {
			a.log.WithError(err).Warn("local session invalidation failed")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.Session.CookieName,
		Value:    "",
		Path:     a.cfg.Server.BasePath,
		HttpOnly: true,
		MaxAge:   -1,
	})

	if sc := middleware.GetSecurityContext(r); sc != nil {
		sc.Clear()
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleWhoAmI returns the authenticated principal, 401 when anonymous
func (a *application) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	sc := middleware.GetSecurityContext(r)
	if sc == nil || sc.Authentication() == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	token := sc.Authentication()
	httputil.WriteJSON(w, http.StatusOK, whoAmIResponse{
		Username:    token.Username(),
		DisplayName: token.DisplayName(),
		Authorities: token.Authorities(),
		SSO:         token.HasSSOToken(),
	})
}

// handlePrincipal resolves the authenticated user freshly against the
// remote directory. Unlike /whoami, which echoes the session credential,
// this reflects the remote account state at call time.
func (a *application) handlePrincipal(w http.ResponseWriter, r *http.Request) {
	sc := middleware.GetSecurityContext(r)
	if sc == nil || sc.Authentication() == nil {
		httputil.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	principal, err := a.resolver.LoadUser(r.Context(), sc.Authentication().Username())
	if err != nil {
		a.log.WithError(err).Warn("principal resolution failed")
		if errors.Is(err, auth.ErrDirectoryUnavailable) || errors.Is(err, auth.ErrAuthorizationUnavailable) {
			httputil.WriteError(w, http.StatusServiceUnavailable, "directory service unavailable")
			return
		}
		httputil.WriteError(w, http.StatusForbidden, "not authorized")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, principalResponse{
		Username:    principal.Username(),
		DisplayName: principal.DisplayName(),
		Email:       principal.Email(),
		Enabled:     principal.Enabled(),
		Authorities: principal.Authorities(),
	})
}
