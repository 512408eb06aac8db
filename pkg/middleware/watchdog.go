package middleware

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/perimeter/pkg/auth"
	"github.com/platinummonkey/perimeter/pkg/contextkeys"
	"github.com/platinummonkey/perimeter/pkg/observability"
	"github.com/platinummonkey/perimeter/pkg/session"
	"github.com/platinummonkey/perimeter/pkg/sso"
)

const (
	// DefaultSessionCookieName identifies the local session
	DefaultSessionCookieName = "perimeter.session"

	// DefaultRememberMeCookieName is the host's remember-me cookie, reset
	// when a stale SSO session is torn down
	DefaultRememberMeCookieName = "perimeter.remember.me"
)

// WatchdogConfig holds the watchdog's cookie and path settings
type WatchdogConfig struct {
	// SessionCookieName identifies the local session; defaults to
	// DefaultSessionCookieName
	SessionCookieName string

	// RememberMeCookieName is reset to empty when a stale SSO session is
	// torn down; defaults to DefaultRememberMeCookieName
	RememberMeCookieName string

	// BasePath scopes the cleared cookies; defaults to "/"
	BasePath string
}

func (c WatchdogConfig) sessionCookie() string {
	if c.SessionCookieName == "" {
		return DefaultSessionCookieName
	}
	return c.SessionCookieName
}

func (c WatchdogConfig) rememberMeCookie() string {
	if c.RememberMeCookieName == "" {
		return DefaultRememberMeCookieName
	}
	return c.RememberMeCookieName
}

func (c WatchdogConfig) basePath() string {
	if c.BasePath == "" {
		return "/"
	}
	return c.BasePath
}

// Watchdog keeps the host's local authenticated state consistent with the
// remote SSO truth. It runs once per request, before the protected
// resource:
//
//   - a local SSO-derived credential whose remote session is no longer
//     valid is torn down entirely (remote logout, local session
//     invalidation, cookies cleared);
//   - an anonymous request carrying a still-valid SSO token is promoted
//     via auto-login, rotating the local session against fixation;
//   - anything else passes through untouched.
//
// Infrastructure failures during the remote check degrade the watchdog to
// a no-op for that request: availability of the protected resource wins
// over this secondary consistency check.
type Watchdog struct {
	manager *sso.SessionManager
	store   session.Store
	cfg     WatchdogConfig
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewWatchdog creates the session watchdog
func NewWatchdog(manager *sso.SessionManager, store session.Store, cfg WatchdogConfig, log logrus.FieldLogger, metrics *observability.Metrics) *Watchdog {
	return &Watchdog{
		manager: manager,
		store:   store,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
	}
}

// Handler wraps the next handler with the per-request reconciliation.
// The next handler is always invoked exactly once.
func (wd *Watchdog) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := NewSecurityContext()
		sess := wd.loadSession(r)
		if sess != nil {
			sc.SetAuthentication(credentialFromSession(sess))
		}

		sess = wd.reconcile(w, r, sc, sess)

		ctx := contextkeys.WithSecurityContext(r.Context(), sc)
		if sess != nil {
			ctx = contextkeys.WithSession(ctx, sess)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reconcile applies the decision table and returns the session that
// remains attached to the request, if any
func (wd *Watchdog) reconcile(w http.ResponseWriter, r *http.Request, sc *SecurityContext, sess *session.Session) *session.Session {
	current := sc.Authentication()

	if current != nil && current.HasSSOToken() {
		valid, err := wd.manager.IsAuthenticated(r)
		if err != nil {
			// degrade to a no-op rather than blocking traffic
			wd.log.WithError(err).Error("SSO validity check failed; leaving local state untouched")
			wd.countAction("check_failed")
			return sess
		}
		if valid {
			wd.countAction("valid")
			return sess
		}

		// remote says the session is gone: tear down everything local
		wd.manager.LoginFail(w, r)
		sc.Clear()
		if sess != nil {
			if err := wd.store.Invalidate(r.Context(), sess.ID); err != nil {
				wd.log.WithError(err).Warn("local session invalidation failed")
			}
		}
		wd.clearCookie(w, wd.cfg.sessionCookie())
		wd.resetRememberMeCookie(w)
		wd.countAction("invalidated")
		return nil
	}

	// anonymous, or authenticated without SSO: try to promote
	token := wd.manager.AutoLogin(w, r)
	if token == nil {
		wd.countAction("unchanged")
		return sess
	}

	sc.SetAuthentication(token)

	seed := session.Session{
		Username:    token.Username(),
		SSOToken:    token.SSOToken(),
		DisplayName: token.DisplayName(),
		Authorities: token.Authorities(),
	}

	// rotate the local session so nothing carries over from the prior
	// anonymous state
	var fresh *session.Session
	var err error
	if sess != nil {
		fresh, err = wd.store.Rotate(r.Context(), sess.ID, seed)
	} else {
		fresh, err = wd.store.Create(r.Context(), seed)
	}
	if err != nil {
		wd.log.WithError(err).Warn("session rotation after auto-login failed")
		wd.countAction("autologin")
		return nil
	}
	wd.setSessionCookie(w, fresh.ID)
	wd.countAction("autologin")
	return fresh
}

// loadSession reads the local session cookie and loads the record; nil
// when absent, expired or unreadable
func (wd *Watchdog) loadSession(r *http.Request) *session.Session {
	cookie, err := r.Cookie(wd.cfg.sessionCookie())
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := wd.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			wd.log.WithError(err).Warn("local session lookup failed")
		}
		return nil
	}
	return sess
}

// credentialFromSession rebuilds the request credential from the stored
// session record
func credentialFromSession(sess *session.Session) *auth.Token {
	if sess.SSOToken != "" {
		return auth.NewSSOToken(sess.Username, sess.Authorities, sess.SSOToken, sess.DisplayName)
	}
	return auth.NewPasswordToken(sess.Username, "", sess.Authorities)
}

func (wd *Watchdog) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     wd.cfg.sessionCookie(),
		Value:    id,
		Path:     wd.cfg.basePath(),
		HttpOnly: true,
	})
}

func (wd *Watchdog) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     wd.cfg.basePath(),
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// resetRememberMeCookie sets the remember-me cookie to the empty value,
// scoped to the application's base path
func (wd *Watchdog) resetRememberMeCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:  wd.cfg.rememberMeCookie(),
		Value: "",
		Path:  wd.cfg.basePath(),
	})
}

func (wd *Watchdog) countAction(action string) {
	if wd.metrics == nil {
		return
	}
	wd.metrics.WatchdogActionsTotal.WithLabelValues(action).Inc()
}
