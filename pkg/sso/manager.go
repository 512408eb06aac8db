package sso

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/perimeter/pkg/auth"
	"github.com/platinummonkey/perimeter/pkg/directory"
	"github.com/platinummonkey/perimeter/pkg/observability"
)

// DefaultCookieName is the SSO token cookie used when none is configured
const DefaultCookieName = "perimeter.sso.token"

// CookieConfig holds the SSO token cookie settings
type CookieConfig struct {
	// Name of the SSO token cookie
	Name string

	// Path scopes the cookie; defaults to "/"
	Path string

	// Domain scopes the cookie; empty means host-only
	Domain string

	// Secure restricts the cookie to HTTPS
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// SessionManager manages the cross-request SSO token lifecycle
type SessionManager struct {
	client  directory.Client
	gateway *directory.Gateway
	cookie  CookieConfig
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewSessionManager creates an SSO session manager
func NewSessionManager(client directory.Client, gateway *directory.Gateway, cookie CookieConfig, log logrus.FieldLogger, metrics *observability.Metrics) *SessionManager {
	return &SessionManager{
		client:  client,
		gateway: gateway,
		cookie:  cookie,
		log:     log,
		metrics: metrics,
	}
}

// TokenFromRequest reads the inbound SSO token cookie; empty when absent
func (m *SessionManager) TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(m.cookie.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// IsAuthenticated checks whether the request's SSO session is still valid
// on the remote service. A missing or invalid token is (false, nil); an
// error is returned only for infrastructure failures, which the caller
// treats as "no change".
func (m *SessionManager) IsAuthenticated(r *http.Request) (bool, error) {
	token := m.TokenFromRequest(r)
	if token == "" {
		return false, nil
	}

	err := m.client.ValidateSession(r.Context(), token, ValidationFactors(r))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, directory.ErrInvalidToken) {
		return false, nil
	}
	return false, err
}

// AutoLogin establishes a session credential from an inbound SSO token.
// It returns nil when the request carries no token, when the token fails
// remote validation, or when the authorization gate denies the owning
// user: a valid SSO token proves identity, it never bypasses
// authorization. A user removed from the authorized group loses access
// even mid-SSO-session. All remote failures yield nil, logged.
func (m *SessionManager) AutoLogin(w http.ResponseWriter, r *http.Request) *auth.Token {
	ssoToken := m.TokenFromRequest(r)
	if ssoToken == "" {
		return nil
	}

	ctx := r.Context()
	factors := ValidationFactors(r)

	if err := m.client.ValidateSession(ctx, ssoToken, factors); err != nil {
		m.logFailure(err, "SSO token validation failed during auto-login")
		m.countAutoLogin("invalid_token")
		return nil
	}

	user, err := m.client.FindUserFromSession(ctx, ssoToken)
	if err != nil {
		m.logFailure(err, "could not resolve user from SSO token")
		m.countAutoLogin("user_lookup_failed")
		return nil
	}

	if !m.gateway.IsGroupActive(ctx) || !m.gateway.IsGroupMember(ctx, user.Name) {
		m.log.WithField("username", user.Name).
			Info("SSO session valid but user is not authorized")
		m.countAutoLogin("not_authorized")
		return nil
	}

	authorities := auth.GrantedAuthorities(m.gateway.AuthoritiesForUser(ctx, user.Name))

	m.countAutoLogin("success")
	return auth.NewSSOToken(user.Name, authorities, ssoToken, user.DisplayName)
}

// LoginSuccess establishes or refreshes the SSO session after a
// successful local login. When the credential already carries an SSO
// token it is only re-validated. Otherwise the remote service is asked to
// authenticate and issue one, which is then stored in the token cookie
// and validated.
//
// Every failure here is swallowed and logged: the local authentication
// that already happened stays standing even when full SSO could not be
// established. The returned credential carries the issued token when one
// was established.
func (m *SessionManager) LoginSuccess(w http.ResponseWriter, r *http.Request, token *auth.Token) *auth.Token {
	ctx := r.Context()
	factors := ValidationFactors(r)

	ssoToken := token.SSOToken()
	if ssoToken == "" {
		issued, err := m.client.CreateSession(ctx, token.Username(), token.Password(), factors)
		if err != nil {
			m.logFailure(err, "SSO session creation failed")
			return token
		}

		if issued == "" {
			// issuance should always produce a token on success, but the
			// absence case is handled, not assumed impossible
			m.log.WithField("username", token.Username()).
				Warn("SSO session creation returned no token")
			m.LoginFail(w, r)
			return token
		}

		ssoToken = issued
		m.setTokenCookie(w, ssoToken)
		token = token.WithSSOToken(ssoToken)
	}

	if err := m.client.ValidateSession(ctx, ssoToken, factors); err != nil {
		m.logFailure(err, "SSO token validation failed after login")
	}

	return token
}

// LoginFail terminates any SSO session tied to this request and clears
// the token cookie. Logout is best-effort and never blocks the
// surrounding flow.
func (m *SessionManager) LoginFail(w http.ResponseWriter, r *http.Request) {
	if ssoToken := m.TokenFromRequest(r); ssoToken != "" {
		if err := m.client.InvalidateSession(r.Context(), ssoToken); err != nil {
			m.logFailure(err, "SSO session invalidation failed")
		}
	}
	m.clearTokenCookie(w)
}

// Logout closes the SSO session on explicit user logout
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) {
	m.LoginFail(w, r)
}

func (m *SessionManager) setTokenCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.name(),
		Value:    value,
		Path:     m.cookie.path(),
		Domain:   m.cookie.Domain,
		Secure:   m.cookie.Secure,
		HttpOnly: true,
	})
}

func (m *SessionManager) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.name(),
		Value:    "",
		Path:     m.cookie.path(),
		Domain:   m.cookie.Domain,
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// logFailure writes one diagnostic line at a severity matching the
// failure kind
func (m *SessionManager) logFailure(err error, msg string) {
	entry := m.log.WithError(err)
	switch {
	case errors.Is(err, directory.ErrInvalidToken), errors.Is(err, directory.ErrUserNotFound):
		entry.Info(msg)
	case errors.Is(err, directory.ErrOperationFailed):
		entry.Error(msg)
	default:
		entry.Warn(msg)
	}
}

func (m *SessionManager) countAutoLogin(result string) {
	if m.metrics == nil {
		return
	}
	m.metrics.AutoLoginsTotal.WithLabelValues(result).Inc()
}
