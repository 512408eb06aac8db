package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/perimeter/pkg/directory"
	"github.com/platinummonkey/perimeter/pkg/observability"
)

// Coordinator turns a credential pair, or an already-SSO-validated
// passthrough, into a validated session credential. It is the only
// component that raises authentication failures to its caller.
type Coordinator struct {
	gateway *directory.Gateway
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewCoordinator creates an authentication coordinator
func NewCoordinator(gateway *directory.Gateway, log logrus.FieldLogger, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		gateway: gateway,
		log:     log,
		metrics: metrics,
	}
}

// Authenticate validates the incoming credential and returns an
// established session credential.
//
// A credential that already carries an SSO token and no password was
// validated earlier in this request by the session manager; it is returned
// unchanged without any remote calls.
//
// For a credential pair the authorization gate runs first: the group must
// exist and be active, and the user must be a member. Both checks happen
// before the credential round trip so authorization-scoped failures are
// reported without spending a credential verification call. Every remote
// call is attempted exactly once; there are no retries.
func (c *Coordinator) Authenticate(ctx context.Context, token *Token) (*Token, error) {
	// SSO passthrough: trust was already established for this request
	if token.HasSSOToken() && token.Password() == "" {
		return token, nil
	}

	username := token.Username()

	if !c.gateway.IsGroupActive(ctx) {
		c.count("authorization_unavailable")
		c.log.WithField("group", c.gateway.GroupName()).
			Warn("authorization group does not exist or is inactive")
		return nil, ErrAuthorizationUnavailable
	}

	if !c.gateway.IsGroupMember(ctx, username) {
		c.count("not_authorized")
		c.log.WithField("username", username).
			Info("user is not a member of the authorization group")
		return nil, ErrNotAuthorized
	}

	if _, err := c.gateway.AuthenticateUser(ctx, username, token.Password()); err != nil {
		return nil, c.classifyCredentialFailure(username, err)
	}

	authorities := GrantedAuthorities(c.gateway.AuthoritiesForUser(ctx, username))

	c.count("success")
	return NewPasswordToken(username, token.Password(), authorities), nil
}

// classifyCredentialFailure maps the directory failure taxonomy onto the
// public error kinds, logging one line per classification at a severity
// matching its nature.
func (c *Coordinator) classifyCredentialFailure(username string, err error) error {
	entry := c.log.WithError(err).WithField("username", username)

	switch {
	case errors.Is(err, directory.ErrUserNotFound):
		c.count("identity_not_found")
		entry.Info("user not found on remote directory")
		return fmt.Errorf("%w: %s", ErrIdentityNotFound, username)

	case errors.Is(err, directory.ErrExpiredCredential):
		c.count("credentials_expired")
		entry.Warn("credentials expired")
		return ErrCredentialsExpired

	case errors.Is(err, directory.ErrInactiveAccount):
		c.count("account_inactive")
		entry.Warn("account inactive")
		return ErrAccountInactive

	case errors.Is(err, directory.ErrOperationFailed):
		c.count("directory_unavailable")
		entry.Error("remote directory operation failed")
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)

	default:
		// permission denied and invalid application/user authentication
		c.count("directory_unavailable")
		entry.Warn("remote directory rejected the request")
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
}

func (c *Coordinator) count(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.LoginsTotal.WithLabelValues(result).Inc()
}
