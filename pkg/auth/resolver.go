package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/perimeter/pkg/directory"
)

// UserResolver loads a fully resolved principal from the remote directory.
// Hosts use it when they need identity details beyond the session
// credential, and the SSO session manager uses it during auto-login.
type UserResolver struct {
	client  directory.Client
	gateway *directory.Gateway
	log     logrus.FieldLogger
}

// NewUserResolver creates a user resolver
func NewUserResolver(client directory.Client, gateway *directory.Gateway, log logrus.FieldLogger) *UserResolver {
	return &UserResolver{
		client:  client,
		gateway: gateway,
		log:     log,
	}
}

// LoadUser resolves the principal for a username. The authorization gate
// runs first: a user outside the authorized group cannot be resolved even
// when the account exists.
func (r *UserResolver) LoadUser(ctx context.Context, username string) (*Principal, error) {
	if !r.gateway.IsGroupActive(ctx) {
		return nil, ErrAuthorizationUnavailable
	}
	if !r.gateway.IsGroupMember(ctx, username) {
		return nil, ErrNotAuthorized
	}

	user, err := r.client.GetUser(ctx, username)
	if err != nil {
		entry := r.log.WithError(err).WithField("username", username)
		switch {
		case errors.Is(err, directory.ErrUserNotFound):
			entry.Info("user not found on remote directory")
			return nil, fmt.Errorf("%w: %s", ErrIdentityNotFound, username)
		case errors.Is(err, directory.ErrOperationFailed):
			entry.Error("remote directory operation failed")
			return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
		default:
			entry.Warn("remote directory rejected the request")
			return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
		}
	}

	authorities := GrantedAuthorities(r.gateway.AuthoritiesForUser(ctx, username))
	return NewPrincipal(user.Name, user.DisplayName, user.Email, user.Active, authorities), nil
}
