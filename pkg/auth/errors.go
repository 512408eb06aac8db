package auth

import "errors"

// Public authentication failure kinds. These are the only errors the
// coordinator surfaces to the host application; everything below it fails
// closed and only logs. Hosts must not echo the specific kind to external
// callers (user enumeration), only to logs.
var (
	// ErrAuthorizationUnavailable indicates the authorization group does
	// not exist on the remote service or is inactive
	ErrAuthorizationUnavailable = errors.New("auth: authorization group unavailable")

	// ErrNotAuthorized indicates the user is not a member of the
	// authorization group
	ErrNotAuthorized = errors.New("auth: user not authorized for this application")

	// ErrIdentityNotFound indicates the remote service has no such user
	ErrIdentityNotFound = errors.New("auth: identity not found")

	// ErrCredentialsExpired indicates the password must be changed
	ErrCredentialsExpired = errors.New("auth: credentials expired")

	// ErrAccountInactive indicates the remote account is disabled
	ErrAccountInactive = errors.New("auth: account inactive")

	// ErrDirectoryUnavailable indicates an infrastructure or configuration
	// problem talking to the remote service, as opposed to a credential
	// failure
	ErrDirectoryUnavailable = errors.New("auth: directory service unavailable")
)
