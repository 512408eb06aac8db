package auth

import "errors"

// ErrPasswordUnavailable is returned by Principal.Password. A resolved
// principal never materializes a password; asking for one is a programming
// error, not a valid query.
var ErrPasswordUnavailable = errors.New("auth: password is not available on a resolved principal")

// Principal is the immutable resolved identity of an authenticated user.
// It is created once by the user resolver and never mutated.
type Principal struct {
	username    string
	displayName string
	email       string
	active      bool
	authorities []string
}

// NewPrincipal creates a resolved principal
func NewPrincipal(username, displayName, email string, active bool, authorities []string) *Principal {
	return &Principal{
		username:    username,
		displayName: displayName,
		email:       email,
		active:      active,
		authorities: authorities,
	}
}

// Username returns the unique username. Case sensitivity is defined by
// the remote directory service.
func (p *Principal) Username() string { return p.username }

// DisplayName returns the display name, falling back to the username
func (p *Principal) DisplayName() string {
	if p.displayName == "" {
		return p.username
	}
	return p.displayName
}

// Email returns the email address, if the remote service supplied one
func (p *Principal) Email() string { return p.email }

// Enabled reports whether the remote account is active
func (p *Principal) Enabled() bool { return p.active }

// Authorities returns the granted authority set
func (p *Principal) Authorities() []string { return p.authorities }

// Password always fails with ErrPasswordUnavailable
func (p *Principal) Password() (string, error) {
	return "", ErrPasswordUnavailable
}
