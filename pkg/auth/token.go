package auth

// Token is the session credential attached to a request's security
// context after a successful authentication. It comes in two shapes:
// password-based (username + password + authorities) and SSO-based
// (username + authorities + SSO token + display name, no password).
// Exactly one of password or SSO token is ever the basis of trust.
type Token struct {
	username    string
	password    string
	authorities []string
	ssoToken    string
	displayName string
}

// NewPasswordToken creates a password-shaped credential
func NewPasswordToken(username, password string, authorities []string) *Token {
	return &Token{
		username:    username,
		password:    password,
		authorities: authorities,
	}
}

// NewSSOToken creates an SSO-shaped credential. It carries no password and
// must never require one to be re-validated.
func NewSSOToken(username string, authorities []string, ssoToken, displayName string) *Token {
	return &Token{
		username:    username,
		authorities: authorities,
		ssoToken:    ssoToken,
		displayName: displayName,
	}
}

// Username returns the principal name
func (t *Token) Username() string { return t.username }

// Password returns the password for password-shaped credentials; empty
// for SSO-shaped ones
func (t *Token) Password() string { return t.password }

// Authorities returns the granted authority set
func (t *Token) Authorities() []string { return t.authorities }

// SSOToken returns the SSO token, or empty when none was established yet
func (t *Token) SSOToken() string { return t.ssoToken }

// HasSSOToken reports whether this credential was established via SSO
func (t *Token) HasSSOToken() bool { return t.ssoToken != "" }

// DisplayName returns the display name, falling back to the username
func (t *Token) DisplayName() string {
	if t.displayName == "" {
		return t.username
	}
	return t.displayName
}

// WithSSOToken returns a copy of the credential carrying the newly issued
// SSO token. The original is never mutated.
func (t *Token) WithSSOToken(ssoToken string) *Token {
	clone := *t
	clone.ssoToken = ssoToken
	return &clone
}
