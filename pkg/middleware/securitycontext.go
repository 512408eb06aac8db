package middleware

import (
	"net/http"
	"sync"

	"github.com/platinummonkey/perimeter/pkg/auth"
	"github.com/platinummonkey/perimeter/pkg/contextkeys"
)

// SecurityContext holds the current request's authenticated credential.
// The watchdog attaches one to every request; handlers read it, the
// watchdog and login handlers may replace or clear it.
type SecurityContext struct {
	mu    sync.Mutex
	token *auth.Token
}

// NewSecurityContext creates an empty security context
func NewSecurityContext() *SecurityContext {
	return &SecurityContext{}
}

// Authentication returns the current credential, nil when anonymous
func (s *SecurityContext) Authentication() *auth.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetAuthentication attaches a credential to the request
func (s *SecurityContext) SetAuthentication(token *auth.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear removes the authenticated state entirely
func (s *SecurityContext) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}

// GetSecurityContext extracts the security context from a request; nil
// when the watchdog did not run
func GetSecurityContext(r *http.Request) *SecurityContext {
	sc, ok := r.Context().Value(contextkeys.SecurityContextKey).(*SecurityContext)
	if !ok {
		return nil
	}
	return sc
}
