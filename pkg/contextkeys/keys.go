// Package contextkeys provides centralized context key definitions.
// All context keys used across the application must be defined here to
// prevent typos and make key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SecurityContextKey contains *middleware.SecurityContext
	// Set by: middleware.Watchdog (pkg/middleware/watchdog.go)
	// Required by: protected handlers reading the authenticated credential
	SecurityContextKey Key = "security_context"

	// SessionKey contains *session.Session for the current request
	// Set by: middleware.Watchdog after loading the local session
	SessionKey Key = "session"

	// RequestIDKey contains the request ID string
	// Set by: HTTP middleware
	// Used by: logging
	RequestIDKey Key = "request_id"
)

// WithSecurityContext adds the security context to the context
func WithSecurityContext(ctx context.Context, sc interface{}) context.Context {
	return context.WithValue(ctx, SecurityContextKey, sc)
}

// WithSession adds the local session to the context
func WithSession(ctx context.Context, sess interface{}) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// WithRequestID adds the request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
