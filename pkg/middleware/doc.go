// Package middleware provides the per-request session watchdog and the
// security context it maintains. The watchdog reconciles the host's local
// authenticated state against the remote SSO truth on every request and
// always delegates onward: it augments the request pipeline, it never
// replaces it.
package middleware
