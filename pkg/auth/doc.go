// Package auth holds the principal and credential model and the
// authentication coordinator: the single component allowed to surface
// authentication failures to the host application.
package auth
